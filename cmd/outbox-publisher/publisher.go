package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	maxBackoff   = 10 * time.Second
	jitterWindow = 250 * time.Millisecond
)

// publisher and publishResult narrow *pubsub.Publisher so tests can swap in
// an in-memory topic.
type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisherFactory func(topic string) publisher

type topicPublisher struct{ pub *gcppubsub.Publisher }

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return topicPublisher{pub: p}
}

func (p topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return pendingPublish{res: p.pub.Publish(ctx, msg)}
}

type pendingPublish struct{ res *gcppubsub.PublishResult }

func (p pendingPublish) Get(ctx context.Context) (string, error) {
	if p.res == nil {
		return "", errors.New("publish result is nil")
	}
	return p.res.Get(ctx)
}

// permanentPublishError reports gRPC failures that a retry cannot fix.
func permanentPublishError(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.FailedPrecondition:
		return true
	}
	return false
}

// nextBackoff doubles current (or base when unset) up to limit.
func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
