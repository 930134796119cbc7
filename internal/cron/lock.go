package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boardpro-billing/pkg/instance"
)

// Lock coordinates exclusive cron runs across replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DeleteIfValue(ctx context.Context, key, value string) (bool, error)
}

// RedisLock is a single-holder lease on one key. The stored value names the
// holding instance so a stuck lease can be traced from redis-cli.
type RedisLock struct {
	store lockStore
	key   string
	lease time.Duration
	token string
}

// LockLease sizes a lease that outlives a full pass where every job hits its
// timeout, plus a minute of slack.
func LockLease(jobs int, jobTimeout time.Duration) time.Duration {
	if jobs <= 0 || jobTimeout <= 0 {
		return 0
	}
	return time.Duration(jobs)*jobTimeout + time.Minute
}

// NewRedisLock builds a lease on key. A non-positive lease defaults to two hours.
func NewRedisLock(store lockStore, key string, lease time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("redis client required for lock")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if lease <= 0 {
		lease = 2 * time.Hour
	}
	return &RedisLock{store: store, key: key, lease: lease}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := instance.GetID() + "/" + uuid.NewString()
	won, err := l.store.SetNX(ctx, l.key, token, l.lease)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if won {
		l.token = token
	}
	return won, nil
}

// Release is a no-op unless this lock holds the lease; a lease that expired
// and was taken by another replica is left alone.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.DeleteIfValue(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
