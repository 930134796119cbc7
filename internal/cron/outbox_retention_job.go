package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultDLQRetention    = 90 * 24 * time.Hour
	outboxRetentionBatch   = 1000
	// Caps one run at this many batches per table; the next run picks up the rest.
	outboxRetentionRounds = 50
)

// batchDeleter removes at most limit rows older than cutoff.
type batchDeleter func(ctx context.Context, cutoff time.Time, limit int) (int64, error)

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// OutboxRetentionJobParams configures the retention job. DLQ is optional;
// without it dead letters are kept forever.
type OutboxRetentionJobParams struct {
	Logger       *logger.Logger
	Repository   outboxRetentionRepo
	DLQ          dlqRetentionRepo
	Retention    time.Duration
	DLQRetention time.Duration
	BatchSize    int
	Now          func() time.Time
}

type outboxRetentionJob struct {
	logg         *logger.Logger
	published    batchDeleter
	deadLetters  batchDeleter
	retention    time.Duration
	dlqRetention time.Duration
	batch        int
	now          func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:         params.Logger,
		published:    params.Repository.DeletePublishedBefore,
		retention:    orDefault(params.Retention, defaultOutboxRetention),
		dlqRetention: orDefault(params.DLQRetention, defaultDLQRetention),
		batch:        params.BatchSize,
		now:          params.Now,
	}
	if params.DLQ != nil {
		job.deadLetters = params.DLQ.DeleteBefore
	}
	if job.batch <= 0 {
		job.batch = outboxRetentionBatch
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run prunes published outbox rows past the retention window and, when a
// DLQ repository is wired, dead letters past their own longer window.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := map[string]any{"retention": j.retention.String()}

	published, err := j.drain(ctx, j.published, now.Add(-j.retention))
	fields["published_deleted"] = published
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	if j.deadLetters != nil {
		dead, err := j.drain(ctx, j.deadLetters, now.Add(-j.dlqRetention))
		fields["dlq_deleted"] = dead
		if err != nil {
			return fmt.Errorf("dlq retention: %w", err)
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}

func (j *outboxRetentionJob) drain(ctx context.Context, del batchDeleter, cutoff time.Time) (int64, error) {
	var total int64
	for range outboxRetentionRounds {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := del(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(j.batch) {
			break
		}
	}
	return total, nil
}
