package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/boardpro-billing/internal/subscriptions"
	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	"github.com/angelmondragon/boardpro-billing/pkg/enums"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
	"github.com/angelmondragon/boardpro-billing/pkg/outbox"
	"github.com/angelmondragon/boardpro-billing/pkg/outbox/payloads"
)

const (
	defaultResyncLimit     = 250
	defaultResyncLookahead = 24 * time.Hour
	defaultResyncGrace     = 7 * 24 * time.Hour
	resyncEventSource      = "subscription-resync"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SubscriptionResyncJobParams configures the period-end resync job.
type SubscriptionResyncJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Repo         subscriptions.Repository
	StripeClient subscriptions.StripeSubscriptionClient
	Outbox       eventEmitter
	Limit        int
	Lookahead    time.Duration
	GracePeriod  time.Duration
	Now          func() time.Time
}

// NewSubscriptionResyncJob builds a job that catches renewals whose invoice
// webhook never arrived.
func NewSubscriptionResyncJob(params SubscriptionResyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultResyncLimit
	}
	lookahead := params.Lookahead
	if lookahead <= 0 {
		lookahead = defaultResyncLookahead
	}
	grace := params.GracePeriod
	if grace <= 0 {
		grace = defaultResyncGrace
	}
	return &subscriptionResyncJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repo,
		stripe:    params.StripeClient,
		outbox:    params.Outbox,
		now:       now,
		limit:     limit,
		lookahead: lookahead,
		grace:     grace,
	}, nil
}

type subscriptionResyncJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      subscriptions.Repository
	stripe    subscriptions.StripeSubscriptionClient
	outbox    eventEmitter
	now       func() time.Time
	limit     int
	lookahead time.Duration
	grace     time.Duration
}

func (j *subscriptionResyncJob) Name() string { return "subscription-resync" }

// Run looks at records whose period ended within the grace window or ends
// within the lookahead, and extends them when Stripe reports a later end.
func (j *subscriptionResyncJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	from := now.Add(-j.grace).UnixMilli()
	to := now.Add(j.lookahead).UnixMilli()
	candidates, err := j.repo.ListEndingBefore(ctx, from, to, j.limit)
	if err != nil {
		return fmt.Errorf("list subscriptions for resync: %w", err)
	}

	var errs error
	extended := 0
	for i := range candidates {
		changed, err := j.resync(ctx, &candidates[i])
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("resync %s: %w", candidates[i].BillingSubscriptionID, err))
			continue
		}
		if changed {
			extended++
		}
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"extended":   extended,
		"failed":     len(multierr.Errors(errs)),
	})
	j.logg.Info(reportCtx, "subscription resync complete")
	return errs
}

func (j *subscriptionResyncJob) resync(ctx context.Context, sub *models.OrgSubscription) (bool, error) {
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"org_id":                  sub.OrgID,
		"billing_subscription_id": sub.BillingSubscriptionID,
	})
	if strings.TrimSpace(sub.BillingSubscriptionID) == "" {
		j.logg.Warn(logCtx, "record has no subscription id; skipping")
		return false, nil
	}
	stripeSub, err := j.stripe.Get(logCtx, sub.BillingSubscriptionID)
	if err != nil {
		return false, fmt.Errorf("fetch stripe subscription: %w", err)
	}
	snap, err := subscriptions.SnapshotFromStripe(stripeSub)
	if err != nil {
		return false, err
	}
	if snap.CurrentPeriodEndMS <= sub.CurrentPeriodEndMS {
		return false, nil
	}

	extended := false
	err = j.db.WithTx(logCtx, func(tx *gorm.DB) error {
		rows, err := j.repo.WithTx(tx).ExtendPeriodEnd(logCtx, sub.BillingSubscriptionID, snap.CurrentPeriodEndMS)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		extended = true
		return j.outbox.Emit(logCtx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionRenewed,
			AggregateType: enums.AggregateOrgSubscription,
			AggregateID:   sub.ID,
			Source:        resyncEventSource,
			Data: payloads.SubscriptionRenewedEvent{
				OrgID:                 sub.OrgID,
				BillingSubscriptionID: sub.BillingSubscriptionID,
				PreviousPeriodEndMS:   sub.CurrentPeriodEndMS,
				CurrentPeriodEndMS:    snap.CurrentPeriodEndMS,
				Source:                payloads.RenewalSourceResync,
			},
		})
	})
	if err != nil {
		return false, fmt.Errorf("persist period end: %w", err)
	}
	if extended {
		j.logg.Info(j.logg.WithField(logCtx, "current_period_end_ms", snap.CurrentPeriodEndMS), "subscription period extended")
	}
	return extended, nil
}
