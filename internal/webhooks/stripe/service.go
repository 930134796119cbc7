package stripewebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/angelmondragon/boardpro-billing/internal/billing"
	"github.com/angelmondragon/boardpro-billing/internal/subscriptions"
	"github.com/angelmondragon/boardpro-billing/pkg/db"
	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	"github.com/angelmondragon/boardpro-billing/pkg/enums"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
	"github.com/angelmondragon/boardpro-billing/pkg/metrics"
	"github.com/angelmondragon/boardpro-billing/pkg/outbox"
	"github.com/angelmondragon/boardpro-billing/pkg/outbox/payloads"
)

const (
	eventSource         = "stripe-webhook"
	unverifiedEventType = "unverified"
)

// Result is the outcome handed back to the transport. Err is nil on success.
type Result struct {
	Success   bool
	EventID   string
	EventType string
	Err       error
}

type eventVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type eventGuard interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Verifier          eventVerifier
	Repo              subscriptions.Repository
	StripeClient      subscriptions.StripeSubscriptionClient
	TransactionRunner txRunner
	Outbox            eventEmitter
	Guard             eventGuard
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

// Service turns verified Stripe webhooks into org_subscriptions state.
type Service struct {
	verifier eventVerifier
	repo     subscriptions.Repository
	stripe   subscriptions.StripeSubscriptionClient
	txRunner txRunner
	outbox   eventEmitter
	guard    eventGuard
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event verifier required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription repo required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		verifier: params.Verifier,
		repo:     params.Repo,
		stripe:   params.StripeClient,
		txRunner: params.TransactionRunner,
		outbox:   params.Outbox,
		guard:    params.Guard,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Fulfill verifies one delivery and reconciles it. It never panics and never
// returns an error directly: failures come back as Result{Success: false}.
func (s *Service) Fulfill(ctx context.Context, payload []byte, signature string) (result Result) {
	start := s.now()
	result.EventType = unverifiedEventType
	outcome := metrics.OutcomeFailed
	defer func() {
		if r := recover(); r != nil {
			result = Result{EventID: result.EventID, EventType: result.EventType, Err: pkgerrors.New(pkgerrors.CodeInternal, "webhook reconciliation panicked")}
			s.logg.Error(ctx, "stripe webhook panic", result.Err)
			outcome = metrics.OutcomeFailed
		}
		s.metrics.Observe(result.EventType, outcome, s.now().Sub(start))
	}()

	event, err := s.verifier.ConstructEvent(payload, signature)
	if err != nil {
		outcome = metrics.OutcomeRejected
		result.Err = pkgerrors.Wrap(pkgerrors.CodeSignature, err, "stripe signature verification failed")
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "stripe webhook rejected")
		return result
	}

	result.EventID = event.ID
	result.EventType = string(event.Type)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"stripe_event_id":   event.ID,
		"stripe_event_type": result.EventType,
	})

	handle := s.handlerFor(event.Type)
	if handle == nil {
		outcome = metrics.OutcomeIgnored
		s.logg.Debug(ctx, "stripe event ignored")
		result.Success = true
		return result
	}

	guarded := s.guard != nil && event.ID != ""
	if guarded {
		done, err := s.guard.Processed(ctx, event.ID)
		switch {
		case err != nil:
			// reconciliation is idempotent in the database; carry on without the shortcut
			s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "stripe webhook idempotency lookup failed")
		case done:
			outcome = metrics.OutcomeDuplicate
			s.logg.Info(ctx, "stripe event already processed")
			result.Success = true
			return result
		}
	}

	if err := handle(ctx, event); err != nil {
		result.Err = err
		s.logg.Error(s.logg.WithField(ctx, "error_code", string(pkgerrors.CodeOf(err))), "stripe webhook reconciliation failed", err)
		return result
	}

	if guarded {
		if err := s.guard.MarkProcessed(ctx, event.ID); err != nil {
			s.logg.Error(ctx, "failed to mark stripe event processed", err)
		}
	}

	outcome = metrics.OutcomeProcessed
	s.logg.Info(ctx, "stripe event processed")
	result.Success = true
	return result
}

func (s *Service) handlerFor(eventType stripe.EventType) func(context.Context, stripe.Event) error {
	switch eventType {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted
	case stripe.EventTypeInvoicePaymentSucceeded:
		return s.handleInvoicePaid
	default:
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	session, err := decodeCheckoutSession(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	orgID := strings.TrimSpace(session.Metadata[billing.MetadataOrgID])
	if orgID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session missing orgId metadata")
	}
	if session.Subscription == nil || session.Subscription.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "checkout session has no subscription")
	}
	ctx = s.logg.WithOrgID(ctx, orgID)

	snap, err := s.fetchSnapshot(ctx, session.Subscription.ID)
	if err != nil {
		return err
	}
	if snap.CustomerID == "" && session.Customer != nil {
		snap.CustomerID = session.Customer.ID
	}
	if snap.CustomerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription has no customer")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindByOrgForUpdate(ctx, orgID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load org subscription")
		}

		replaced := ""
		switch {
		case record == nil:
			record = &models.OrgSubscription{OrgID: orgID}
			applySnapshot(record, snap)
			if err := repo.Create(ctx, record); err != nil {
				return storeError(err, "create org subscription")
			}
		case record.BillingSubscriptionID == snap.SubscriptionID:
			s.logg.Info(ctx, "checkout already reconciled for org")
			return nil
		default:
			replaced = record.BillingSubscriptionID
			applySnapshot(record, snap)
			if err := repo.Save(ctx, record); err != nil {
				return storeError(err, "replace org subscription")
			}
		}

		return s.emit(ctx, tx, event, record, enums.EventSubscriptionActivated, payloads.SubscriptionActivatedEvent{
			OrgID:                 record.OrgID,
			BillingCustomerID:     record.BillingCustomerID,
			BillingSubscriptionID: record.BillingSubscriptionID,
			BillingPriceID:        record.BillingPriceID,
			CurrentPeriodEndMS:    record.CurrentPeriodEndMS,
			ReplacedSubscription:  replaced,
		})
	})
}

func (s *Service) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	subscriptionID, err := invoiceSubscriptionID(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode invoice")
	}
	if subscriptionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice has no subscription")
	}
	ctx = s.logg.WithField(ctx, "billing_subscription_id", subscriptionID)

	snap, err := s.fetchSnapshot(ctx, subscriptionID)
	if err != nil {
		return err
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindBySubscriptionID(ctx, subscriptionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load org subscription")
		}
		if record == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		previous := record.CurrentPeriodEndMS

		rows, err := repo.SetPeriodEnd(ctx, subscriptionID, snap.CurrentPeriodEndMS)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update period end")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		}
		if previous == snap.CurrentPeriodEndMS {
			return nil
		}
		record.CurrentPeriodEndMS = snap.CurrentPeriodEndMS

		return s.emit(s.logg.WithOrgID(ctx, record.OrgID), tx, event, record, enums.EventSubscriptionRenewed, payloads.SubscriptionRenewedEvent{
			OrgID:                 record.OrgID,
			BillingSubscriptionID: subscriptionID,
			PreviousPeriodEndMS:   previous,
			CurrentPeriodEndMS:    snap.CurrentPeriodEndMS,
			Source:                payloads.RenewalSourceInvoice,
		})
	})
}

func (s *Service) fetchSnapshot(ctx context.Context, subscriptionID string) (subscriptions.Snapshot, error) {
	sub, err := s.stripe.Get(ctx, subscriptionID)
	if err != nil {
		return subscriptions.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
	}
	snap, err := subscriptions.SnapshotFromStripe(sub)
	if err != nil {
		return subscriptions.Snapshot{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read stripe subscription")
	}
	return snap, nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, event stripe.Event, record *models.OrgSubscription, eventType enums.OutboxEventType, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrgSubscription,
		AggregateID:   record.ID,
		Source:        eventSource,
		CorrelationID: event.ID,
		Data:          data,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue subscription event")
	}
	return nil
}

func applySnapshot(record *models.OrgSubscription, snap subscriptions.Snapshot) {
	record.BillingCustomerID = snap.CustomerID
	record.BillingSubscriptionID = snap.SubscriptionID
	record.BillingPriceID = snap.PriceID
	record.CurrentPeriodEndMS = snap.CurrentPeriodEndMS
}

// Unique index names from the org_subscriptions migration.
const (
	orgIndex          = "by_org"
	subscriptionIndex = "by_subscription"
)

func storeError(err error, msg string) error {
	switch {
	case db.IsUniqueViolation(err, orgIndex):
		// a concurrent checkout for the same org inserted first; a retry sees its row
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "org subscription created concurrently")
	case db.IsUniqueViolation(err, subscriptionIndex):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "subscription already linked to another org")
	case db.IsUniqueViolation(err, ""):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "org subscription already exists")
	}
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
