package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/boardpro-billing/internal/subscriptions"
	"github.com/angelmondragon/boardpro-billing/pkg/db"
	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	"github.com/angelmondragon/boardpro-billing/pkg/enums"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
	"github.com/angelmondragon/boardpro-billing/pkg/outbox"
)

var resyncNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type stubStripeSubscriptions struct {
	ends  map[string]int64
	calls []string
}

func (s *stubStripeSubscriptions) Get(_ context.Context, id string) (*stripe.Subscription, error) {
	s.calls = append(s.calls, id)
	end, ok := s.ends[id]
	if !ok {
		return nil, errors.New("resource_missing")
	}
	return &stripe.Subscription{
		ID:       id,
		Customer: &stripe.Customer{ID: "cus_1"},
		Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{
			Price:            &stripe.Price{ID: "price_pro"},
			CurrentPeriodEnd: end,
		}}},
	}, nil
}

func newResyncFixture(t *testing.T, stub *stubStripeSubscriptions) (*gorm.DB, subscriptions.Repository, Job) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OrgSubscription{}, &models.OutboxEvent{}))

	repo := subscriptions.NewRepository(conn)
	job, err := NewSubscriptionResyncJob(SubscriptionResyncJobParams{
		Logger:       logger.Nop(),
		DB:           db.Wrap(conn),
		Repo:         repo,
		StripeClient: stub,
		Outbox:       outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
		Now:          func() time.Time { return resyncNow },
	})
	require.NoError(t, err)
	return conn, repo, job
}

func seedSubscription(t *testing.T, repo subscriptions.Repository, orgID, subID string, end time.Time) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.OrgSubscription{
		OrgID:                 orgID,
		BillingCustomerID:     "cus_1",
		BillingSubscriptionID: subID,
		BillingPriceID:        "price_pro",
		CurrentPeriodEndMS:    end.UnixMilli(),
	}))
}

func TestSubscriptionResyncExtendsLaggingRecords(t *testing.T) {
	renewedEnd := resyncNow.Add(30 * 24 * time.Hour).Truncate(time.Second)
	stub := &stubStripeSubscriptions{ends: map[string]int64{
		"sub_lapsed":  renewedEnd.Unix(),
		"sub_current": resyncNow.Add(2 * time.Hour).Truncate(time.Second).Unix(),
	}}
	conn, repo, job := newResyncFixture(t, stub)

	seedSubscription(t, repo, "org_lapsed", "sub_lapsed", resyncNow.Add(-time.Hour))
	seedSubscription(t, repo, "org_current", "sub_current", resyncNow.Add(2*time.Hour).Truncate(time.Second))
	seedSubscription(t, repo, "org_far", "sub_far", resyncNow.Add(20*24*time.Hour))
	seedSubscription(t, repo, "org_gone", "sub_gone", resyncNow.Add(-30*24*time.Hour))

	require.NoError(t, job.Run(context.Background()))
	require.ElementsMatch(t, []string{"sub_lapsed", "sub_current"}, stub.calls)

	lapsed, err := repo.FindByOrg(context.Background(), "org_lapsed")
	require.NoError(t, err)
	require.Equal(t, renewedEnd.UnixMilli(), lapsed.CurrentPeriodEndMS)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	require.Equal(t, enums.EventSubscriptionRenewed, events[0].EventType)
	require.Equal(t, lapsed.ID, events[0].AggregateID)
}

func TestSubscriptionResyncNeverShortens(t *testing.T) {
	stored := resyncNow.Add(3 * time.Hour)
	stub := &stubStripeSubscriptions{ends: map[string]int64{
		"sub_1": resyncNow.Add(time.Hour).Unix(),
	}}
	_, repo, job := newResyncFixture(t, stub)
	seedSubscription(t, repo, "org_1", "sub_1", stored)

	require.NoError(t, job.Run(context.Background()))

	got, err := repo.FindByOrg(context.Background(), "org_1")
	require.NoError(t, err)
	require.Equal(t, stored.UnixMilli(), got.CurrentPeriodEndMS)
}

func TestSubscriptionResyncCollectsFailures(t *testing.T) {
	renewed := resyncNow.Add(30 * 24 * time.Hour).Truncate(time.Second)
	stub := &stubStripeSubscriptions{ends: map[string]int64{"sub_ok": renewed.Unix()}}
	_, repo, job := newResyncFixture(t, stub)
	seedSubscription(t, repo, "org_ok", "sub_ok", resyncNow.Add(-time.Hour))
	seedSubscription(t, repo, "org_missing", "sub_missing", resyncNow.Add(-2*time.Hour))

	err := job.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "sub_missing")

	got, findErr := repo.FindByOrg(context.Background(), "org_ok")
	require.NoError(t, findErr)
	require.Equal(t, renewed.UnixMilli(), got.CurrentPeriodEndMS)
}
