package subscriptions

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/boardpro-billing/api/responses"
	"github.com/angelmondragon/boardpro-billing/api/validators"
	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

// QueryService is the read side of the subscription store.
type QueryService interface {
	IsSubscribed(ctx context.Context, orgID string) (bool, error)
	Get(ctx context.Context, orgID string) (*models.OrgSubscription, error)
}

type statusResponse struct {
	IsSubscribed bool `json:"is_subscribed"`
}

type subscriptionView struct {
	OrgID                 string    `json:"org_id"`
	BillingCustomerID     string    `json:"billing_customer_id"`
	BillingSubscriptionID string    `json:"billing_subscription_id"`
	BillingPriceID        string    `json:"billing_price_id"`
	CurrentPeriodEndMS    int64     `json:"current_period_end_ms"`
	CurrentPeriodEnd      time.Time `json:"current_period_end"`
	IsActive              bool      `json:"is_active"`
}

// Status answers whether the org in ?org_id= is entitled right now.
func Status(svc QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID := validators.QueryIdentifier(r, "org_id")
		subscribed, err := svc.IsSubscribed(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, statusResponse{IsSubscribed: subscribed})
	}
}

// Detail returns the stored record for /orgs/{orgId}/subscription, or null.
func Detail(svc QueryService, now func() time.Time, logg *logger.Logger) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		orgID, err := validators.RequiredPathParam(r, "orgId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sub, err := svc.Get(r.Context(), orgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteSuccess(w, nil)
			return
		}
		responses.WriteSuccess(w, subscriptionView{
			OrgID:                 sub.OrgID,
			BillingCustomerID:     sub.BillingCustomerID,
			BillingSubscriptionID: sub.BillingSubscriptionID,
			BillingPriceID:        sub.BillingPriceID,
			CurrentPeriodEndMS:    sub.CurrentPeriodEndMS,
			CurrentPeriodEnd:      time.UnixMilli(sub.CurrentPeriodEndMS).UTC(),
			IsActive:              sub.ActiveAt(now()),
		})
	}
}
