package billing

import (
	"context"
	"net/http"

	"github.com/angelmondragon/boardpro-billing/api/middleware"
	"github.com/angelmondragon/boardpro-billing/api/responses"
	"github.com/angelmondragon/boardpro-billing/api/validators"
	billingsvc "github.com/angelmondragon/boardpro-billing/internal/billing"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

// SessionService opens hosted Stripe pages.
type SessionService interface {
	StartCheckout(ctx context.Context, identity billingsvc.Identity, orgID string) (string, error)
	StartPortalSession(ctx context.Context, identity billingsvc.Identity, orgID string) (string, error)
}

type sessionRequest struct {
	OrgID string `json:"org_id" validate:"required,max=128"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

// Checkout starts a Stripe Checkout Session for the requested org.
func Checkout(svc SessionService, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc SessionService) startFunc { return svc.StartCheckout })
}

// Portal opens the Stripe Billing Portal for the requested org.
func Portal(svc SessionService, logg *logger.Logger) http.HandlerFunc {
	return sessionHandler(svc, logg, func(svc SessionService) startFunc { return svc.StartPortalSession })
}

type startFunc func(ctx context.Context, identity billingsvc.Identity, orgID string) (string, error)

func sessionHandler(svc SessionService, logg *logger.Logger, pick func(SessionService) startFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload sessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		identity := billingsvc.Identity{
			UserID: middleware.UserIDFromContext(r.Context()),
			Email:  middleware.EmailFromContext(r.Context()),
		}
		url, err := pick(svc)(r.Context(), identity, payload.OrgID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{URL: url})
	}
}
