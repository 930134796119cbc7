package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/boardpro-billing/api/responses"
	stripewebhook "github.com/angelmondragon/boardpro-billing/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

const signatureHeader = "Stripe-Signature"

// Fulfiller reconciles one raw Stripe delivery.
type Fulfiller interface {
	Fulfill(ctx context.Context, payload []byte, signature string) stripewebhook.Result
}

// StripeWebhook hands the raw body to the reconciler. Any failure maps to a
// non-2xx status so Stripe redelivers the event.
func StripeWebhook(fulfiller Fulfiller, maxBodyBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if fulfiller == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body := r.Body
		if maxBodyBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		payload, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		result := fulfiller.Fulfill(ctx, payload, r.Header.Get(signatureHeader))
		if !result.Success {
			responses.WriteErrorWithData(ctx, logg, w, result.Err, map[string]bool{"success": false})
			return
		}
		responses.WriteSuccess(w, map[string]bool{"success": true})
	}
}
