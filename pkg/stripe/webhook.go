package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// EventVerifier authenticates Stripe-Signature headers and decodes the event body.
type EventVerifier struct {
	secret  string
	options webhook.ConstructEventOptions
}

// NewEventVerifier builds a verifier for the given webhook signing secret.
func NewEventVerifier(secret string, ignoreAPIVersionMismatch bool) (*EventVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errSecretRequired
	}
	return &EventVerifier{
		secret: secret,
		options: webhook.ConstructEventOptions{
			Tolerance:                webhook.DefaultTolerance,
			IgnoreAPIVersionMismatch: ignoreAPIVersionMismatch,
		},
	}, nil
}

// ConstructEvent validates the signature header over the raw payload and parses the event.
func (v *EventVerifier) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, v.secret, v.options)
}
