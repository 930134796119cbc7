package stripewebhook

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// invoiceRefs covers both the legacy top-level subscription field and the
// parent.subscription_details block newer API versions send instead.
type invoiceRefs struct {
	Subscription json.RawMessage `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription json.RawMessage `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func invoiceSubscriptionID(event stripe.Event) (string, error) {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return "", nil
	}
	var refs invoiceRefs
	if err := json.Unmarshal(event.Data.Raw, &refs); err != nil {
		return "", err
	}
	if id := expandableID(refs.Subscription); id != "" {
		return id, nil
	}
	if refs.Parent != nil && refs.Parent.SubscriptionDetails != nil {
		return expandableID(refs.Parent.SubscriptionDetails.Subscription), nil
	}
	return "", nil
}

// expandableID reads either a bare id string or an expanded object's id.
func expandableID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return strings.TrimSpace(id)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

func decodeCheckoutSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if event.Data == nil {
		return &session, nil
	}
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
