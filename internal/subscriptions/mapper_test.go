package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
)

func TestSnapshotFromStripe(t *testing.T) {
	sub := &stripe.Subscription{
		ID:       "sub_123",
		Customer: &stripe.Customer{ID: "cus_123"},
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{
					Price:            &stripe.Price{ID: "price_pro"},
					CurrentPeriodEnd: 1_772_000_000,
				},
			},
		},
	}

	snap, err := SnapshotFromStripe(sub)
	require.NoError(t, err)
	require.Equal(t, Snapshot{
		SubscriptionID:     "sub_123",
		CustomerID:         "cus_123",
		PriceID:            "price_pro",
		CurrentPeriodEndMS: 1_772_000_000_000,
	}, snap)
}

func TestSnapshotFromStripeRejectsIncomplete(t *testing.T) {
	cases := map[string]*stripe.Subscription{
		"nil":         nil,
		"no id":       {},
		"no items":    {ID: "sub_1"},
		"empty items": {ID: "sub_1", Items: &stripe.SubscriptionItemList{}},
		"no price":    {ID: "sub_1", Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: 10}}}},
		"no period":   {ID: "sub_1", Items: &stripe.SubscriptionItemList{Data: []*stripe.SubscriptionItem{{Price: &stripe.Price{ID: "p"}}}}},
	}
	for name, sub := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SnapshotFromStripe(sub)
			require.Error(t, err)
		})
	}
}
