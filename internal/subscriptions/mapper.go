package subscriptions

import (
	"errors"

	"github.com/stripe/stripe-go/v84"
)

// Snapshot is the slice of a Stripe subscription the store keeps.
type Snapshot struct {
	SubscriptionID     string
	CustomerID         string
	PriceID            string
	CurrentPeriodEndMS int64
}

// SnapshotFromStripe reads ids and the period end (seconds, converted to
// millis) from the subscription's first item.
func SnapshotFromStripe(sub *stripe.Subscription) (Snapshot, error) {
	if sub == nil || sub.ID == "" {
		return Snapshot{}, errors.New("stripe subscription is empty")
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0] == nil {
		return Snapshot{}, errors.New("stripe subscription has no items")
	}
	item := sub.Items.Data[0]
	if item.Price == nil || item.Price.ID == "" {
		return Snapshot{}, errors.New("stripe subscription item has no price")
	}
	if item.CurrentPeriodEnd <= 0 {
		return Snapshot{}, errors.New("stripe subscription item has no period end")
	}
	snap := Snapshot{
		SubscriptionID:     sub.ID,
		PriceID:            item.Price.ID,
		CurrentPeriodEndMS: item.CurrentPeriodEnd * 1000,
	}
	if sub.Customer != nil {
		snap.CustomerID = sub.Customer.ID
	}
	return snap, nil
}
