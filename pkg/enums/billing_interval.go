package enums

import (
	"fmt"
	"slices"
	"strings"
)

// BillingInterval is the recurring cadence Stripe bills a plan on.
type BillingInterval string

const (
	BillingIntervalDay   BillingInterval = "day"
	BillingIntervalWeek  BillingInterval = "week"
	BillingIntervalMonth BillingInterval = "month"
	BillingIntervalYear  BillingInterval = "year"
)

func (b BillingInterval) String() string {
	return string(b)
}

func (b BillingInterval) IsValid() bool {
	return slices.Contains([]BillingInterval{
		BillingIntervalDay,
		BillingIntervalWeek,
		BillingIntervalMonth,
		BillingIntervalYear,
	}, b)
}

// ParseBillingInterval accepts any casing and surrounding space.
func ParseBillingInterval(value string) (BillingInterval, error) {
	normalized := BillingInterval(strings.ToLower(strings.TrimSpace(value)))
	if !normalized.IsValid() {
		return "", fmt.Errorf("invalid billing interval %q", value)
	}
	return normalized, nil
}
