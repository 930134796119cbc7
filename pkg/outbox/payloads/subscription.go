package payloads

// SubscriptionActivatedEvent is emitted when a checkout completion creates or
// replaces an organization's subscription record.
type SubscriptionActivatedEvent struct {
	OrgID                 string `json:"orgId"`
	BillingCustomerID     string `json:"billingCustomerId"`
	BillingSubscriptionID string `json:"billingSubscriptionId"`
	BillingPriceID        string `json:"billingPriceId"`
	CurrentPeriodEndMS    int64  `json:"currentPeriodEndMs"`
	ReplacedSubscription  string `json:"replacedSubscriptionId,omitempty"`
}

// SubscriptionRenewedEvent is emitted whenever the paid period is extended.
type SubscriptionRenewedEvent struct {
	OrgID                 string `json:"orgId"`
	BillingSubscriptionID string `json:"billingSubscriptionId"`
	PreviousPeriodEndMS   int64  `json:"previousPeriodEndMs"`
	CurrentPeriodEndMS    int64  `json:"currentPeriodEndMs"`
	Source                string `json:"source"`
}

// Renewal sources.
const (
	RenewalSourceInvoice = "invoice"
	RenewalSourceResync  = "resync"
)
