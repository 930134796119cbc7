package enums

import "slices"

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const AggregateOrgSubscription OutboxAggregateType = "org_subscription"

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregateOrgSubscription
}

// OutboxEventType names the domain event stored in an outbox row.
type OutboxEventType string

const (
	EventSubscriptionActivated OutboxEventType = "subscription_activated"
	EventSubscriptionRenewed   OutboxEventType = "subscription_renewed"
)

// OutboxEventTypes lists every event the reconciler can emit. The publisher
// registry refuses to start unless each one has a topic.
func OutboxEventTypes() []OutboxEventType {
	return []OutboxEventType{EventSubscriptionActivated, EventSubscriptionRenewed}
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(OutboxEventTypes(), e)
}

// OutboxDLQErrorReason records why a row was dead-lettered.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
