package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgSubscription is the single billing record an organization holds.
type OrgSubscription struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrgID                 string    `gorm:"column:org_id;not null;uniqueIndex:by_org"`
	BillingCustomerID     string    `gorm:"column:billing_customer_id;not null"`
	BillingSubscriptionID string    `gorm:"column:billing_subscription_id;not null;uniqueIndex:by_subscription"`
	BillingPriceID        string    `gorm:"column:billing_price_id;not null"`
	CurrentPeriodEndMS    int64     `gorm:"column:current_period_end_ms;not null;index:idx_org_subscriptions_period_end"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrgSubscription) TableName() string { return "org_subscriptions" }

func (s *OrgSubscription) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// ActiveAt reports whether the paid period still covers the given instant.
func (s OrgSubscription) ActiveAt(now time.Time) bool {
	return s.CurrentPeriodEndMS > now.UnixMilli()
}
