package subscriptions

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
)

// Repository persists org_subscriptions rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrg(ctx context.Context, orgID string) (*models.OrgSubscription, error)
	FindByOrgForUpdate(ctx context.Context, orgID string) (*models.OrgSubscription, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.OrgSubscription, error)
	Create(ctx context.Context, sub *models.OrgSubscription) error
	Save(ctx context.Context, sub *models.OrgSubscription) error
	SetPeriodEnd(ctx context.Context, subscriptionID string, periodEndMS int64) (int64, error)
	ExtendPeriodEnd(ctx context.Context, subscriptionID string, periodEndMS int64) (int64, error)
	ListEndingBefore(ctx context.Context, fromMS, toMS int64, limit int) ([]models.OrgSubscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByOrg returns nil, nil when the org has never subscribed.
func (r *repository) FindByOrg(ctx context.Context, orgID string) (*models.OrgSubscription, error) {
	return r.first(r.db.WithContext(ctx).Where("org_id = ?", orgID))
}

func (r *repository) FindByOrgForUpdate(ctx context.Context, orgID string) (*models.OrgSubscription, error) {
	return r.first(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ?", orgID))
}

func (r *repository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.OrgSubscription, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	return r.first(r.db.WithContext(ctx).Where("billing_subscription_id = ?", subscriptionID))
}

func (r *repository) first(query *gorm.DB) (*models.OrgSubscription, error) {
	var sub models.OrgSubscription
	if err := query.First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Create(ctx context.Context, sub *models.OrgSubscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Save(ctx context.Context, sub *models.OrgSubscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// SetPeriodEnd overwrites current_period_end_ms for the subscription in one
// statement and reports how many rows matched.
func (r *repository) SetPeriodEnd(ctx context.Context, subscriptionID string, periodEndMS int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrgSubscription{}).
		Where("billing_subscription_id = ?", subscriptionID).
		Update("current_period_end_ms", periodEndMS)
	return res.RowsAffected, res.Error
}

// ExtendPeriodEnd only moves current_period_end_ms forward.
func (r *repository) ExtendPeriodEnd(ctx context.Context, subscriptionID string, periodEndMS int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrgSubscription{}).
		Where("billing_subscription_id = ? AND current_period_end_ms < ?", subscriptionID, periodEndMS).
		Update("current_period_end_ms", periodEndMS)
	return res.RowsAffected, res.Error
}

// ListEndingBefore returns records whose period ends within [fromMS, toMS), soonest first.
func (r *repository) ListEndingBefore(ctx context.Context, fromMS, toMS int64, limit int) ([]models.OrgSubscription, error) {
	if limit <= 0 {
		limit = 250
	}
	var subs []models.OrgSubscription
	err := r.db.WithContext(ctx).
		Where("current_period_end_ms >= ? AND current_period_end_ms < ?", fromMS, toMS).
		Order("current_period_end_ms ASC").
		Limit(limit).
		Find(&subs).Error
	return subs, err
}
