package subscriptions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
)

// Service answers entitlement questions from the stored subscription records.
type Service interface {
	IsSubscribed(ctx context.Context, orgID string) (bool, error)
	Get(ctx context.Context, orgID string) (*models.OrgSubscription, error)
}

// ServiceParams groups dependencies for the subscription query service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the read-only subscription query service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("subscription repo required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

// IsSubscribed reports whether the org's paid period is still running. A blank
// org or a missing record is simply not subscribed.
func (s *service) IsSubscribed(ctx context.Context, orgID string) (bool, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return false, nil
	}
	sub, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return false, nil
	}
	return sub.ActiveAt(s.now()), nil
}

// Get returns the org's record, or nil when it has none.
func (s *service) Get(ctx context.Context, orgID string) (*models.OrgSubscription, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	sub, err := s.repo.FindByOrg(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	return sub, nil
}
