package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/boardpro-billing/pkg/config"
	"github.com/angelmondragon/boardpro-billing/pkg/db/models"
	"github.com/angelmondragon/boardpro-billing/pkg/enums"
	pkgerrors "github.com/angelmondragon/boardpro-billing/pkg/errors"
	"github.com/angelmondragon/boardpro-billing/pkg/logger"
)

// MetadataOrgID is the checkout metadata key that carries the purchasing org.
const MetadataOrgID = "orgId"

// Identity is the authenticated caller starting a billing session.
type Identity struct {
	UserID string
	Email  string
}

func (i Identity) valid() bool {
	return strings.TrimSpace(i.UserID) != "" && strings.TrimSpace(i.Email) != ""
}

type subscriptionFinder interface {
	FindByOrg(ctx context.Context, orgID string) (*models.OrgSubscription, error)
}

// ServiceParams groups dependencies for the billing session initiator.
type ServiceParams struct {
	Stripe        StripeSessionClient
	Subscriptions subscriptionFinder
	Plan          config.PlanConfig
	PriceID       string
	BaseURL       string
	Logger        *logger.Logger
}

// Service opens hosted Stripe pages for an organization. It never writes local state.
type Service struct {
	stripe        StripeSessionClient
	subscriptions subscriptionFinder
	lineItem      *stripe.CheckoutSessionLineItemParams
	baseURL       string
	logg          *logger.Logger
}

// NewService validates the plan once so every checkout uses the same line item.
func NewService(params ServiceParams) (*Service, error) {
	if params.Stripe == nil {
		return nil, errors.New("stripe client is required")
	}
	if params.Subscriptions == nil {
		return nil, errors.New("subscription repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	baseURL := strings.TrimSpace(params.BaseURL)
	if baseURL == "" {
		return nil, errors.New("base url is required")
	}
	lineItem, err := planLineItem(params.Plan, params.PriceID)
	if err != nil {
		return nil, err
	}
	return &Service{
		stripe:        params.Stripe,
		subscriptions: params.Subscriptions,
		lineItem:      lineItem,
		baseURL:       baseURL,
		logg:          params.Logger,
	}, nil
}

func planLineItem(plan config.PlanConfig, priceID string) (*stripe.CheckoutSessionLineItemParams, error) {
	if priceID = strings.TrimSpace(priceID); priceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}, nil
	}
	cents, err := plan.AmountCents()
	if err != nil {
		return nil, err
	}
	interval, err := enums.ParseBillingInterval(plan.Interval)
	if err != nil {
		return nil, err
	}
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(strings.ToLower(plan.Currency)),
			UnitAmount: stripe.Int64(cents),
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(interval.String()),
			},
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(plan.ProductName),
				Description: stripe.String(plan.ProductDescription),
			},
		},
	}, nil
}

// StartCheckout creates a subscription-mode Checkout Session for orgID and returns its URL.
func (s *Service) StartCheckout(ctx context.Context, identity Identity, orgID string) (string, error) {
	orgID, err := s.validate(identity, orgID)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithOrgID(ctx, orgID)

	lineItem := *s.lineItem
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail:     stripe.String(identity.Email),
		ClientReferenceID: stripe.String(orgID),
		SuccessURL:        stripe.String(s.baseURL),
		CancelURL:         stripe.String(s.baseURL),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{&lineItem},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataOrgID: orgID},
		},
	}
	params.AddMetadata(MetadataOrgID, orgID)

	session, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.logg.Error(ctx, "stripe checkout session failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if session == nil || session.URL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout session has no url")
	}
	s.logg.Info(s.logg.WithField(ctx, "checkout_session_id", session.ID), "checkout session created")
	return session.URL, nil
}

// StartPortalSession opens the Billing Portal for the org's stored customer.
func (s *Service) StartPortalSession(ctx context.Context, identity Identity, orgID string) (string, error) {
	orgID, err := s.validate(identity, orgID)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithOrgID(ctx, orgID)

	sub, err := s.subscriptions.FindByOrg(ctx, orgID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "no subscription")
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(sub.BillingCustomerID),
		ReturnURL: stripe.String(s.baseURL),
	})
	if err != nil {
		s.logg.Error(ctx, "stripe portal session failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create portal session")
	}
	if session == nil || session.URL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "portal session has no url")
	}
	return session.URL, nil
}

func (s *Service) validate(identity Identity, orgID string) (string, error) {
	if !identity.valid() {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	return orgID, nil
}
