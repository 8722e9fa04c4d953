// Package subscription exposes the billing-facing subscription operations:
// hosted checkout, the customer portal, plan listing and cancellation.
// Local subscription rows stay untouched here; only the reconciler writes
// them when the provider confirms a change over the webhook.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/config"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
)

var (
	// ErrUnknownPlan is returned for a plan type without a configured price.
	ErrUnknownPlan = errors.New("unknown plan type")
	// ErrNoBillingAccount is returned when a user has no provider customer yet.
	ErrNoBillingAccount = errors.New("no billing account")
	// ErrNoActiveSubscription is returned by Cancel when nothing can be canceled.
	ErrNoActiveSubscription = errors.New("no active subscription")
)

// Plan types accepted by checkout.
const (
	PlanMonthly = "monthly"
	PlanYearly  = "yearly"
)

// Repository defines the storage methods this service needs.
type Repository interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID int, customerID string) error
	ListSubscriptionsByUser(ctx context.Context, userID int) ([]*models.Subscription, error)
}

// Provider is the billing provider surface used here.
type Provider interface {
	CreateCustomer(ctx context.Context, email string, userID int) (*billing.Customer, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, planType string, userID int, successURL, cancelURL string) (*billing.CheckoutSessionResponse, error)
	CreateBillingPortalSession(ctx context.Context, customerID, returnURL string) (*billing.PortalSessionResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error)
	GetPrice(ctx context.Context, priceID string) (*billing.Price, error)
}

// Plan describes one purchasable plan with its provider price.
type Plan struct {
	PlanType string `json:"plan_type"`
	PriceID  string `json:"price_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Interval string `json:"interval"`
}

// Service implements the subscription operations.
type Service struct {
	repo        Repository
	provider    Provider
	stripe      config.Stripe
	frontendURL string
	log         *slog.Logger
}

// New creates the subscription service.
func New(repo Repository, provider Provider, stripe config.Stripe, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		provider:    provider,
		stripe:      stripe,
		frontendURL: frontendURL,
		log:         log,
	}
}

func (s *Service) priceID(planType string) (string, error) {
	switch planType {
	case PlanMonthly:
		return s.stripe.MonthlyPriceID, nil
	case PlanYearly:
		return s.stripe.YearlyPriceID, nil
	default:
		return "", ErrUnknownPlan
	}
}

// ensureCustomer returns the user's provider customer id, creating the
// customer on first billing contact.
func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	const op = "subscription.ensureCustomer"

	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	customer, err := s.provider.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateStripeCustomerID(ctx, user.ID, customer.ID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return customer.ID, nil
}

// CreateCheckoutSession returns the hosted checkout URL for the given plan.
func (s *Service) CreateCheckoutSession(ctx context.Context, userID int, planType string) (string, error) {
	const op = "subscription.CreateCheckoutSession"

	priceID, err := s.priceID(planType)
	if err != nil {
		return "", err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, customerID, priceID, planType, user.ID,
		s.frontendURL+"/checkout/success",
		s.frontendURL+"/checkout/cancel")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("checkout session created",
		slog.Int("user_id", userID), slog.String("plan_type", planType))
	return session.URL, nil
}

// CreatePortalSession returns the billing portal URL for an existing customer.
func (s *Service) CreatePortalSession(ctx context.Context, userID int) (string, error) {
	const op = "subscription.CreatePortalSession"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		return "", ErrNoBillingAccount
	}

	session, err := s.provider.CreateBillingPortalSession(ctx, *user.StripeCustomerID, s.frontendURL+"/account")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return session.URL, nil
}

// ListPlans returns the configured plans with their current provider prices.
// A price lookup failure degrades to the plan without amount details.
func (s *Service) ListPlans(ctx context.Context) []Plan {
	plans := make([]Plan, 0, 2)
	for _, p := range []struct {
		planType string
		priceID  string
	}{
		{PlanMonthly, s.stripe.MonthlyPriceID},
		{PlanYearly, s.stripe.YearlyPriceID},
	} {
		plan := Plan{PlanType: p.planType, PriceID: p.priceID}
		price, err := s.provider.GetPrice(ctx, p.priceID)
		if err != nil {
			s.log.Warn("failed to fetch plan price",
				slog.String("price_id", p.priceID), sl.Err(err))
		} else {
			plan.Amount = price.UnitAmount
			plan.Currency = price.Currency
			if price.Recurring != nil {
				plan.Interval = price.Recurring.Interval
			}
		}
		plans = append(plans, plan)
	}
	return plans
}

// Cancel schedules the user's current subscription for cancellation at period
// end. The local row is updated later by the reconciler when the provider
// sends customer.subscription.updated.
func (s *Service) Cancel(ctx context.Context, userID int) (string, error) {
	const op = "subscription.Cancel"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	target := currentActive(subs, time.Now().UTC())
	if target == nil {
		return "", ErrNoActiveSubscription
	}

	if _, err := s.provider.CancelSubscription(ctx, target.StripeSubscriptionID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("subscription cancellation scheduled",
		slog.Int("user_id", userID),
		slog.String("subscription_id", target.StripeSubscriptionID))
	return target.StripeSubscriptionID, nil
}

// currentActive picks the newest row still granting access. Rows arrive
// ordered by start date descending.
func currentActive(subs []*models.Subscription, now time.Time) *models.Subscription {
	for _, sub := range subs {
		if sub.Status == models.StatusActive {
			return sub
		}
	}
	for _, sub := range subs {
		if sub.GrantsAccess(now) {
			return sub
		}
	}
	return nil
}
