// Package reconciler converts billing provider webhook events into idempotent
// mutations of the local subscription table, tolerating duplicate and
// out-of-order delivery.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
	"github.com/onirworld/legalassist/internal/storage/repository"
)

// Outcome classifies how a single event delivery ended.
type Outcome string

const (
	// OutcomeProcessed means the event was handled and any mutation committed.
	OutcomeProcessed Outcome = "processed"
	// OutcomeAlreadyProcessed means the event ID was seen before; nothing ran.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeSkipped means the payload was ignored or incomplete; no mutation.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means a storage or provider call failed mid-processing.
	OutcomeFailed Outcome = "failed"
	// OutcomeTimeout means processing exceeded the per-event deadline. Writes
	// committed before the deadline stay committed.
	OutcomeTimeout Outcome = "timeout"
)

// processTimeout bounds total processing time per event.
const processTimeout = 30 * time.Second

// Repository defines the storage methods the reconciler mutates state through.
type Repository interface {
	// MarkEventProcessed records an event ID, reporting whether this call claimed it.
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	// GetUser returns a user by local ID.
	GetUser(ctx context.Context, id int) (*models.User, error)
	// GetUserByStripeCustomerID returns the user linked to a billing customer.
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	// GetSubscriptionByStripeID returns the local row for an external
	// reference, or repository.ErrSubscriptionNotFound when no row exists.
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error)
	// CreateSubscription inserts a new subscription row.
	CreateSubscription(ctx context.Context, sub models.Subscription) (int, error)
	// UpdateSubscriptionStatus updates status and end date by external reference.
	UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID, status string, endDate *time.Time) (int, error)
}

// Provider fetches authoritative subscription state from the billing provider.
type Provider interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error)
}

// Service is the reconciler. One instance is shared across webhook requests.
type Service struct {
	repo     Repository
	provider Provider
	log      *slog.Logger
	timeout  time.Duration
}

// New creates a reconciler service.
func New(repo Repository, provider Provider, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		log:      log,
		timeout:  processTimeout,
	}
}

// ProcessEvent runs one webhook event to completion under the per-event
// deadline. It never panics outward and never returns an error: every failure
// mode is folded into the outcome so the HTTP layer can always acknowledge
// the provider.
func (s *Service) ProcessEvent(ctx context.Context, event *billing.Event) Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() {
		done <- s.process(ctx, event)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-ctx.Done():
		s.log.Error("event processing timed out",
			slog.String("event_id", event.ID),
			slog.String("event_type", event.Type))
		return OutcomeTimeout
	}
}

func (s *Service) process(ctx context.Context, event *billing.Event) Outcome {
	log := s.log.With(
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
	)

	inserted, err := s.repo.MarkEventProcessed(ctx, event.ID)
	if err != nil {
		log.Error("failed to record event id", sl.Err(err))
		return OutcomeFailed
	}
	if !inserted {
		log.Info("event already processed, skipping")
		return OutcomeAlreadyProcessed
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(log, event.Data.Object)
	// invoice.payment_succeeded is what subscription endpoints are configured
	// for; invoice.paid carries the same confirmation on newer API versions.
	case "invoice.payment_succeeded", "invoice.paid":
		return s.handleInvoicePaid(ctx, log, event.Data.Object)
	case "customer.subscription.updated", "customer.subscription.deleted":
		return s.handleSubscriptionChanged(ctx, log, event.Data.Object)
	default:
		log.Info("ignoring unhandled event type")
		return OutcomeSkipped
	}
}

// handleCheckoutCompleted only validates linkage fields. The subscription row
// is created later, when the first invoice payment arrives, because checkout
// completion does not guarantee the subscription object exists yet.
func (s *Service) handleCheckoutCompleted(log *slog.Logger, payload json.RawMessage) Outcome {
	var session billing.CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		log.Error("malformed checkout session payload", sl.Err(err))
		return OutcomeSkipped
	}

	if session.Metadata["user_id"] == "" || session.Metadata["plan_type"] == "" {
		log.Warn("checkout session missing linkage metadata",
			slog.String("session_id", session.ID))
		return OutcomeSkipped
	}
	if session.Subscription == "" {
		log.Warn("checkout session has no subscription reference",
			slog.String("session_id", session.ID))
		return OutcomeSkipped
	}

	log.Info("checkout session validated",
		slog.String("session_id", session.ID),
		slog.String("subscription_id", session.Subscription))
	return OutcomeProcessed
}

func (s *Service) handleInvoicePaid(ctx context.Context, log *slog.Logger, payload json.RawMessage) Outcome {
	var invoice billing.Invoice
	if err := json.Unmarshal(payload, &invoice); err != nil {
		log.Error("malformed invoice payload", sl.Err(err))
		return OutcomeSkipped
	}

	subscriptionID := invoice.SubscriptionID()
	if subscriptionID == "" {
		log.Warn("invoice has no subscription reference", slog.String("invoice_id", invoice.ID))
		return OutcomeSkipped
	}
	log = log.With(slog.String("subscription_id", subscriptionID))

	// the invoice alone is not authoritative: plan and metadata live on the
	// subscription object
	sub, err := s.provider.GetSubscription(ctx, subscriptionID)
	if err != nil {
		log.Error("failed to fetch subscription from provider", sl.Err(err))
		return OutcomeFailed
	}

	planType := sub.Metadata["plan_type"]
	if planType == "" {
		log.Warn("subscription has no plan metadata")
		return OutcomeSkipped
	}

	user := s.resolveUser(ctx, log, sub)
	if user == nil {
		return OutcomeSkipped
	}

	periodStart, periodEnd, ok := resolvePeriod(sub)
	if !ok {
		log.Warn("subscription has no resolvable billing period")
		return OutcomeSkipped
	}

	existing, err := s.repo.GetSubscriptionByStripeID(ctx, subscriptionID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		log.Error("failed to look up subscription row", sl.Err(err))
		return OutcomeFailed
	}
	if existing != nil {
		if _, err := s.repo.UpdateSubscriptionStatus(ctx, subscriptionID, models.StatusActive, &periodEnd); err != nil {
			log.Error("failed to refresh subscription row", sl.Err(err))
			return OutcomeFailed
		}
		log.Info("refreshed subscription after invoice payment",
			slog.Int("user_id", user.ID),
			slog.Time("end_date", periodEnd))
		return OutcomeProcessed
	}

	if _, err := s.repo.CreateSubscription(ctx, models.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: subscriptionID,
		PlanType:             planType,
		Status:               models.StatusActive,
		StartDate:            periodStart,
		EndDate:              &periodEnd,
	}); err != nil {
		log.Error("failed to create subscription row", sl.Err(err))
		return OutcomeFailed
	}

	log.Info("created subscription after invoice payment",
		slog.Int("user_id", user.ID),
		slog.String("plan_type", planType),
		slog.Time("start_date", periodStart),
		slog.Time("end_date", periodEnd))
	return OutcomeProcessed
}

func (s *Service) handleSubscriptionChanged(ctx context.Context, log *slog.Logger, payload json.RawMessage) Outcome {
	var sub billing.Subscription
	if err := json.Unmarshal(payload, &sub); err != nil {
		log.Error("malformed subscription payload", sl.Err(err))
		return OutcomeSkipped
	}
	if sub.ID == "" {
		log.Warn("subscription payload has no reference")
		return OutcomeSkipped
	}
	log = log.With(slog.String("subscription_id", sub.ID))

	status := deriveStatus(&sub)
	endDate := deriveEndDate(&sub)

	existing, err := s.repo.GetSubscriptionByStripeID(ctx, sub.ID)
	if err != nil && !errors.Is(err, repository.ErrSubscriptionNotFound) {
		log.Error("failed to look up subscription row", sl.Err(err))
		return OutcomeFailed
	}
	if existing != nil {
		if _, err := s.repo.UpdateSubscriptionStatus(ctx, sub.ID, status, endDate); err != nil {
			log.Error("failed to update subscription row", sl.Err(err))
			return OutcomeFailed
		}
		log.Info("updated subscription state", slog.String("status", status))
		return OutcomeProcessed
	}

	// no local row yet: synthesize one if the user can be resolved
	user := s.resolveUser(ctx, log, &sub)
	if user == nil {
		return OutcomeSkipped
	}

	startDate := time.Now().UTC()
	if periodStart, _, ok := resolvePeriod(&sub); ok {
		startDate = periodStart
	}

	if _, err := s.repo.CreateSubscription(ctx, models.Subscription{
		UserID:               user.ID,
		StripeSubscriptionID: sub.ID,
		PlanType:             sub.Metadata["plan_type"],
		Status:               status,
		StartDate:            startDate,
		EndDate:              endDate,
	}); err != nil {
		log.Error("failed to create subscription row", sl.Err(err))
		return OutcomeFailed
	}

	log.Info("created subscription row from state change",
		slog.Int("user_id", user.ID),
		slog.String("status", status))
	return OutcomeProcessed
}

// resolveUser prefers the creating user recorded in subscription metadata and
// falls back to the billing customer linkage. Returns nil when neither path
// matches a local user.
func (s *Service) resolveUser(ctx context.Context, log *slog.Logger, sub *billing.Subscription) *models.User {
	if raw := sub.Metadata["created_by_user_id"]; raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			if user, err := s.repo.GetUser(ctx, id); err == nil && user != nil {
				return user
			}
			log.Warn("metadata user id does not match a local user", slog.String("created_by_user_id", raw))
		}
	}

	if sub.Customer != "" {
		if user, err := s.repo.GetUserByStripeCustomerID(ctx, sub.Customer); err == nil && user != nil {
			return user
		}
	}

	log.Warn("could not resolve a local user for subscription",
		slog.String("customer_id", sub.Customer))
	return nil
}

// deriveStatus forces canceled when a cancellation is scheduled or has
// happened, even while the provider's literal status still reads active.
func deriveStatus(sub *billing.Subscription) string {
	if sub.CancelAt > 0 || sub.CancelAtPeriodEnd {
		return models.StatusCanceled
	}
	return sub.Status
}

// deriveEndDate picks the instant access should stop, in priority order:
// the explicit cancellation timestamp, the period end when cancellation is
// scheduled for period end, then the period end as final fallback.
func deriveEndDate(sub *billing.Subscription) *time.Time {
	if sub.CancelAt > 0 {
		return epochPtr(sub.CancelAt)
	}

	periodEnd := sub.CurrentPeriodEnd
	if periodEnd == 0 && len(sub.Items.Data) > 0 {
		periodEnd = sub.Items.Data[0].CurrentPeriodEnd
	}
	if periodEnd == 0 {
		return nil
	}
	return epochPtr(periodEnd)
}

// resolvePeriod prefers subscription-level period fields, falling back to the
// first item's period.
func resolvePeriod(sub *billing.Subscription) (start, end time.Time, ok bool) {
	periodStart := sub.CurrentPeriodStart
	periodEnd := sub.CurrentPeriodEnd
	if (periodStart == 0 || periodEnd == 0) && len(sub.Items.Data) > 0 {
		if periodStart == 0 {
			periodStart = sub.Items.Data[0].CurrentPeriodStart
		}
		if periodEnd == 0 {
			periodEnd = sub.Items.Data[0].CurrentPeriodEnd
		}
	}
	if periodStart == 0 || periodEnd == 0 {
		return time.Time{}, time.Time{}, false
	}
	return time.Unix(periodStart, 0).UTC(), time.Unix(periodEnd, 0).UTC(), true
}

func epochPtr(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}
