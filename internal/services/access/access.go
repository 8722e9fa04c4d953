// Package access decides whether a user currently has subscription-granted
// access and enforces the trial quota for metered actions.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onirworld/legalassist/internal/models"
)

// ErrQuotaExceeded is the user-facing denial for a trial user out of questions.
var ErrQuotaExceeded = errors.New("trial question quota exceeded")

// Repository defines the storage methods the access service reads and writes.
type Repository interface {
	// ListSubscriptionsByUser returns all subscription rows, newest start first.
	ListSubscriptionsByUser(ctx context.Context, userID int) ([]*models.Subscription, error)
	// GetUser returns a user by local ID.
	GetUser(ctx context.Context, id int) (*models.User, error)
	// IncrementQuestionsUsed bumps the trial counter and returns the new value.
	IncrementQuestionsUsed(ctx context.Context, userID int) (int, error)
}

// Service is the access decision function plus the trial gate.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New creates an access service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ComputeAccess selects the single subscription that represents the user's
// state and reports whether it grants access right now.
func (s *Service) ComputeAccess(ctx context.Context, userID int) (*models.AccessStatus, error) {
	const op = "access.ComputeAccess"

	subs, err := s.repo.ListSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	selected := selectSubscription(subs, now)
	if selected == nil {
		return &models.AccessStatus{HasAccess: false, Status: models.StatusNone}, nil
	}

	status := &models.AccessStatus{
		HasAccess: selected.GrantsAccess(now),
		PlanType:  selected.PlanType,
		Status:    selected.Status,
		StartDate: &selected.StartDate,
		EndDate:   selected.EndDate,
	}
	return status, nil
}

// RecordMeteredAction applies the trial gate for one question. Users with
// subscription access pass without touching the counter. Trial users get one
// increment per allowed question until the quota runs out.
//
// The check and the increment are not wrapped in a transaction; two
// concurrent questions from the same user may both pass the gate. That
// over-admission is accepted.
func (s *Service) RecordMeteredAction(ctx context.Context, userID int) error {
	const op = "access.RecordMeteredAction"

	status, err := s.ComputeAccess(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status.HasAccess {
		return nil
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.QuestionsUsed >= models.TrialQuestionLimit {
		return ErrQuotaExceeded
	}

	used, err := s.repo.IncrementQuestionsUsed(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("trial question recorded",
		slog.Int("user_id", userID),
		slog.Int("questions_used", used))
	return nil
}

// selectSubscription picks one row deterministically: an active row with the
// most recent start wins; otherwise the canceled row whose future end date is
// latest; otherwise the row with the latest start regardless of status.
func selectSubscription(subs []*models.Subscription, now time.Time) *models.Subscription {
	if len(subs) == 0 {
		return nil
	}

	var active *models.Subscription
	for _, sub := range subs {
		if sub.Status != models.StatusActive {
			continue
		}
		if active == nil || sub.StartDate.After(active.StartDate) {
			active = sub
		}
	}
	if active != nil {
		return active
	}

	var graced *models.Subscription
	for _, sub := range subs {
		if sub.Status != models.StatusCanceled || sub.EndDate == nil || !sub.EndDate.After(now) {
			continue
		}
		if graced == nil || sub.EndDate.After(*graced.EndDate) {
			graced = sub
		}
	}
	if graced != nil {
		return graced
	}

	latest := subs[0]
	for _, sub := range subs[1:] {
		if sub.StartDate.After(latest.StartDate) {
			latest = sub
		}
	}
	return latest
}
