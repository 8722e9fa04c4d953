package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onirworld/legalassist/internal/models"
)

// ErrSubscriptionNotFound is returned when no row matches the external
// subscription reference.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// CreateSubscription inserts a new subscription row and returns its ID.
func (s *Storage) CreateSubscription(ctx context.Context, sub models.Subscription) (int, error) {
	const op = "storage.CreateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_id, stripe_subscription_id, plan_type,
			      status, start_date, end_date)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sub.UserID, sub.StripeSubscriptionID, sub.PlanType, sub.Status,
		sub.StartDate, sub.EndDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetSubscriptionByStripeID returns the local row for an external
// subscription reference, or ErrSubscriptionNotFound.
func (s *Storage) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*models.Subscription, error) {
	const op = "storage.GetSubscriptionByStripeID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, stripe_subscription_id, plan_type, status,
			      start_date, end_date, created_at
			  FROM subscriptions
			  WHERE stripe_subscription_id = $1`
	row := s.DB.QueryRowContext(ctx, query, stripeSubscriptionID)

	sub := &models.Subscription{}
	var endDate sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.StripeSubscriptionID, &sub.PlanType,
		&sub.Status, &sub.StartDate, &endDate, &sub.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return sub, nil
}

// UpdateSubscriptionStatus sets the status and end date of the row matching
// the external reference. Returns the number of affected rows.
func (s *Storage) UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID, status string, endDate *time.Time) (int, error) {
	const op = "storage.UpdateSubscriptionStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1, end_date = COALESCE($2, end_date)
			  WHERE stripe_subscription_id = $3`
	result, err := s.DB.ExecContext(ctx, query, status, endDate, stripeSubscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListSubscriptionsByUser returns all subscription rows for a user, newest
// start date first.
func (s *Storage) ListSubscriptionsByUser(ctx context.Context, userID int) ([]*models.Subscription, error) {
	const op = "storage.ListSubscriptionsByUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, stripe_subscription_id, plan_type, status,
			      start_date, end_date, created_at
			  FROM subscriptions
			  WHERE user_id = $1
			  ORDER BY start_date DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		var endDate sql.NullTime
		if err = rows.Scan(&sub.ID, &sub.UserID, &sub.StripeSubscriptionID, &sub.PlanType,
			&sub.Status, &sub.StartDate, &endDate, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			sub.EndDate = &endDate.Time
		}
		result = append(result, &sub)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
