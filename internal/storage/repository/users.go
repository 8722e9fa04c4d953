package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/onirworld/legalassist/internal/models"
)

// ErrEmailTaken is returned when the email already has an account.
var ErrEmailTaken = errors.New("email already registered")

// RegisterUser stores a new user and returns its ID. A unique violation on
// the email column maps to ErrEmailTaken.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (int, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newID int
	query := `INSERT INTO users (email, password_hash, is_active, stripe_customer_id)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id;`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.PasswordHash, user.IsActive, user.StripeCustomerID).Scan(&newID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetUserByEmail returns a user by email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, is_active, stripe_customer_id,
			      questions_used, created_at
			  FROM users
			  WHERE email = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, email), op)
}

// GetUser returns a user by id.
func (s *Storage) GetUser(ctx context.Context, id int) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, is_active, stripe_customer_id,
			      questions_used, created_at
			  FROM users
			  WHERE id = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, id), op)
}

// GetUserByStripeCustomerID returns the user owning the given billing
// customer reference.
func (s *Storage) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	const op = "storage.GetUserByStripeCustomerID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, email, password_hash, is_active, stripe_customer_id,
			      questions_used, created_at
			  FROM users
			  WHERE stripe_customer_id = $1`
	return s.scanUser(s.DB.QueryRowContext(ctx, query, customerID), op)
}

func (s *Storage) scanUser(row *sql.Row, op string) (*models.User, error) {
	u := &models.User{}
	var customerID sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive,
		&customerID, &u.QuestionsUsed, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if customerID.Valid {
		u.StripeCustomerID = &customerID.String
	}
	return u, nil
}

// UpdateStripeCustomerID persists the billing customer reference for a user.
func (s *Storage) UpdateStripeCustomerID(ctx context.Context, userID int, customerID string) error {
	const op = "storage.UpdateStripeCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET stripe_customer_id = $1
			  WHERE id = $2`
	_, err := s.DB.ExecContext(ctx, query, customerID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash for the given email.
// Returns the number of affected rows.
func (s *Storage) UpdatePasswordHash(ctx context.Context, email, passwordHash string) (int, error) {
	const op = "storage.UpdatePasswordHash"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET password_hash = $1
			  WHERE email = $2`
	result, err := s.DB.ExecContext(ctx, query, passwordHash, email)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// IncrementQuestionsUsed adds one to the trial usage counter and returns the
// new value. The increment and read are a single statement; two concurrent
// callers may both pass the quota check before either commits, which is an
// accepted over-admission.
func (s *Storage) IncrementQuestionsUsed(ctx context.Context, userID int) (int, error) {
	const op = "storage.IncrementQuestionsUsed"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET questions_used = questions_used + 1
			  WHERE id = $1
			  RETURNING questions_used`
	var used int
	if err := s.DB.QueryRowContext(ctx, query, userID).Scan(&used); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return used, nil
}
