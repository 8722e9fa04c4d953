// Package auth implements registration, login and password reset for local
// accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/lib/jwt"
	"github.com/onirworld/legalassist/internal/lib/password"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
	"github.com/onirworld/legalassist/internal/rabbitmq"
	"github.com/onirworld/legalassist/internal/storage/repository"
)

var (
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when the email already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidResetToken is returned for expired or malformed reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// UserRepository defines the storage methods the auth service depends on.
type UserRepository interface {
	RegisterUser(ctx context.Context, user models.User) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateStripeCustomerID(ctx context.Context, userID int, customerID string) error
	UpdatePasswordHash(ctx context.Context, email, passwordHash string) (int, error)
}

// CustomerCreator registers a billing customer for a new account.
type CustomerCreator interface {
	CreateCustomer(ctx context.Context, email string, userID int) (*billing.Customer, error)
}

// TaskPublisher queues a mail task for the notification sender.
type TaskPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// ResetTask is the message queued for a password reset email.
type ResetTask struct {
	Email     string `json:"email"`
	ResetLink string `json:"reset_link"`
}

// Service implements account management.
type Service struct {
	users       UserRepository
	billing     CustomerCreator
	publisher   TaskPublisher
	tokens      jwt.Maker
	resetTokens jwt.Maker
	frontendURL string
	log         *slog.Logger
}

// New creates an auth service. tokens signs session tokens; resetTokens signs
// the short-lived tokens embedded in password reset links.
func New(users UserRepository, billingClient CustomerCreator, publisher TaskPublisher,
	tokens, resetTokens jwt.Maker, frontendURL string, log *slog.Logger) *Service {
	return &Service{
		users:       users,
		billing:     billingClient,
		publisher:   publisher,
		tokens:      tokens,
		resetTokens: resetTokens,
		frontendURL: frontendURL,
		log:         log,
	}
}

// Register creates an account with a hashed password and links it to a new
// billing customer. The customer link is best effort: a billing outage must
// not block registration, the link is retried on first checkout.
func (s *Service) Register(ctx context.Context, email, rawPassword string) (int, error) {
	const op = "auth.Register"

	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := s.users.RegisterUser(ctx, models.User{
		Email:        email,
		PasswordHash: hashed,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	customer, err := s.billing.CreateCustomer(ctx, email, userID)
	if err != nil {
		s.log.Warn("failed to create billing customer on registration",
			slog.Int("user_id", userID), sl.Err(err))
		return userID, nil
	}
	if err := s.users.UpdateStripeCustomerID(ctx, userID, customer.ID); err != nil {
		s.log.Error("failed to store billing customer reference",
			slog.Int("user_id", userID), sl.Err(err))
	}
	return userID, nil
}

// Login verifies the password and issues a session token.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (string, error) {
	const op = "auth.Login"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.Email, user.ID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// RequestPasswordReset queues a reset email for the account. It reports
// success for unknown emails too, so the endpoint does not leak which
// addresses have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "auth.RequestPasswordReset"

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		s.log.Info("password reset requested for unknown email")
		return nil
	}

	token, err := s.resetTokens.GenerateToken(user.Email, user.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	task := ResetTask{
		Email:     user.Email,
		ResetLink: s.frontendURL + "/reset-password?token=" + token,
	}
	if err := s.publisher.Publish(rabbitmq.MailExchange, rabbitmq.PasswordResetRoutingKey, task); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("password reset email queued", slog.Int("user_id", user.ID))
	return nil
}

// ConfirmPasswordReset validates a reset token and replaces the password.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "auth.ConfirmPasswordReset"

	claims, err := s.resetTokens.ParseToken(token)
	if err != nil {
		return ErrInvalidResetToken
	}

	hashed, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	updated, err := s.users.UpdatePasswordHash(ctx, claims.Email, hashed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if updated == 0 {
		return ErrInvalidResetToken
	}

	s.log.Info("password reset completed", slog.Int("user_id", claims.UserID))
	return nil
}
