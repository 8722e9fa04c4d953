package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/lib/jwt"
	"github.com/onirworld/legalassist/internal/lib/password"
	"github.com/onirworld/legalassist/internal/models"
	"github.com/onirworld/legalassist/internal/rabbitmq"
	"github.com/onirworld/legalassist/internal/storage/repository"
)

type UsersMock struct{ mock.Mock }

func (m *UsersMock) RegisterUser(ctx context.Context, user models.User) (int, error) {
	args := m.Called(ctx, user)
	return args.Int(0), args.Error(1)
}

func (m *UsersMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UsersMock) UpdateStripeCustomerID(ctx context.Context, userID int, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}

func (m *UsersMock) UpdatePasswordHash(ctx context.Context, email, passwordHash string) (int, error) {
	args := m.Called(ctx, email, passwordHash)
	return args.Int(0), args.Error(1)
}

type BillingMock struct{ mock.Mock }

func (m *BillingMock) CreateCustomer(ctx context.Context, email string, userID int) (*billing.Customer, error) {
	args := m.Called(ctx, email, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Customer), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(exchange, routingKey string, message any) error {
	return m.Called(exchange, routingKey, message).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newService(users *UsersMock, billingClient *BillingMock, publisher *PublisherMock) *Service {
	tokens := jwt.NewJWTMaker("session-secret", time.Hour)
	resetTokens := jwt.NewJWTMaker("reset-secret", time.Hour)
	return New(users, billingClient, publisher, tokens, resetTokens, "https://app.example.com", NewNoopLogger())
}

func TestRegister(t *testing.T) {
	users := new(UsersMock)
	billingClient := new(BillingMock)

	users.On("RegisterUser", mock.Anything, mock.MatchedBy(func(user models.User) bool {
		// stored credential must be a hash of the raw password
		return user.Email == "user@example.com" &&
			user.IsActive &&
			password.CompareHash(user.PasswordHash, "secret123") == nil
	})).Return(7, nil)
	billingClient.On("CreateCustomer", mock.Anything, "user@example.com", 7).
		Return(&billing.Customer{ID: "cus_123"}, nil)
	users.On("UpdateStripeCustomerID", mock.Anything, 7, "cus_123").Return(nil)

	service := newService(users, billingClient, new(PublisherMock))
	userID, err := service.Register(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
	users.AssertExpectations(t)
	billingClient.AssertExpectations(t)
}

func TestRegister_BillingOutageDoesNotBlock(t *testing.T) {
	users := new(UsersMock)
	billingClient := new(BillingMock)

	users.On("RegisterUser", mock.Anything, mock.Anything).Return(7, nil)
	billingClient.On("CreateCustomer", mock.Anything, "user@example.com", 7).
		Return(nil, errors.New("billing unavailable"))

	service := newService(users, billingClient, new(PublisherMock))
	userID, err := service.Register(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
	users.AssertNotCalled(t, "UpdateStripeCustomerID", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := new(UsersMock)
	billingClient := new(BillingMock)

	users.On("RegisterUser", mock.Anything, mock.Anything).
		Return(0, fmt.Errorf("storage.RegisterUser: %w", repository.ErrEmailTaken))

	service := newService(users, billingClient, new(PublisherMock))
	_, err := service.Register(context.Background(), "user@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)
	billingClient.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("secret123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(users *UsersMock)
		wantErr  error
	}{
		{
			name:     "successful login",
			email:    "user@example.com",
			password: "secret123",
			setup: func(users *UsersMock) {
				users.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(&models.User{ID: 7, Email: "user@example.com", PasswordHash: hash}, nil)
			},
		},
		{
			name:     "wrong password",
			email:    "user@example.com",
			password: "wrong",
			setup: func(users *UsersMock) {
				users.On("GetUserByEmail", mock.Anything, "user@example.com").
					Return(&models.User{ID: 7, Email: "user@example.com", PasswordHash: hash}, nil)
			},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "secret123",
			setup: func(users *UsersMock) {
				users.On("GetUserByEmail", mock.Anything, "nobody@example.com").
					Return(nil, errors.New("not found"))
			},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			tt.setup(users)

			service := newService(users, new(BillingMock), new(PublisherMock))
			token, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, token)

			claims, err := jwt.NewJWTMaker("session-secret", time.Hour).ParseToken(token)
			require.NoError(t, err)
			assert.Equal(t, "user@example.com", claims.Email)
			assert.Equal(t, 7, claims.UserID)
		})
	}
}

func TestRequestPasswordReset(t *testing.T) {
	users := new(UsersMock)
	publisher := new(PublisherMock)

	users.On("GetUserByEmail", mock.Anything, "user@example.com").
		Return(&models.User{ID: 7, Email: "user@example.com"}, nil)
	publisher.On("Publish", rabbitmq.MailExchange, rabbitmq.PasswordResetRoutingKey,
		mock.MatchedBy(func(message any) bool {
			task, ok := message.(ResetTask)
			return ok && task.Email == "user@example.com" &&
				len(task.ResetLink) > len("https://app.example.com/reset-password?token=")
		})).Return(nil)

	service := newService(users, new(BillingMock), publisher)
	err := service.RequestPasswordReset(context.Background(), "user@example.com")
	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestRequestPasswordReset_UnknownEmailStaysSilent(t *testing.T) {
	users := new(UsersMock)
	publisher := new(PublisherMock)
	users.On("GetUserByEmail", mock.Anything, "nobody@example.com").
		Return(nil, errors.New("not found"))

	service := newService(users, new(BillingMock), publisher)
	err := service.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmPasswordReset(t *testing.T) {
	resetTokens := jwt.NewJWTMaker("reset-secret", time.Hour)
	token, err := resetTokens.GenerateToken("user@example.com", 7)
	require.NoError(t, err)

	users := new(UsersMock)
	users.On("UpdatePasswordHash", mock.Anything, "user@example.com",
		mock.MatchedBy(func(hash string) bool {
			return password.CompareHash(hash, "newsecret") == nil
		})).Return(1, nil)

	service := newService(users, new(BillingMock), new(PublisherMock))
	err = service.ConfirmPasswordReset(context.Background(), token, "newsecret")
	require.NoError(t, err)
	users.AssertExpectations(t)
}

func TestConfirmPasswordReset_InvalidToken(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage token",
			token: func(_ *testing.T) string { return "not.a.token" },
		},
		{
			name: "token signed with the session secret",
			token: func(t *testing.T) string {
				token, err := jwt.NewJWTMaker("session-secret", time.Hour).GenerateToken("user@example.com", 7)
				require.NoError(t, err)
				return token
			},
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				token, err := jwt.NewJWTMaker("reset-secret", -time.Minute).GenerateToken("user@example.com", 7)
				require.NoError(t, err)
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			service := newService(users, new(BillingMock), new(PublisherMock))

			err := service.ConfirmPasswordReset(context.Background(), tt.token(t), "newsecret")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidResetToken)
			users.AssertNotCalled(t, "UpdatePasswordHash", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestConfirmPasswordReset_UserGone(t *testing.T) {
	resetTokens := jwt.NewJWTMaker("reset-secret", time.Hour)
	token, err := resetTokens.GenerateToken("gone@example.com", 9)
	require.NoError(t, err)

	users := new(UsersMock)
	users.On("UpdatePasswordHash", mock.Anything, "gone@example.com", mock.Anything).Return(0, nil)

	service := newService(users, new(BillingMock), new(PublisherMock))
	err = service.ConfirmPasswordReset(context.Background(), token, "newsecret")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}
