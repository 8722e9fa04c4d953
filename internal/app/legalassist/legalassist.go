// Package legalassist assembles the API server: storage, cache, billing,
// retrieval, the message queue and the HTTP router.
package legalassist

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/streadway/amqp"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/cache"
	"github.com/onirworld/legalassist/internal/config"
	"github.com/onirworld/legalassist/internal/lib/jwt"
	"github.com/onirworld/legalassist/internal/migrations"
	"github.com/onirworld/legalassist/internal/rabbitmq"
	"github.com/onirworld/legalassist/internal/retrieval"
	accessservice "github.com/onirworld/legalassist/internal/services/access"
	authservice "github.com/onirworld/legalassist/internal/services/auth"
	chatservice "github.com/onirworld/legalassist/internal/services/chat"
	reconcilerservice "github.com/onirworld/legalassist/internal/services/reconciler"
	subscriptionservice "github.com/onirworld/legalassist/internal/services/subscription"
	"github.com/onirworld/legalassist/internal/storage/repository"

	"github.com/go-chi/chi"
)

// App is the assembled API server.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	amqp   *amqp.Connection
}

// New builds the App from the config. Migrations run before the first
// request is accepted.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetMailQueues())
	if err != nil {
		conn.Close()
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	billingClient := billing.NewClient(cfg.Stripe.SecretKey)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	resetTokens := jwt.NewJWTMaker(cfg.ResetSecretKey, cfg.ResetTokenTTL)

	qdrant := retrieval.NewQdrantClient(cfg.Retrieval.QdrantURL, cfg.Retrieval.QdrantAPIKey)
	pipeline := retrieval.New(cfg.Retrieval, qdrant)

	authService := authservice.New(db, billingClient, publisher, tokens, resetTokens, cfg.FrontendURL, logger)
	accessService := accessservice.New(db, logger)
	chatService := chatservice.New(accessService, pipeline, db, cacheRedis, cfg.Retrieval.WorkerPoolSize, logger)
	subscriptionService := subscriptionservice.New(db, billingClient, cfg.Stripe, cfg.FrontendURL, logger)
	reconciler := reconcilerservice.New(db, billingClient, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, &Services{
		Auth:         authService,
		Access:       accessService,
		Chat:         chatService,
		Subscription: subscriptionService,
		Reconciler:   reconciler,
		Users:        db,
		Tokens:       tokens,
	}, cfg.Stripe.WebhookSecret)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		amqp:   conn,
	}, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		_ = a.amqp.Close()
		return err
	}
}
