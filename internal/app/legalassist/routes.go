package legalassist

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/onirworld/legalassist/internal/http/handlers/auth/login"
	"github.com/onirworld/legalassist/internal/http/handlers/auth/me"
	"github.com/onirworld/legalassist/internal/http/handlers/auth/register"
	"github.com/onirworld/legalassist/internal/http/handlers/auth/resetconfirm"
	"github.com/onirworld/legalassist/internal/http/handlers/auth/resetrequest"
	"github.com/onirworld/legalassist/internal/http/handlers/billing/webhook"
	"github.com/onirworld/legalassist/internal/http/handlers/chat/ask"
	"github.com/onirworld/legalassist/internal/http/handlers/chat/clear"
	"github.com/onirworld/legalassist/internal/http/handlers/chat/history"
	"github.com/onirworld/legalassist/internal/http/handlers/health"
	"github.com/onirworld/legalassist/internal/http/handlers/subscription/cancel"
	"github.com/onirworld/legalassist/internal/http/handlers/subscription/checkout"
	"github.com/onirworld/legalassist/internal/http/handlers/subscription/plans"
	"github.com/onirworld/legalassist/internal/http/handlers/subscription/portal"
	"github.com/onirworld/legalassist/internal/http/handlers/subscription/status"
	"github.com/onirworld/legalassist/internal/http/middlewarectx"
	"github.com/onirworld/legalassist/internal/lib/jwt"
	accessservice "github.com/onirworld/legalassist/internal/services/access"
	authservice "github.com/onirworld/legalassist/internal/services/auth"
	chatservice "github.com/onirworld/legalassist/internal/services/chat"
	reconcilerservice "github.com/onirworld/legalassist/internal/services/reconciler"
	subscriptionservice "github.com/onirworld/legalassist/internal/services/subscription"
	"github.com/onirworld/legalassist/internal/storage/repository"
)

// Services groups the assembled services the router wires to handlers.
type Services struct {
	Auth         *authservice.Service
	Access       *accessservice.Service
	Chat         *chatservice.Service
	Subscription *subscriptionservice.Service
	Reconciler   *reconcilerservice.Service
	Users        *repository.Storage
	Tokens       jwt.Maker
}

// RegisterRoutes registers all routes of the API server.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s *Services, webhookSecret string) {
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	chatLimiter := rate.NewLimiter(5, 10)

	r.Route("/api/v1", func(r chi.Router) {
		// open endpoints
		r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/request-password-reset", resetrequest.New(logger, s.Auth).ServeHTTP)
		r.Post("/auth/reset-password", resetconfirm.New(logger, s.Auth).ServeHTTP)
		r.Get("/health", health.New(logger).ServeHTTP)

		// webhook endpoint, authenticated by signature instead of JWT
		r.Post("/billing/webhook", webhook.New(logger, s.Reconciler, webhookSecret).ServeHTTP)

		// group with JWT authentication
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Get("/auth/me", me.New(logger, s.Users).ServeHTTP)
			r.Post("/subscription/checkout-session", checkout.New(logger, s.Subscription).ServeHTTP)
			r.Get("/subscription/portal", portal.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/portal", portal.New(logger, s.Subscription).ServeHTTP)
			r.Get("/subscription/status", status.New(logger, s.Access).ServeHTTP)
			r.Get("/subscription/plans", plans.New(logger, s.Subscription).ServeHTTP)
			r.Post("/subscription/cancel", cancel.New(logger, s.Subscription).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimitMiddleware(chatLimiter, logger))
				r.Post("/chat", ask.New(logger, s.Chat).ServeHTTP)
				r.Get("/chat/history", history.New(logger, s.Chat).ServeHTTP)
				r.Post("/chat/clear", clear.New(logger, s.Chat).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
