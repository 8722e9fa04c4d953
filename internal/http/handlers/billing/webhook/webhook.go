// Package webhook implements the HTTP handler receiving billing provider
// events. The signature is verified before anything else; once it passes
// the handler always answers 200 so the provider does not retry events
// that failed locally.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onirworld/legalassist/internal/billing"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/metrics"
	"github.com/onirworld/legalassist/internal/services/reconciler"
)

// maxBodyBytes bounds the webhook payload size.
const maxBodyBytes = 65536

// Service reconciles one verified provider event.
type Service interface {
	ProcessEvent(ctx context.Context, event *billing.Event) reconciler.Outcome
}

// Handler handles POST /api/v1/billing/webhook.
type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

// New creates the handler.
func New(log *slog.Logger, service Service, secret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: secret,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"
	log := h.log.With(slog.String("op", op))

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	event, err := billing.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.webhookSecret, time.Now())
	if err != nil {
		log.Error("webhook signature verification failed", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	outcome := h.service.ProcessEvent(r.Context(), event)
	metrics.WebhookEventsTotal.WithLabelValues(event.Type, string(outcome)).Inc()

	log.Info("webhook event handled",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.Type),
		slog.String("outcome", string(outcome)))
	w.WriteHeader(http.StatusOK)
}
