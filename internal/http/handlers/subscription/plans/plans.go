// Package plans implements the HTTP handler listing the purchasable plans.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/onirworld/legalassist/internal/http/response"
	"github.com/onirworld/legalassist/internal/services/subscription"
)

// Service describes the plan listing logic.
type Service interface {
	ListPlans(ctx context.Context) []subscription.Plan
}

// Handler handles GET /api/v1/subscription/plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans := h.service.ListPlans(r.Context())
	log.Info("plans listed", slog.Int("count", len(plans)))

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"plans": plans,
	}))
}
