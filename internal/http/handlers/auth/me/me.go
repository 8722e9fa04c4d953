// Package me implements the HTTP handler returning the authenticated account.
package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/onirworld/legalassist/internal/http/middlewarectx"
	"github.com/onirworld/legalassist/internal/http/response"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
)

// Service describes the account lookup.
type Service interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// Handler handles GET /api/v1/auth/me.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Current account
// @Description Returns the profile of the authenticated user.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.me"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := r.Context().Value(middlewarectx.UserID).(int)
	if !ok || userID == 0 {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		log.Error("failed to load user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load account"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user_id":        user.ID,
		"email":          user.Email,
		"is_active":      user.IsActive,
		"questions_used": user.QuestionsUsed,
	}))
}
