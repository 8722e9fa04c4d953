// Package clear implements the HTTP handler deleting conversation history.
package clear

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/onirworld/legalassist/internal/http/middlewarectx"
	"github.com/onirworld/legalassist/internal/http/response"
	"github.com/onirworld/legalassist/internal/lib/sl"
)

// Request optionally limits the deletion to one conversation. An empty body
// or empty conversation_id removes the user's whole history.
type Request struct {
	ConversationID string `json:"conversation_id,omitempty"`
}

// Service describes the history deletion.
type Service interface {
	Clear(ctx context.Context, userID int, conversationID string) (int, error)
}

// Handler handles POST /api/v1/chat/clear.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.clear"
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

	var req Request
	if r.Body != nil {
		// body is optional
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	removed, err := h.service.Clear(r.Context(), userID, req.ConversationID)
	if err != nil {
		log.Error("failed to clear history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to clear history"))
		return
	}

	log.Info("history cleared", slog.Int("user_id", userID), slog.Int("removed", removed))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"removed": removed,
	}))
}
