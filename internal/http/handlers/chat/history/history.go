// Package history implements the HTTP handler returning stored conversation
// history.
package history

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/onirworld/legalassist/internal/http/middlewarectx"
	"github.com/onirworld/legalassist/internal/http/response"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
)

// Service describes the history lookup.
type Service interface {
	History(ctx context.Context, userID int, conversationID string) ([]*models.ChatRecord, error)
}

// Handler handles GET /api/v1/chat/history.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// entry is one history row as returned to the client.
type entry struct {
	ConversationID string    `json:"conversation_id"`
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	Language       string    `json:"language,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.history"
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

	conversationID := r.URL.Query().Get("conversation_id")

	records, err := h.service.History(r.Context(), userID, conversationID)
	if err != nil {
		log.Error("failed to load history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to load history"))
		return
	}

	entries := make([]entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, entry{
			ConversationID: rec.ConversationID,
			Message:        rec.Message,
			Response:       rec.Response,
			Language:       rec.Language,
			CreatedAt:      rec.CreatedAt,
		})
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"history": entries,
	}))
}
