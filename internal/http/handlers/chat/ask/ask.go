// Package ask implements the HTTP handler answering one legal question.
package ask

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/onirworld/legalassist/internal/http/middlewarectx"
	"github.com/onirworld/legalassist/internal/http/response"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/metrics"
	"github.com/onirworld/legalassist/internal/services/access"
)

// Request carries one chat question. ConversationID is assigned on the first
// question of a conversation and echoed back to the client.
type Request struct {
	Question       string `json:"question" validate:"required,max=4000"`
	ConversationID string `json:"conversation_id,omitempty"`
	Language       string `json:"language,omitempty"`
	Country        string `json:"country,omitempty"`
}

// Service describes the chat business logic.
type Service interface {
	Ask(ctx context.Context, userID int, conversationID, question, language, country string) (string, error)
}

// Handler handles POST /api/v1/chat.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates the handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Ask a legal question
// @Description Answers a question with retrieved legal context. Trial users
// @Description are limited by the free question quota.
// @Tags Chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body Request true "Question"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Question quota exceeded"
// @Failure 422 {object} response.ErrorResponse "Validation error"
// @Failure 500 {object} response.ErrorResponse "Server error"
// @Router /chat [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.chat.ask"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(int)
	if !ok || userID == 0 {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	if req.Language == "" {
		req.Language = "english"
	}

	start := time.Now()
	answer, err := h.service.Ask(r.Context(), userID, req.ConversationID, req.Question, req.Language, req.Country)
	metrics.ChatQuestionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, access.ErrQuotaExceeded) {
			log.Error("question quota exceeded", slog.Int("user_id", userID))
			metrics.ChatQuestionsTotal.WithLabelValues("quota_exceeded").Inc()
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("free question limit reached, subscription required"))
			return
		}
		log.Error("failed to answer question", sl.Err(err))
		metrics.ChatQuestionsTotal.WithLabelValues("error").Inc()
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to answer question"))
		return
	}

	metrics.ChatQuestionsTotal.WithLabelValues("answered").Inc()
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"answer":          answer,
		"conversation_id": req.ConversationID,
	}))
}
