// Package chat runs the question-answering flow: quota gate, retrieval,
// model call, and conversation persistence.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onirworld/legalassist/internal/lib/pool"
	"github.com/onirworld/legalassist/internal/lib/sl"
	"github.com/onirworld/legalassist/internal/models"
	"github.com/onirworld/legalassist/internal/retrieval"
)

const (
	// historyLimit caps how many stored rows a history read returns.
	historyLimit = 100
	// cachedTurns caps the conversation turns kept in the cache entry.
	cachedTurns = 10
	// historyTTL expires idle conversations from the cache.
	historyTTL = time.Hour
)

// AccessGate applies the subscription/trial gate before a question runs.
type AccessGate interface {
	RecordMeteredAction(ctx context.Context, userID int) error
}

// Retriever is the blocking retrieval pipeline, invoked inside the pool.
type Retriever interface {
	Search(ctx context.Context, query, language string) ([]retrieval.Document, error)
	Answer(ctx context.Context, question string, docs []retrieval.Document, history []models.ChatTurn, language string) (string, error)
}

// Repository defines the storage methods for conversation history.
type Repository interface {
	SaveChatRecord(ctx context.Context, rec models.ChatRecord) (int, error)
	ListChatRecords(ctx context.Context, userID int, conversationID string, limit int) ([]*models.ChatRecord, error)
	DeleteChatRecords(ctx context.Context, userID int, conversationID string) (int, error)
}

// Cache holds recent conversation turns keyed by conversation.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service wires the gate, the pipeline, the pool and persistence together.
type Service struct {
	gate      AccessGate
	retriever Retriever
	repo      Repository
	cache     Cache
	pool      *pool.Pool
	log       *slog.Logger
}

// New creates a chat service backed by a bounded worker pool.
func New(gate AccessGate, retriever Retriever, repo Repository, cache Cache, workers int, log *slog.Logger) *Service {
	return &Service{
		gate:      gate,
		retriever: retriever,
		repo:      repo,
		cache:     cache,
		pool:      pool.New(workers),
		log:       log,
	}
}

func historyKey(userID int, conversationID string) string {
	return fmt.Sprintf("conversation:%d:%s", userID, conversationID)
}

// Ask answers one question for a user. The quota gate runs first; the
// blocking retrieval and model calls run on the worker pool so they cannot
// stall other requests.
func (s *Service) Ask(ctx context.Context, userID int, conversationID, question, language, country string) (string, error) {
	const op = "chat.Ask"

	if err := s.gate.RecordMeteredAction(ctx, userID); err != nil {
		return "", err
	}

	history := s.loadHistory(ctx, userID, conversationID)

	var answer string
	err := s.pool.Do(ctx, func() error {
		docs, err := s.retriever.Search(ctx, question, language)
		if err != nil {
			// answer from history alone rather than failing the question
			s.log.Warn("document search failed, answering without context", sl.Err(err))
			docs = nil
		}
		answer, err = s.retriever.Answer(ctx, question, docs, history, language)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.SaveChatRecord(ctx, models.ChatRecord{
		UserID:         userID,
		ConversationID: conversationID,
		Message:        question,
		Response:       answer,
		Language:       language,
		Country:        country,
	}); err != nil {
		s.log.Error("failed to persist chat record",
			slog.Int("user_id", userID), sl.Err(err))
	}

	s.storeHistory(userID, conversationID, history, question, answer)
	return answer, nil
}

// History returns the stored conversation in chronological order.
func (s *Service) History(ctx context.Context, userID int, conversationID string) ([]*models.ChatRecord, error) {
	const op = "chat.History"

	records, err := s.repo.ListChatRecords(ctx, userID, conversationID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Clear removes a conversation from storage and drops its cache entry.
func (s *Service) Clear(ctx context.Context, userID int, conversationID string) (int, error) {
	const op = "chat.Clear"

	removed, err := s.repo.DeleteChatRecords(ctx, userID, conversationID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(historyKey(userID, conversationID)); err != nil {
		s.log.Warn("failed to invalidate conversation cache", sl.Err(err))
	}
	return removed, nil
}

// loadHistory prefers the cache and rebuilds the entry from storage on miss.
func (s *Service) loadHistory(ctx context.Context, userID int, conversationID string) []models.ChatTurn {
	var history []models.ChatTurn
	found, err := s.cache.Get(historyKey(userID, conversationID), &history)
	if err != nil {
		s.log.Warn("failed to read conversation cache", sl.Err(err))
	}
	if found {
		return history
	}

	records, err := s.repo.ListChatRecords(ctx, userID, conversationID, historyLimit)
	if err != nil {
		s.log.Warn("failed to load conversation history", sl.Err(err))
		return nil
	}
	for _, rec := range records {
		history = append(history,
			models.ChatTurn{Role: "user", Content: rec.Message},
			models.ChatTurn{Role: "assistant", Content: rec.Response})
	}
	return trimTurns(history)
}

func (s *Service) storeHistory(userID int, conversationID string, history []models.ChatTurn, question, answer string) {
	history = append(history,
		models.ChatTurn{Role: "user", Content: question},
		models.ChatTurn{Role: "assistant", Content: answer})
	history = trimTurns(history)

	if err := s.cache.Set(historyKey(userID, conversationID), history, historyTTL); err != nil {
		s.log.Warn("failed to cache conversation history", sl.Err(err))
	}
}

func trimTurns(history []models.ChatTurn) []models.ChatTurn {
	if len(history) > cachedTurns {
		return history[len(history)-cachedTurns:]
	}
	return history
}
