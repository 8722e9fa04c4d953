package repository

import (
	"context"
	"fmt"

	"github.com/onirworld/legalassist/internal/models"
)

// SaveChatRecord persists a question and its answer and returns the row ID.
func (s *Storage) SaveChatRecord(ctx context.Context, rec models.ChatRecord) (int, error) {
	const op = "storage.SaveChatRecord"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO chat_history (user_id, conversation_id, message, response,
			      language, country)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		rec.UserID, rec.ConversationID, rec.Message, rec.Response,
		rec.Language, rec.Country).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListChatRecords returns a user's history in chronological order, capped at
// limit rows. Pass an empty conversationID to list across conversations.
func (s *Storage) ListChatRecords(ctx context.Context, userID int, conversationID string, limit int) ([]*models.ChatRecord, error) {
	const op = "storage.ListChatRecords"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, conversation_id, message, response, language,
			      country, created_at
			  FROM chat_history
			  WHERE user_id = $1 AND ($2 = '' OR conversation_id = $2)
			  ORDER BY created_at ASC
			  LIMIT $3`
	rows, err := s.DB.QueryContext(ctx, query, userID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ChatRecord
	for rows.Next() {
		var rec models.ChatRecord
		if err = rows.Scan(&rec.ID, &rec.UserID, &rec.ConversationID, &rec.Message,
			&rec.Response, &rec.Language, &rec.Country, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteChatRecords clears a user's stored conversation and returns how many
// rows were removed.
func (s *Storage) DeleteChatRecords(ctx context.Context, userID int, conversationID string) (int, error) {
	const op = "storage.DeleteChatRecords"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM chat_history
			  WHERE user_id = $1 AND ($2 = '' OR conversation_id = $2)`
	result, err := s.DB.ExecContext(ctx, query, userID, conversationID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
