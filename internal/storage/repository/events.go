package repository

import (
	"context"
	"fmt"
)

// MarkEventProcessed records a webhook event ID and reports whether this call
// claimed it. A false result means another delivery already holds the ID, so
// the caller must skip the event body. The insert is a single statement and
// stays correct under concurrent deliveries of the same event.
func (s *Storage) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	const op = "storage.MarkEventProcessed"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO processed_webhook_events (event_id)
			  VALUES ($1)
			  ON CONFLICT (event_id) DO NOTHING`
	result, err := s.DB.ExecContext(ctx, query, eventID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected > 0, nil
}
