package models

import "time"

// ProcessedEvent is a write-once idempotency record for a billing provider
// event. Existence alone is the idempotency check.
type ProcessedEvent struct {
	ID        int
	EventID   string
	CreatedAt time.Time
}
