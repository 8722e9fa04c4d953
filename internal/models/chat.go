package models

import "time"

// ChatRecord is one stored question/answer exchange.
type ChatRecord struct {
	ID             int
	UserID         int
	ConversationID string
	Message        string
	Response       string
	Language       string
	Country        string
	CreatedAt      time.Time
}

// ChatTurn is one item of in-flight conversation history, kept in the shared
// cache keyed by conversation id so it survives restarts and scales across
// instances.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
