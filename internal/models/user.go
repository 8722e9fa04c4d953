// Package models contains the domain structures shared between the business
// logic and the storage layer: users, subscriptions, processed billing events
// and chat history records.
package models

import "time"

// User represents a registered account. StripeCustomerID stays nil until the
// first billing interaction assigns one. QuestionsUsed counts metered chat
// questions taken while the account had no subscription access.
type User struct {
	ID               int
	Email            string
	PasswordHash     string
	IsActive         bool
	StripeCustomerID *string
	QuestionsUsed    int
	CreatedAt        time.Time
}

// TrialQuestionLimit is the number of chat questions an account may take
// without subscription access.
const TrialQuestionLimit = 20
