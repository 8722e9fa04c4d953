package models

import "time"

// Subscription status values the reconciler writes locally. Other provider
// statuses are mirrored verbatim but do not grant access.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"
	// StatusNone is reported when a user has no subscription rows at all.
	StatusNone = "none"
)

// Subscription mirrors one provider subscription's known state. Only the
// reconciler writes Status and EndDate. A canceled row with EndDate in the
// future still grants access until that instant.
type Subscription struct {
	ID                   int
	UserID               int
	StripeSubscriptionID string
	PlanType             string
	Status               string
	StartDate            time.Time
	EndDate              *time.Time
	CreatedAt            time.Time
}

// GrantsAccess reports whether this row grants access at the given instant.
// Active rows grant access regardless of EndDate; canceled rows grant access
// while EndDate is strictly in the future.
func (s *Subscription) GrantsAccess(now time.Time) bool {
	if s.Status == StatusActive {
		return true
	}
	return s.Status == StatusCanceled && s.EndDate != nil && s.EndDate.After(now)
}

// AccessStatus is the subscription state reported to callers of the access
// decision function.
type AccessStatus struct {
	HasAccess bool       `json:"has_subscription"`
	PlanType  string     `json:"plan_type,omitempty"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}
