package domain

import "time"

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

// TrialPlanID is the plan assigned to subscriptions created from promo trials.
const TrialPlanID = "pro_trial"

// Subscription is a user's Pro subscription. At most one row per user is
// active or canceled at any time.
type Subscription struct {
	ID        int64              `db:"id" json:"id"`
	UserID    int64              `db:"user_id" json:"user_id"`
	PlanID    string             `db:"plan_id" json:"plan_id"`
	Status    SubscriptionStatus `db:"status" json:"status"`
	StartDate time.Time          `db:"start_date" json:"start_date"`
	EndDate   time.Time          `db:"end_date" json:"end_date"`
	IsTrial   bool               `db:"is_trial" json:"is_trial"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// UsableAt reports whether the subscription grants Pro benefits at t.
// A canceled subscription stays usable until its end date.
func (s *Subscription) UsableAt(t time.Time) bool {
	if s == nil {
		return false
	}
	if s.Status != SubscriptionActive && s.Status != SubscriptionCanceled {
		return false
	}
	return !s.EndDate.Before(t)
}

// SubscriptionStatusView is returned by the status endpoint.
type SubscriptionStatusView struct {
	IsPro         bool          `json:"is_pro"`
	Subscription  *Subscription `json:"subscription,omitempty"`
	DaysRemaining int           `json:"days_remaining"`
}
