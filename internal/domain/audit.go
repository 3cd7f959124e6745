package domain

import "time"

// AuditLog records an operator-relevant action. It is a reporting aid;
// the ledger stays the source of truth for balances.
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit categories
const (
	AuditCategoryBalance      = "balance"
	AuditCategoryPromo        = "promo"
	AuditCategorySubscription = "subscription"
	AuditCategoryAdmin        = "admin"
)

// Audit actions
const (
	AuditActionAdminAdjust        = "admin_adjust"
	AuditActionReversal           = "reversal"
	AuditActionPromoRedeem        = "promo_redeem"
	AuditActionPromoCreate        = "promo_create"
	AuditActionSubscriptionCancel = "subscription_cancel"
	AuditActionSubscriptionExpire = "subscription_expire"
	AuditActionSubscriptionTrial  = "subscription_trial"
	AuditActionSubscriptionActive = "subscription_activate"
	AuditActionSignupBonus        = "signup_bonus"
)
