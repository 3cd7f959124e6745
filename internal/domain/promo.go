package domain

import (
	"strings"
	"time"
)

type PromoType string

const (
	PromoBonusCredits PromoType = "bonus_credits"
	PromoProTrial     PromoType = "pro_trial"
	PromoDiscount     PromoType = "discount"
	PromoReferral     PromoType = "referral"
)

// MaxTrialDays caps a pro_trial code's value.
const MaxTrialDays = 3650

type PromoStatus string

const (
	PromoActive   PromoStatus = "active"
	PromoExpired  PromoStatus = "expired"
	PromoDisabled PromoStatus = "disabled"
)

// PromoCode is a one-time-per-user promotional code. MaxUses 0 means unlimited.
type PromoCode struct {
	ID        int64       `db:"id" json:"id"`
	Code      string      `db:"code" json:"code"`
	Type      PromoType   `db:"type" json:"type"`
	Value     int64       `db:"value" json:"value"`
	Status    PromoStatus `db:"status" json:"status"`
	MaxUses   int         `db:"max_uses" json:"max_uses"`
	UsedCount int         `db:"used_count" json:"used_count"`
	ExpiresAt *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// Exhausted reports whether the code has no uses left.
func (p *PromoCode) Exhausted() bool {
	return p.MaxUses > 0 && p.UsedCount >= p.MaxUses
}

// ExpiredAt reports whether the code's expiry has passed at t.
func (p *PromoCode) ExpiredAt(t time.Time) bool {
	return p.ExpiresAt != nil && t.After(*p.ExpiresAt)
}

// NormalizePromoCode canonicalizes user input for lookup.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoRedemption records that a user redeemed a code.
type PromoRedemption struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	PromoCodeID int64     `db:"promo_code_id" json:"promo_code_id"`
	RedeemedAt  time.Time `db:"redeemed_at" json:"redeemed_at"`
}

// RedemptionResult describes the effect a redemption applied.
type RedemptionResult struct {
	Code          string        `json:"code"`
	Type          PromoType     `json:"type"`
	Value         int64         `json:"value"`
	CreditsAdded  int64         `json:"credits_added,omitempty"`
	Balance       *Balance      `json:"balance,omitempty"`
	Subscription  *Subscription `json:"subscription,omitempty"`
	LedgerEntryID int64         `json:"ledger_entry_id,omitempty"`
}
