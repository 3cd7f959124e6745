package domain

import "time"

// CreditType identifies which balance bucket a ledger entry touches.
type CreditType string

const (
	CreditBonus     CreditType = "bonus"
	CreditPurchased CreditType = "purchased"
)

// Valid reports whether t is a known credit type.
func (t CreditType) Valid() bool {
	return t == CreditBonus || t == CreditPurchased
}

// Wallet holds a user's credit balances. One row per user, never deleted.
type Wallet struct {
	UserID                int64     `db:"user_id" json:"user_id"`
	BonusCredits          int64     `db:"bonus_credits" json:"bonus_credits"`
	PurchasedCredits      int64     `db:"purchased_credits" json:"purchased_credits"`
	TotalCreditsEarned    int64     `db:"total_credits_earned" json:"total_credits_earned"`
	TotalCreditsPurchased int64     `db:"total_credits_purchased" json:"total_credits_purchased"`
	TotalCreditsSpent     int64     `db:"total_credits_spent" json:"total_credits_spent"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// Available is the spendable total.
func (w *Wallet) Available() int64 {
	return w.BonusCredits + w.PurchasedCredits
}

// BalanceOf returns the balance held in the given bucket.
func (w *Wallet) BalanceOf(t CreditType) int64 {
	if t == CreditPurchased {
		return w.PurchasedCredits
	}
	return w.BonusCredits
}

// Balance returns the client-facing view of the wallet.
func (w *Wallet) Balance() Balance {
	return Balance{
		BonusCredits:     w.BonusCredits,
		PurchasedCredits: w.PurchasedCredits,
		AvailableCredits: w.Available(),
	}
}

// Balance is what getBalance returns
type Balance struct {
	BonusCredits     int64 `json:"bonus_credits"`
	PurchasedCredits int64 `json:"purchased_credits"`
	AvailableCredits int64 `json:"available_credits"`
}
