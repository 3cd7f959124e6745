package domain

import "time"

// Direction is the accounting side of a ledger entry.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Source is the business reason for a balance mutation.
type Source string

const (
	SourceSignupBonus           Source = "signup_bonus"
	SourceAdminAdjustment       Source = "admin_adjustment"
	SourcePromoCode             Source = "promo_code"
	SourcePurchase              Source = "purchase"
	SourceToolUsage             Source = "tool_usage"
	SourceSubscriptionAllowance Source = "subscription_allowance"
	SourceReversal              Source = "reversal"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceSignupBonus, SourceAdminAdjustment, SourcePromoCode, SourcePurchase,
		SourceToolUsage, SourceSubscriptionAllowance, SourceReversal:
		return true
	}
	return false
}

// LedgerEntry is an immutable record of one balance change on one credit type.
// Entries written by the same wallet mutation share an OperationID.
type LedgerEntry struct {
	ID              int64                  `db:"id" json:"id"`
	UserID          int64                  `db:"user_id" json:"user_id"`
	OperationID     string                 `db:"operation_id" json:"operation_id"`
	Direction       Direction              `db:"direction" json:"direction"`
	Amount          int64                  `db:"amount" json:"amount"`
	CreditType      CreditType             `db:"credit_type" json:"credit_type"`
	BalanceBefore   int64                  `db:"balance_before" json:"balance_before"`
	BalanceAfter    int64                  `db:"balance_after" json:"balance_after"`
	Description     string                 `db:"description" json:"description"`
	Source          Source                 `db:"source" json:"source"`
	Metadata        map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
	ReversesEntryID *int64                 `db:"reverses_entry_id" json:"reverses_entry_id,omitempty"`
	CreatedAt       time.Time              `db:"created_at" json:"created_at"`
}

// Signed returns the amount with the sign of its direction.
func (e *LedgerEntry) Signed() int64 {
	if e.Direction == DirectionDebit {
		return -e.Amount
	}
	return e.Amount
}

// LedgerFilter narrows a history listing. Empty fields match everything.
type LedgerFilter struct {
	UserID    int64
	Direction Direction
	Source    Source
	Limit     int
	Offset    int
}

// LedgerPage is one page of history, newest first.
type LedgerPage struct {
	Items    []*LedgerEntry `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// Meta is the caller-supplied part of a mutation.
type Meta struct {
	Description string
	Source      Source
	Metadata    map[string]interface{}
}
