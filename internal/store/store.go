// Package store defines the Ledger Store contract the credit engine is built
// against. Implementations must give Tx serializable semantics for the rows
// they lock: a locked wallet or promo code row is not readable for update by
// any other transaction until the holder commits or rolls back.
//
// Lookups that find nothing return domain.ErrNotFound. Lock contention,
// serialization failures and deadlocks surface as domain.ErrStorageConflict
// so callers can retry the whole transaction.
package store

import (
	"context"
	"time"

	"credit_engine/internal/domain"
)

// Reader is the read-only surface shared by Store and Tx.
type Reader interface {
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)

	GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error)
	// ListLedgerEntries returns matching entries newest first and the total match count.
	ListLedgerEntries(ctx context.Context, f domain.LedgerFilter) ([]*domain.LedgerEntry, int, error)
	// ReplayLedger returns all of a user's entries in creation order.
	ReplayLedger(ctx context.Context, userID int64) ([]*domain.LedgerEntry, error)

	// GetToolRule resolves a catalog record by tool id or slug.
	GetToolRule(ctx context.Context, toolIDOrSlug string) (*domain.ToolCostRule, error)
	// GetMonthlyUsage returns 0 when no counter exists for the period.
	GetMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error)

	// GetCurrentSubscription returns the user's active or canceled row, regardless of end date.
	GetCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error)
	GetLatestSubscription(ctx context.Context, userID int64) (*domain.Subscription, error)

	GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
	ListAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
}

// Tx is one atomic unit of work. Every write made through a Tx commits or
// rolls back together.
type Tx interface {
	Reader

	// LockWallet returns the user's wallet under an exclusive row lock,
	// creating a zero wallet first when none exists.
	LockWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	UpdateWallet(ctx context.Context, w *domain.Wallet) error

	// AppendLedgerEntry inserts e and fills in its ID and CreatedAt.
	AppendLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error
	ListOperationEntries(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error)
	HasReversal(ctx context.Context, entryID int64) (bool, error)
	HasSourceEntry(ctx context.Context, userID int64, source domain.Source) (bool, error)

	// IncrementMonthlyUsage adds one to the counter and returns the new count.
	IncrementMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error)

	LockPromoCode(ctx context.Context, code string) (*domain.PromoCode, error)
	UpdatePromoCode(ctx context.Context, p *domain.PromoCode) error
	HasRedemption(ctx context.Context, userID, promoCodeID int64) (bool, error)
	CreateRedemption(ctx context.Context, r *domain.PromoRedemption) error

	LockCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error)
	CreateSubscription(ctx context.Context, s *domain.Subscription) error
	UpdateSubscription(ctx context.Context, s *domain.Subscription) error
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// Store is the Ledger Store.
type Store interface {
	Reader

	// InTx runs fn in a transaction. A nil return commits; any error rolls
	// back and is returned unchanged.
	InTx(ctx context.Context, fn TxFunc) error

	// EnsureWallet returns the user's wallet, creating a zero wallet if absent.
	EnsureWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	// ExpireSubscriptions flips active and canceled rows whose end date is
	// before now to expired and returns how many changed.
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)

	UpsertToolRule(ctx context.Context, r *domain.ToolCostRule) error
	CreatePromoCode(ctx context.Context, p *domain.PromoCode) error
	CreateAuditLog(ctx context.Context, l *domain.AuditLog) error

	Ping(ctx context.Context) error
	Close()
}
