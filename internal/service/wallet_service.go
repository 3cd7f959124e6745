package service

import (
	"context"
	"math"
	"strconv"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

// BalanceNotifier is told about every committed wallet mutation.
type BalanceNotifier interface {
	NotifyBalance(userID int64, balance domain.Balance, entries []*domain.LedgerEntry)
}

// MutationResult is what a committed debit, credit or reversal produced.
type MutationResult struct {
	Entries []*domain.LedgerEntry `json:"entries"`
	Balance domain.Balance        `json:"balance"`
}

// EntryID returns the id of the first entry, the one callers reverse by.
func (r *MutationResult) EntryID() int64 {
	if r == nil || len(r.Entries) == 0 {
		return 0
	}
	return r.Entries[0].ID
}

// WalletService is the only writer of wallet balances. Every mutation locks
// the wallet row, writes the new balance and appends its ledger entries in
// one store transaction.
type WalletService struct {
	store          store.Store
	ledger         *LedgerService
	audit          *AuditService
	retry          RetryPolicy
	notifier       BalanceNotifier
	reversalPolicy domain.ReversalPolicy
	newOperationID func() string
}

// SetNotifier registers n to receive committed balance changes.
func (s *WalletService) SetNotifier(n BalanceNotifier) {
	s.notifier = n
}

// GetBalance returns the user's balance, creating an empty wallet if needed.
func (s *WalletService) GetBalance(ctx context.Context, userID int64) (domain.Balance, error) {
	w, err := s.store.EnsureWallet(ctx, userID)
	if err != nil {
		return domain.Balance{}, err
	}
	return w.Balance(), nil
}

// Wallet returns the full wallet row including lifetime counters.
func (s *WalletService) Wallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return s.store.EnsureWallet(ctx, userID)
}

// Debit spends amount, bonus credits first. Nothing is applied when the
// wallet holds less than amount.
func (s *WalletService) Debit(ctx context.Context, userID int64, amount int64, meta domain.Meta) (*MutationResult, error) {
	if meta.Source == "" {
		meta.Source = domain.SourceToolUsage
	}
	return s.mutate(ctx, "debit", userID, func(ctx context.Context, tx store.Tx) (*MutationResult, error) {
		return s.debitTx(ctx, tx, userID, amount, nil, meta)
	})
}

// Credit adds amount to one credit type.
func (s *WalletService) Credit(ctx context.Context, userID int64, amount int64, creditType domain.CreditType, meta domain.Meta) (*MutationResult, error) {
	if meta.Source == domain.SourceReversal {
		return nil, domain.ErrInvalidSource
	}
	return s.mutate(ctx, "credit", userID, func(ctx context.Context, tx store.Tx) (*MutationResult, error) {
		return s.creditTx(ctx, tx, userID, amount, creditType, meta)
	})
}

// Consume is a plain debit on behalf of a tool the caller already priced.
func (s *WalletService) Consume(ctx context.Context, userID int64, amount int64, description string) (*MutationResult, error) {
	return s.Debit(ctx, userID, amount, domain.Meta{
		Description: description,
		Source:      domain.SourceToolUsage,
	})
}

// Purchase books credits a payment provider already captured.
func (s *WalletService) Purchase(ctx context.Context, userID int64, amount int64, reference string) (*MutationResult, error) {
	return s.Credit(ctx, userID, amount, domain.CreditPurchased, domain.Meta{
		Description: "credit purchase",
		Source:      domain.SourcePurchase,
		Metadata:    map[string]interface{}{"reference": reference},
	})
}

// GrantSignupBonus credits the signup bonus once per user.
func (s *WalletService) GrantSignupBonus(ctx context.Context, userID int64, amount int64) (*MutationResult, error) {
	res, err := s.mutate(ctx, "signup_bonus", userID, func(ctx context.Context, tx store.Tx) (*MutationResult, error) {
		if _, err := tx.LockWallet(ctx, userID); err != nil {
			return nil, err
		}
		granted, err := tx.HasSourceEntry(ctx, userID, domain.SourceSignupBonus)
		if err != nil {
			return nil, err
		}
		if granted {
			return nil, domain.ErrAlreadyRedeemed
		}
		return s.creditTx(ctx, tx, userID, amount, domain.CreditBonus, domain.Meta{
			Description: "signup bonus",
			Source:      domain.SourceSignupBonus,
		})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, userID, domain.AuditActionSignupBonus, domain.AuditCategoryBalance, map[string]interface{}{
		"amount": amount,
	})
	return res, nil
}

// AdjustBalance is the admin path. Positive amounts credit creditType,
// negative amounts debit that credit type only.
func (s *WalletService) AdjustBalance(ctx context.Context, userID int64, amount int64, creditType domain.CreditType, reason string, adminID int64) (*MutationResult, error) {
	if amount == 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !creditType.Valid() {
		return nil, domain.ErrInvalidCreditType
	}

	meta := domain.Meta{
		Description: reason,
		Source:      domain.SourceAdminAdjustment,
		Metadata: map[string]interface{}{
			"admin_id": adminID,
			"reason":   reason,
		},
	}

	res, err := s.mutate(ctx, "adjust", userID, func(ctx context.Context, tx store.Tx) (*MutationResult, error) {
		if amount > 0 {
			return s.creditTx(ctx, tx, userID, amount, creditType, meta)
		}
		return s.debitTx(ctx, tx, userID, -amount, &creditType, meta)
	})
	if err != nil {
		return nil, err
	}

	s.audit.LogAdminAdjust(ctx, adminID, userID, amount, creditType, reason)
	return res, nil
}

// Reverse credits back every entry of the debit operation entryID belongs
// to, each to its own credit type. A debit can be reversed once.
func (s *WalletService) Reverse(ctx context.Context, entryID int64) (*MutationResult, error) {
	return s.reverse(ctx, 0, entryID)
}

// ReverseForUser is Reverse as the user may do it: only their own tool
// usage debits, and only where the reversal policy is auto. Other users'
// entries look like missing ones.
func (s *WalletService) ReverseForUser(ctx context.Context, userID, entryID int64) (*MutationResult, error) {
	if userID <= 0 {
		return nil, domain.ErrNotFound
	}
	return s.reverse(ctx, userID, entryID)
}

func (s *WalletService) reverse(ctx context.Context, owner, entryID int64) (*MutationResult, error) {
	var userID int64
	res, err := s.mutateAny(ctx, "reverse", func(ctx context.Context, tx store.Tx) (*MutationResult, error) {
		orig, err := tx.GetLedgerEntry(ctx, entryID)
		if err != nil {
			return nil, err
		}
		if owner != 0 && orig.UserID != owner {
			return nil, domain.ErrNotFound
		}
		if orig.Direction != domain.DirectionDebit || orig.Source == domain.SourceReversal {
			return nil, domain.ErrNotReversible
		}
		if owner != 0 && !s.userReversible(orig) {
			return nil, domain.ErrNotReversible
		}
		userID = orig.UserID

		w, err := tx.LockWallet(ctx, userID)
		if err != nil {
			return nil, err
		}

		ops, err := tx.ListOperationEntries(ctx, orig.OperationID)
		if err != nil {
			return nil, err
		}

		opID := s.newOperationID()
		res := &MutationResult{}
		for _, e := range ops {
			if e.Direction != domain.DirectionDebit {
				continue
			}
			reversed, err := tx.HasReversal(ctx, e.ID)
			if err != nil {
				return nil, err
			}
			if reversed {
				return nil, domain.ErrAlreadyReversed
			}

			if !canCredit(w, e.Amount) {
				return nil, domain.ErrInvalidAmount
			}
			before := w.BalanceOf(e.CreditType)
			applyDelta(w, e.CreditType, e.Amount)
			reverses := e.ID
			res.Entries = append(res.Entries, &domain.LedgerEntry{
				UserID:        userID,
				OperationID:   opID,
				Direction:     domain.DirectionCredit,
				Amount:        e.Amount,
				CreditType:    e.CreditType,
				BalanceBefore: before,
				BalanceAfter:  w.BalanceOf(e.CreditType),
				Description:   "reversal of entry " + strconv.FormatInt(e.ID, 10),
				Source:        domain.SourceReversal,
				Metadata: map[string]interface{}{
					"reversed_entry_id":     e.ID,
					"original_operation_id": e.OperationID,
				},
				ReversesEntryID: &reverses,
			})
		}
		if len(res.Entries) == 0 {
			return nil, domain.ErrNotReversible
		}

		if err := tx.UpdateWallet(ctx, w); err != nil {
			return nil, err
		}
		for _, e := range res.Entries {
			if err := s.ledger.Record(ctx, tx, e); err != nil {
				return nil, err
			}
		}
		res.Balance = w.Balance()
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(userID, res)
	s.audit.Log(ctx, userID, domain.AuditActionReversal, domain.AuditCategoryBalance, map[string]interface{}{
		"reversed_entry_id": entryID,
		"amount":            sumAmounts(res.Entries),
	})
	return res, nil
}

// userReversible reports whether the owner may undo e. Charges record the
// policy they were made under; other tool debits follow the engine default.
func (s *WalletService) userReversible(e *domain.LedgerEntry) bool {
	if e.Source != domain.SourceToolUsage {
		return false
	}
	policy := s.reversalPolicy
	if v, ok := e.Metadata["reversal_policy"].(string); ok && v != "" {
		policy = domain.ReversalPolicy(v)
	}
	return policy != domain.ReversalManual
}

// mutate runs body in a retried transaction and notifies on success.
func (s *WalletService) mutate(ctx context.Context, op string, userID int64, body func(context.Context, store.Tx) (*MutationResult, error)) (*MutationResult, error) {
	res, err := s.mutateAny(ctx, op, body)
	if err != nil {
		return nil, err
	}
	s.notify(userID, res)
	return res, nil
}

func (s *WalletService) mutateAny(ctx context.Context, op string, body func(context.Context, store.Tx) (*MutationResult, error)) (*MutationResult, error) {
	var res *MutationResult
	err := s.retry.do(ctx, op, func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			r, err := body(ctx, tx)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *WalletService) notify(userID int64, res *MutationResult) {
	if s.notifier == nil || res == nil {
		return
	}
	s.notifier.NotifyBalance(userID, res.Balance, res.Entries)
}

// debitTx spends amount inside tx. With only set the debit is restricted to
// that credit type; otherwise bonus credits go first, then purchased.
func (s *WalletService) debitTx(ctx context.Context, tx store.Tx, userID int64, amount int64, only *domain.CreditType, meta domain.Meta) (*MutationResult, error) {
	if amount <= 0 {
		debitsRejected.WithLabelValues("invalid_amount").Inc()
		return nil, domain.ErrInvalidAmount
	}
	if !meta.Source.Valid() || meta.Source == domain.SourceReversal {
		return nil, domain.ErrInvalidSource
	}

	w, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	order := []domain.CreditType{domain.CreditBonus, domain.CreditPurchased}
	if only != nil {
		order = []domain.CreditType{*only}
	}

	var available int64
	for _, t := range order {
		available += w.BalanceOf(t)
	}
	if available < amount {
		debitsRejected.WithLabelValues("insufficient_balance").Inc()
		return nil, domain.ErrInsufficientBalance
	}

	opID := s.newOperationID()
	res := &MutationResult{}
	remaining := amount
	for _, t := range order {
		if remaining == 0 {
			break
		}
		part := min(remaining, w.BalanceOf(t))
		if part == 0 {
			continue
		}
		before := w.BalanceOf(t)
		applyDelta(w, t, -part)
		remaining -= part
		res.Entries = append(res.Entries, &domain.LedgerEntry{
			UserID:        userID,
			OperationID:   opID,
			Direction:     domain.DirectionDebit,
			Amount:        part,
			CreditType:    t,
			BalanceBefore: before,
			BalanceAfter:  w.BalanceOf(t),
			Description:   meta.Description,
			Source:        meta.Source,
			Metadata:      copyMetadata(meta.Metadata),
		})
	}
	w.TotalCreditsSpent += amount

	if err := tx.UpdateWallet(ctx, w); err != nil {
		return nil, err
	}
	for _, e := range res.Entries {
		if err := s.ledger.Record(ctx, tx, e); err != nil {
			return nil, err
		}
	}
	res.Balance = w.Balance()
	return res, nil
}

// creditTx adds amount to creditType inside tx.
func (s *WalletService) creditTx(ctx context.Context, tx store.Tx, userID int64, amount int64, creditType domain.CreditType, meta domain.Meta) (*MutationResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !creditType.Valid() {
		return nil, domain.ErrInvalidCreditType
	}
	if !meta.Source.Valid() || meta.Source == domain.SourceReversal {
		return nil, domain.ErrInvalidSource
	}

	w, err := tx.LockWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	lifetime := w.TotalCreditsPurchased
	if creditType == domain.CreditBonus {
		lifetime = w.TotalCreditsEarned
	}
	if !canCredit(w, amount) || lifetime > math.MaxInt64-amount {
		return nil, domain.ErrInvalidAmount
	}

	before := w.BalanceOf(creditType)
	applyDelta(w, creditType, amount)
	if creditType == domain.CreditBonus {
		w.TotalCreditsEarned += amount
	} else {
		w.TotalCreditsPurchased += amount
	}

	e := &domain.LedgerEntry{
		UserID:        userID,
		OperationID:   s.newOperationID(),
		Direction:     domain.DirectionCredit,
		Amount:        amount,
		CreditType:    creditType,
		BalanceBefore: before,
		BalanceAfter:  w.BalanceOf(creditType),
		Description:   meta.Description,
		Source:        meta.Source,
		Metadata:      copyMetadata(meta.Metadata),
	}

	if err := tx.UpdateWallet(ctx, w); err != nil {
		return nil, err
	}
	if err := s.ledger.Record(ctx, tx, e); err != nil {
		return nil, err
	}
	return &MutationResult{Entries: []*domain.LedgerEntry{e}, Balance: w.Balance()}, nil
}

// canCredit reports whether amount more credits still fit in the wallet.
// Available is the sum of both buckets, so it bounds each of them.
func canCredit(w *domain.Wallet, amount int64) bool {
	return amount > 0 && w.BonusCredits >= 0 && w.PurchasedCredits >= 0 &&
		w.Available() <= math.MaxInt64-amount
}

func applyDelta(w *domain.Wallet, t domain.CreditType, delta int64) {
	if t == domain.CreditPurchased {
		w.PurchasedCredits += delta
	} else {
		w.BonusCredits += delta
	}
}

func copyMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sumAmounts(entries []*domain.LedgerEntry) int64 {
	var n int64
	for _, e := range entries {
		n += e.Amount
	}
	return n
}
