package memory

import (
	"context"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

var _ store.Tx = (*tx)(nil)

// tx runs with s.mu held for its whole lifetime.
type tx struct {
	s    *Store
	undo []func()
}

func (t *tx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return t.s.getWallet(userID)
}

func (t *tx) GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	return t.s.getLedgerEntry(id)
}

func (t *tx) ListLedgerEntries(ctx context.Context, f domain.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	return t.s.listLedgerEntries(f)
}

func (t *tx) ReplayLedger(ctx context.Context, userID int64) ([]*domain.LedgerEntry, error) {
	return t.s.replayLedger(userID), nil
}

func (t *tx) GetToolRule(ctx context.Context, toolIDOrSlug string) (*domain.ToolCostRule, error) {
	return t.s.getToolRule(toolIDOrSlug)
}

func (t *tx) GetMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error) {
	return t.s.usage[usageKey{userID, toolID, period}], nil
}

func (t *tx) GetCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return t.s.currentSubscription(userID)
}

func (t *tx) GetLatestSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return t.s.latestSubscription(userID)
}

func (t *tx) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return t.s.getPromo(code)
}

func (t *tx) ListAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	for i := len(t.s.audit) - 1; i >= 0; i-- {
		if t.s.audit[i].UserID == userID {
			c := *t.s.audit[i]
			out = append(out, &c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (t *tx) LockWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if _, ok := t.s.wallets[userID]; !ok {
		t.s.wallets[userID] = t.s.newWallet(userID)
		t.undo = append(t.undo, func() { delete(t.s.wallets, userID) })
	}
	return cloneWallet(t.s.wallets[userID]), nil
}

func (t *tx) UpdateWallet(ctx context.Context, w *domain.Wallet) error {
	prev, ok := t.s.wallets[w.UserID]
	if !ok {
		return domain.ErrNotFound
	}
	next := cloneWallet(w)
	next.UpdatedAt = t.s.now()
	t.s.wallets[w.UserID] = next
	t.undo = append(t.undo, func() { t.s.wallets[w.UserID] = prev })
	w.UpdatedAt = next.UpdatedAt
	return nil
}

func (t *tx) AppendLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	if e.ReversesEntryID != nil {
		if ok, _ := t.HasReversal(ctx, *e.ReversesEntryID); ok {
			return domain.ErrAlreadyReversed
		}
	}
	e.ID = int64(len(t.s.entries) + 1)
	e.CreatedAt = t.s.now()
	t.s.entries = append(t.s.entries, cloneEntry(e))
	n := len(t.s.entries) - 1
	t.undo = append(t.undo, func() { t.s.entries = t.s.entries[:n] })
	return nil
}

func (t *tx) ListOperationEntries(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for _, e := range t.s.entries {
		if e.OperationID == operationID {
			out = append(out, cloneEntry(e))
		}
	}
	return out, nil
}

func (t *tx) HasReversal(ctx context.Context, entryID int64) (bool, error) {
	for _, e := range t.s.entries {
		if e.ReversesEntryID != nil && *e.ReversesEntryID == entryID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) HasSourceEntry(ctx context.Context, userID int64, source domain.Source) (bool, error) {
	for _, e := range t.s.entries {
		if e.UserID == userID && e.Source == source {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) IncrementMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error) {
	k := usageKey{userID, toolID, period}
	prev, existed := t.s.usage[k]
	t.s.usage[k] = prev + 1
	t.undo = append(t.undo, func() {
		if existed {
			t.s.usage[k] = prev
		} else {
			delete(t.s.usage, k)
		}
	})
	return prev + 1, nil
}

func (t *tx) LockPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return t.s.getPromo(code)
}

func (t *tx) UpdatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	prev, ok := t.s.promos[p.Code]
	if !ok {
		return domain.ErrNotFound
	}
	t.s.promos[p.Code] = clonePromo(p)
	t.undo = append(t.undo, func() { t.s.promos[p.Code] = prev })
	return nil
}

func (t *tx) HasRedemption(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	_, ok := t.s.redemptions[redemptionKey{userID, promoCodeID}]
	return ok, nil
}

func (t *tx) CreateRedemption(ctx context.Context, r *domain.PromoRedemption) error {
	k := redemptionKey{r.UserID, r.PromoCodeID}
	if _, ok := t.s.redemptions[k]; ok {
		return domain.ErrAlreadyRedeemed
	}
	t.s.nextRedemptionID++
	r.ID = t.s.nextRedemptionID
	r.RedeemedAt = t.s.now()
	c := *r
	t.s.redemptions[k] = &c
	t.undo = append(t.undo, func() {
		delete(t.s.redemptions, k)
		t.s.nextRedemptionID--
	})
	return nil
}

func (t *tx) LockCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return t.s.currentSubscription(userID)
}

func (t *tx) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.Status == domain.SubscriptionActive || sub.Status == domain.SubscriptionCanceled {
		if t.s.currentSubscriptionRef(sub.UserID) != nil {
			return domain.ErrAlreadyExists
		}
	}
	now := t.s.now()
	sub.ID = int64(len(t.s.subs) + 1)
	sub.CreatedAt = now
	sub.UpdatedAt = now
	c := *sub
	t.s.subs = append(t.s.subs, &c)
	n := len(t.s.subs) - 1
	t.undo = append(t.undo, func() { t.s.subs = t.s.subs[:n] })
	return nil
}

func (t *tx) UpdateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID <= 0 || sub.ID > int64(len(t.s.subs)) {
		return domain.ErrNotFound
	}
	i := sub.ID - 1
	prev := t.s.subs[i]
	sub.UpdatedAt = t.s.now()
	c := *sub
	t.s.subs[i] = &c
	t.undo = append(t.undo, func() { t.s.subs[i] = prev })
	return nil
}
