// Package memory is an in-process Ledger Store. Transactions are fully
// serialized behind one mutex and rolled back through an undo log, which
// gives the same isolation the PostgreSQL store gets from row locks.
// State does not survive a restart; use it for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

var _ store.Store = (*Store)(nil)

type usageKey struct {
	userID int64
	toolID string
	period string
}

type redemptionKey struct {
	userID  int64
	promoID int64
}

// Store keeps every table in maps guarded by mu.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	wallets     map[int64]*domain.Wallet
	entries     []*domain.LedgerEntry
	tools       map[string]*domain.ToolCostRule
	usage       map[usageKey]int
	subs        []*domain.Subscription
	promos      map[string]*domain.PromoCode
	redemptions map[redemptionKey]*domain.PromoRedemption
	audit       []*domain.AuditLog

	nextPromoID      int64
	nextRedemptionID int64

	conflicts int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		wallets:     make(map[int64]*domain.Wallet),
		tools:       make(map[string]*domain.ToolCostRule),
		usage:       make(map[usageKey]int),
		promos:      make(map[string]*domain.PromoCode),
		redemptions: make(map[redemptionKey]*domain.PromoRedemption),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InjectConflicts makes the next n transactions fail with
// domain.ErrStorageConflict before running their body.
func (s *Store) InjectConflicts(n int) {
	s.mu.Lock()
	s.conflicts = n
	s.mu.Unlock()
}

func (s *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return domain.ErrStorageConflict
	}

	t := &tx{s: s}
	if err := fn(ctx, t); err != nil {
		t.rollback()
		return err
	}
	return nil
}

func (s *Store) EnsureWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[userID]
	if !ok {
		w = s.newWallet(userID)
		s.wallets[userID] = w
	}
	return cloneWallet(w), nil
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sub := range s.subs {
		if (sub.Status == domain.SubscriptionActive || sub.Status == domain.SubscriptionCanceled) && sub.EndDate.Before(now) {
			sub.Status = domain.SubscriptionExpired
			sub.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *Store) UpsertToolRule(ctx context.Context, r *domain.ToolCostRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *r
	s.tools[r.ToolID] = &c
	return nil
}

func (s *Store) CreatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := domain.NormalizePromoCode(p.Code)
	if _, ok := s.promos[code]; ok {
		return domain.ErrAlreadyExists
	}
	s.nextPromoID++
	p.ID = s.nextPromoID
	p.Code = code
	p.CreatedAt = s.now()
	s.promos[code] = clonePromo(p)
	return nil
}

func (s *Store) CreateAuditLog(ctx context.Context, l *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = int64(len(s.audit) + 1)
	l.CreatedAt = s.now()
	c := *l
	s.audit = append(s.audit, &c)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() {}

// Reader methods on the store take the lock; the same reads inside a
// transaction go through tx, which already holds it.

func (s *Store) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getWallet(userID)
}

func (s *Store) GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLedgerEntry(id)
}

func (s *Store) ListLedgerEntries(ctx context.Context, f domain.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLedgerEntries(f)
}

func (s *Store) ReplayLedger(ctx context.Context, userID int64) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replayLedger(userID), nil
}

func (s *Store) GetToolRule(ctx context.Context, toolIDOrSlug string) (*domain.ToolCostRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getToolRule(toolIDOrSlug)
}

func (s *Store) GetMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[usageKey{userID, toolID, period}], nil
}

func (s *Store) GetCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSubscription(userID)
}

func (s *Store) GetLatestSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestSubscription(userID)
}

func (s *Store) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getPromo(code)
}

func (s *Store) ListAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].UserID != userID {
			continue
		}
		c := *s.audit[i]
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// unlocked helpers, callers hold mu

func (s *Store) newWallet(userID int64) *domain.Wallet {
	now := s.now()
	return &domain.Wallet{UserID: userID, CreatedAt: now, UpdatedAt: now}
}

func (s *Store) getWallet(userID int64) (*domain.Wallet, error) {
	w, ok := s.wallets[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneWallet(w), nil
}

func (s *Store) getLedgerEntry(id int64) (*domain.LedgerEntry, error) {
	if id <= 0 || id > int64(len(s.entries)) {
		return nil, domain.ErrNotFound
	}
	return cloneEntry(s.entries[id-1]), nil
}

func (s *Store) listLedgerEntries(f domain.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	if f.Offset < 0 || f.Limit < 0 {
		return nil, 0, domain.ErrInvalidFilter
	}

	var matched []*domain.LedgerEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if e.UserID != f.UserID {
			continue
		}
		if f.Direction != "" && e.Direction != f.Direction {
			continue
		}
		if f.Source != "" && e.Source != f.Source {
			continue
		}
		matched = append(matched, e)
	}

	total := len(matched)
	if f.Offset >= total {
		return []*domain.LedgerEntry{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}

	out := make([]*domain.LedgerEntry, 0, len(matched))
	for _, e := range matched {
		out = append(out, cloneEntry(e))
	}
	return out, total, nil
}

func (s *Store) replayLedger(userID int64) []*domain.LedgerEntry {
	var out []*domain.LedgerEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

func (s *Store) getToolRule(key string) (*domain.ToolCostRule, error) {
	if r, ok := s.tools[key]; ok {
		c := *r
		return &c, nil
	}
	// deterministic slug match
	ids := make([]string, 0, len(s.tools))
	for id := range s.tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if s.tools[id].Slug == key {
			c := *s.tools[id]
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) currentSubscriptionRef(userID int64) *domain.Subscription {
	for _, sub := range s.subs {
		if sub.UserID == userID && (sub.Status == domain.SubscriptionActive || sub.Status == domain.SubscriptionCanceled) {
			return sub
		}
	}
	return nil
}

func (s *Store) currentSubscription(userID int64) (*domain.Subscription, error) {
	sub := s.currentSubscriptionRef(userID)
	if sub == nil {
		return nil, domain.ErrNotFound
	}
	c := *sub
	return &c, nil
}

func (s *Store) latestSubscription(userID int64) (*domain.Subscription, error) {
	for i := len(s.subs) - 1; i >= 0; i-- {
		if s.subs[i].UserID == userID {
			c := *s.subs[i]
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) getPromo(code string) (*domain.PromoCode, error) {
	p, ok := s.promos[domain.NormalizePromoCode(code)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePromo(p), nil
}

func cloneWallet(w *domain.Wallet) *domain.Wallet {
	c := *w
	return &c
}

func cloneEntry(e *domain.LedgerEntry) *domain.LedgerEntry {
	c := *e
	if e.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	if e.ReversesEntryID != nil {
		id := *e.ReversesEntryID
		c.ReversesEntryID = &id
	}
	return &c
}

func clonePromo(p *domain.PromoCode) *domain.PromoCode {
	c := *p
	if p.ExpiresAt != nil {
		t := *p.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
