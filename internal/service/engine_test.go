package service

import (
	"context"
	"testing"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store/memory"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	now   time.Time
	store *memory.Store
	eng   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:   t,
		ctx: context.Background(),
		now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	f.store = memory.New(memory.WithClock(clock))
	f.eng = NewEngine(f.store, Options{
		Retry: RetryPolicy{Attempts: 3, Backoff: time.Millisecond},
		Now:   clock,
	})
	return f
}

func (f *fixture) fund(userID, bonus, purchased int64) {
	f.t.Helper()
	if bonus > 0 {
		_, err := f.eng.Wallet.Credit(f.ctx, userID, bonus, domain.CreditBonus, domain.Meta{
			Description: "test bonus",
			Source:      domain.SourcePromoCode,
		})
		require.NoError(f.t, err)
	}
	if purchased > 0 {
		_, err := f.eng.Wallet.Purchase(f.ctx, userID, purchased, "test")
		require.NoError(f.t, err)
	}
}

func (f *fixture) tool(r domain.ToolCostRule) {
	f.t.Helper()
	r.IsActive = true
	require.NoError(f.t, f.store.UpsertToolRule(f.ctx, &r))
}

func (f *fixture) makePro(userID int64, days int) {
	f.t.Helper()
	_, err := f.eng.Subscriptions.Activate(f.ctx, userID, "pro_monthly", f.now.AddDate(0, 0, days))
	require.NoError(f.t, err)
}

func (f *fixture) requireConsistent(userID int64) {
	f.t.Helper()
	report, err := f.eng.Ledger.Verify(f.ctx, userID)
	require.NoError(f.t, err)
	require.True(f.t, report.Consistent, "ledger problems: %v", report.Problems)
}
