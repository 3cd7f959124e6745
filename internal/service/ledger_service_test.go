package service

import (
	"context"
	"testing"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListForUserPaging(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 0, 100)
	for i := 0; i < 24; i++ {
		_, err := f.eng.Wallet.Debit(f.ctx, 1, 1, domain.Meta{})
		require.NoError(t, err)
	}

	page, err := f.eng.Ledger.ListForUser(f.ctx, 1, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	require.Len(t, page.Items, 20)
	assert.Greater(t, page.Items[0].ID, page.Items[1].ID)

	page, err = f.eng.Ledger.ListForUser(f.ctx, 1, 2, 20, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	page, err = f.eng.Ledger.ListForUser(f.ctx, 1, 1, 500, "credit")
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
	assert.Equal(t, 1, page.Total)

	_, err = f.eng.Ledger.ListForUser(f.ctx, 1, 1, 10, "refund")
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestListForUserPageBounds(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 0, 10)

	page, err := f.eng.Ledger.ListForUser(f.ctx, 1, maxPage, 20, "")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Empty(t, page.Items)

	// (page-1)*20 would wrap to a negative offset
	_, err = f.eng.Ledger.ListForUser(f.ctx, 1, 576460752303423489, 20, "")
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)

	_, _, err = f.store.ListLedgerEntries(f.ctx, domain.LedgerFilter{UserID: 1, Limit: 20, Offset: -20})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}

func TestRecordRejectsBadEntries(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		entry domain.LedgerEntry
		want  error
	}{
		{"zero amount", domain.LedgerEntry{Direction: domain.DirectionCredit, CreditType: domain.CreditBonus, Source: domain.SourcePurchase}, domain.ErrInvalidAmount},
		{"bad type", domain.LedgerEntry{Amount: 1, Direction: domain.DirectionCredit, CreditType: "x", Source: domain.SourcePurchase}, domain.ErrInvalidCreditType},
		{"bad source", domain.LedgerEntry{Amount: 1, Direction: domain.DirectionCredit, CreditType: domain.CreditBonus, Source: "gift"}, domain.ErrInvalidSource},
		{"negative after", domain.LedgerEntry{Amount: 1, Direction: domain.DirectionDebit, CreditType: domain.CreditBonus, Source: domain.SourceToolUsage, BalanceAfter: -1}, domain.ErrInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			err := f.store.InTx(f.ctx, func(ctx context.Context, tx store.Tx) error {
				return f.eng.Ledger.Record(ctx, tx, &e)
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	entries, err := f.store.ReplayLedger(f.ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVerifyDetectsDrift(t *testing.T) {
	f := newFixture(t)
	f.fund(1, 5, 5)

	// a write that bypasses the ledger
	err := f.store.InTx(f.ctx, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.LockWallet(ctx, 1)
		if err != nil {
			return err
		}
		w.PurchasedCredits += 3
		return tx.UpdateWallet(ctx, w)
	})
	require.NoError(t, err)

	report, err := f.eng.Ledger.Verify(f.ctx, 1)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.Equal(t, int64(5), report.Buckets[domain.CreditPurchased].LedgerSum)
	assert.Equal(t, int64(8), report.Buckets[domain.CreditPurchased].WalletBalance)
	assert.NotEmpty(t, report.Problems)
}
