package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"credit_engine/internal/db"
	"credit_engine/internal/domain"
	"credit_engine/internal/service"
	"credit_engine/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openEngine connects to DATABASE_URL, applies the migrations and returns an
// engine on the postgres store. Tests skip without a database.
func openEngine(t *testing.T) (*service.Engine, *postgres.Store) {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, nil))

	st := postgres.New(pool)
	return service.NewEngine(st, service.Options{}), st
}

// uniqueID keeps rows from separate runs apart in a shared database.
func uniqueID() int64 {
	return time.Now().UnixNano() % 1_000_000_000_000
}

func TestPostgresSplitDebitAndReverse(t *testing.T) {
	eng, _ := openEngine(t)
	ctx := context.Background()
	userID := uniqueID()

	_, err := eng.Wallet.Credit(ctx, userID, 3, domain.CreditBonus, domain.Meta{Source: domain.SourceSignupBonus})
	require.NoError(t, err)
	_, err = eng.Wallet.Purchase(ctx, userID, 10, "order-"+fmt.Sprint(userID))
	require.NoError(t, err)

	res, err := eng.Wallet.Consume(ctx, userID, 5, "report")
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, res.Entries[0].OperationID, res.Entries[1].OperationID)
	assert.Equal(t, domain.Balance{BonusCredits: 0, PurchasedCredits: 8, AvailableCredits: 8}, res.Balance)

	_, err = eng.Wallet.Reverse(ctx, res.EntryID())
	require.NoError(t, err)
	_, err = eng.Wallet.Reverse(ctx, res.EntryID())
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)

	bal, err := eng.Wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(13), bal.AvailableCredits)

	report, err := eng.Ledger.Verify(ctx, userID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, report.Problems)
}

func TestPostgresConcurrentDebitsNeverOverdraw(t *testing.T) {
	eng, _ := openEngine(t)
	ctx := context.Background()
	userID := uniqueID()

	_, err := eng.Wallet.Purchase(ctx, userID, 10, "")
	require.NoError(t, err)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := eng.Wallet.Debit(ctx, userID, 1, domain.Meta{}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	bal, err := eng.Wallet.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, bal.AvailableCredits)
}

func TestPostgresChargeAndPromo(t *testing.T) {
	eng, st := openEngine(t)
	ctx := context.Background()
	userID := uniqueID()
	toolID := fmt.Sprintf("itest-%d", userID)

	require.NoError(t, st.UpsertToolRule(ctx, &domain.ToolCostRule{
		ToolID: toolID, BaseCostInCredits: 4, IsActive: true,
	}))

	code := fmt.Sprintf("IT%d", userID)
	require.NoError(t, eng.Promo.CreatePromoCode(ctx, &domain.PromoCode{
		Code: code, Type: domain.PromoBonusCredits, Value: 6, MaxUses: 1,
	}, 0))

	redeemed, err := eng.Promo.Redeem(ctx, userID, code)
	require.NoError(t, err)
	assert.Equal(t, int64(6), redeemed.CreditsAdded)

	_, err = eng.Promo.Redeem(ctx, userID+1, code)
	assert.ErrorIs(t, err, domain.ErrCodeExhausted)

	charge, err := eng.Charge.ChargeAndRecordUsage(ctx, userID, toolID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), charge.Cost)
	assert.Equal(t, int64(2), charge.Balance.AvailableCredits)

	_, err = eng.Charge.ChargeAndRecordUsage(ctx, userID, toolID, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestPostgresConcurrentTrialsExtendOneSubscription(t *testing.T) {
	eng, st := openEngine(t)
	ctx := context.Background()
	userID := uniqueID()

	codes := []string{fmt.Sprintf("TA%d", userID), fmt.Sprintf("TB%d", userID)}
	for _, c := range codes {
		require.NoError(t, eng.Promo.CreatePromoCode(ctx, &domain.PromoCode{
			Code: c, Type: domain.PromoProTrial, Value: 7,
		}, 0))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(codes))
	for i, c := range codes {
		wg.Add(1)
		go func(i int, c string) {
			defer wg.Done()
			_, errs[i] = eng.Promo.Redeem(ctx, userID, c)
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	sub, err := st.GetCurrentSubscription(ctx, userID)
	require.NoError(t, err)
	assert.True(t, sub.IsTrial)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), sub.EndDate, time.Minute)
}
