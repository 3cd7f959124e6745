package postgres

import (
	"context"
	"encoding/json"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"

	"github.com/jackc/pgx/v5"
)

var _ store.Tx = (*tx)(nil)

type tx struct {
	reader
	pgTx pgx.Tx
}

func (t *tx) LockWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	if _, err := t.pgTx.Exec(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID,
	); err != nil {
		return nil, mapErr(err)
	}
	return scanWallet(t.pgTx.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID))
}

func (t *tx) UpdateWallet(ctx context.Context, w *domain.Wallet) error {
	err := t.pgTx.QueryRow(ctx, `
		UPDATE wallets
		SET bonus_credits = $2,
		    purchased_credits = $3,
		    total_credits_earned = $4,
		    total_credits_purchased = $5,
		    total_credits_spent = $6,
		    updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at
	`, w.UserID, w.BonusCredits, w.PurchasedCredits, w.TotalCreditsEarned,
		w.TotalCreditsPurchased, w.TotalCreditsSpent).Scan(&w.UpdatedAt)
	return mapErr(err)
}

func (t *tx) AppendLedgerEntry(ctx context.Context, e *domain.LedgerEntry) error {
	metaJSON, err := json.Marshal(e.Metadata)
	if err != nil || e.Metadata == nil {
		metaJSON = []byte("{}")
	}

	err = t.pgTx.QueryRow(ctx, `
		INSERT INTO ledger_entries (
			user_id, operation_id, direction, amount, credit_type, balance_before,
			balance_after, description, source, metadata, reverses_entry_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, e.UserID, e.OperationID, e.Direction, e.Amount, e.CreditType, e.BalanceBefore,
		e.BalanceAfter, e.Description, e.Source, metaJSON, e.ReversesEntryID,
	).Scan(&e.ID, &e.CreatedAt)

	err = mapErr(err)
	if e.ReversesEntryID != nil && isAlreadyExists(err) {
		return domain.ErrAlreadyReversed
	}
	return err
}

func (t *tx) ListOperationEntries(ctx context.Context, operationID string) ([]*domain.LedgerEntry, error) {
	rows, err := t.pgTx.Query(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE operation_id = $1 ORDER BY id ASC`, operationID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanLedgerRows(rows)
}

func (t *tx) HasReversal(ctx context.Context, entryID int64) (bool, error) {
	var exists bool
	err := t.pgTx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE reverses_entry_id = $1)`, entryID,
	).Scan(&exists)
	return exists, mapErr(err)
}

func (t *tx) HasSourceEntry(ctx context.Context, userID int64, source domain.Source) (bool, error) {
	var exists bool
	err := t.pgTx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE user_id = $1 AND source = $2)`, userID, source,
	).Scan(&exists)
	return exists, mapErr(err)
}

func (t *tx) IncrementMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error) {
	var n int
	err := t.pgTx.QueryRow(ctx, `
		INSERT INTO monthly_usage_counters (user_id, tool_id, period, usage_count)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (user_id, tool_id, period)
		DO UPDATE SET usage_count = monthly_usage_counters.usage_count + 1, updated_at = NOW()
		RETURNING usage_count
	`, userID, toolID, period).Scan(&n)
	return n, mapErr(err)
}

func (t *tx) LockPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return scanPromo(t.pgTx.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1 FOR UPDATE`, domain.NormalizePromoCode(code)))
}

func (t *tx) UpdatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	tag, err := t.pgTx.Exec(ctx,
		`UPDATE promo_codes SET status = $2, used_count = $3 WHERE id = $1`,
		p.ID, p.Status, p.UsedCount,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) HasRedemption(ctx context.Context, userID, promoCodeID int64) (bool, error) {
	var exists bool
	err := t.pgTx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM promo_redemptions WHERE user_id = $1 AND promo_code_id = $2)`,
		userID, promoCodeID,
	).Scan(&exists)
	return exists, mapErr(err)
}

func (t *tx) CreateRedemption(ctx context.Context, r *domain.PromoRedemption) error {
	err := mapErr(t.pgTx.QueryRow(ctx, `
		INSERT INTO promo_redemptions (user_id, promo_code_id)
		VALUES ($1, $2)
		RETURNING id, redeemed_at
	`, r.UserID, r.PromoCodeID).Scan(&r.ID, &r.RedeemedAt))
	if isAlreadyExists(err) {
		return domain.ErrAlreadyRedeemed
	}
	return err
}

func (t *tx) LockCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return scanSubscription(t.pgTx.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'canceled')
		FOR UPDATE
	`, userID))
}

func (t *tx) CreateSubscription(ctx context.Context, s *domain.Subscription) error {
	err := t.pgTx.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, plan_id, status, start_date, end_date, is_trial)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, s.UserID, s.PlanID, s.Status, s.StartDate, s.EndDate, s.IsTrial).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	return mapSubscriptionErr(err)
}

func (t *tx) UpdateSubscription(ctx context.Context, s *domain.Subscription) error {
	err := t.pgTx.QueryRow(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, end_date = $4, is_trial = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.PlanID, s.Status, s.EndDate, s.IsTrial).Scan(&s.UpdatedAt)
	return mapSubscriptionErr(err)
}
