package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"credit_engine/internal/domain"

	"github.com/jackc/pgx/v5"
)

type reader struct {
	q querier
}

const walletColumns = `user_id, bonus_credits, purchased_credits, total_credits_earned,
	total_credits_purchased, total_credits_spent, created_at, updated_at`

const ledgerColumns = `id, user_id, operation_id, direction, amount, credit_type, balance_before,
	balance_after, description, source, metadata, reverses_entry_id, created_at`

const subscriptionColumns = `id, user_id, plan_id, status, start_date, end_date, is_trial, created_at, updated_at`

const promoColumns = `id, code, type, value, status, max_uses, used_count, expires_at, created_at`

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := row.Scan(
		&w.UserID, &w.BonusCredits, &w.PurchasedCredits, &w.TotalCreditsEarned,
		&w.TotalCreditsPurchased, &w.TotalCreditsSpent, &w.CreatedAt, &w.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &w, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		e        domain.LedgerEntry
		metaJSON []byte
	)
	if err := row.Scan(
		&e.ID, &e.UserID, &e.OperationID, &e.Direction, &e.Amount, &e.CreditType, &e.BalanceBefore,
		&e.BalanceAfter, &e.Description, &e.Source, &metaJSON, &e.ReversesEntryID, &e.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &e.Metadata)
	}
	return &e, nil
}

func scanLedgerRows(rows pgx.Rows) ([]*domain.LedgerEntry, error) {
	defer rows.Close()

	result := []*domain.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, mapErr(rows.Err())
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var s domain.Subscription
	if err := row.Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartDate, &s.EndDate, &s.IsTrial, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func scanPromo(row pgx.Row) (*domain.PromoCode, error) {
	var p domain.PromoCode
	if err := row.Scan(
		&p.ID, &p.Code, &p.Type, &p.Value, &p.Status, &p.MaxUses, &p.UsedCount, &p.ExpiresAt, &p.CreatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r reader) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return scanWallet(r.q.QueryRow(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID))
}

func (r reader) GetLedgerEntry(ctx context.Context, id int64) (*domain.LedgerEntry, error) {
	return scanLedgerEntry(r.q.QueryRow(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = $1`, id))
}

func (r reader) ListLedgerEntries(ctx context.Context, f domain.LedgerFilter) ([]*domain.LedgerEntry, int, error) {
	if f.Offset < 0 || f.Limit < 0 {
		return nil, 0, domain.ErrInvalidFilter
	}
	where := []string{"user_id = $1"}
	args := []any{f.UserID}
	if f.Direction != "" {
		args = append(args, f.Direction)
		where = append(where, fmt.Sprintf("direction = $%d", len(args)))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, f.Offset)
	rows, err := r.q.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM ledger_entries WHERE %s ORDER BY id DESC LIMIT $%d OFFSET $%d`,
		ledgerColumns, cond, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	items, err := scanLedgerRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r reader) ReplayLedger(ctx context.Context, userID int64) ([]*domain.LedgerEntry, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries WHERE user_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return scanLedgerRows(rows)
}

func (r reader) GetToolRule(ctx context.Context, toolIDOrSlug string) (*domain.ToolCostRule, error) {
	var t domain.ToolCostRule
	err := r.q.QueryRow(ctx, `
		SELECT tool_id, slug, base_cost_in_credits, is_planning_tool, planning_monthly_limit,
		       planning_pro_overflow_cost, planning_full_experience_cost, is_pro_only, is_active,
		       reversal_policy
		FROM tool_cost_rules
		WHERE tool_id = $1 OR slug = $1
		ORDER BY (tool_id = $1) DESC
		LIMIT 1
	`, toolIDOrSlug).Scan(
		&t.ToolID, &t.Slug, &t.BaseCostInCredits, &t.IsPlanningTool, &t.PlanningMonthlyLimit,
		&t.PlanningProOverflowCost, &t.PlanningFullExperienceCost, &t.IsProOnly, &t.IsActive,
		&t.ReversalPolicy,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r reader) GetMonthlyUsage(ctx context.Context, userID int64, toolID, period string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(MAX(usage_count), 0)
		FROM monthly_usage_counters
		WHERE user_id = $1 AND tool_id = $2 AND period = $3
	`, userID, toolID, period).Scan(&n)
	return n, mapErr(err)
}

func (r reader) GetCurrentSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return scanSubscription(r.q.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'canceled')
	`, userID))
}

func (r reader) GetLatestSubscription(ctx context.Context, userID int64) (*domain.Subscription, error) {
	return scanSubscription(r.q.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, userID))
}

func (r reader) GetPromoCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	return scanPromo(r.q.QueryRow(ctx,
		`SELECT `+promoColumns+` FROM promo_codes WHERE code = $1`, domain.NormalizePromoCode(code)))
}

func (r reader) ListAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, user_id, action, category, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		var detailsJSON []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Category, &detailsJSON, &l.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		if err := json.Unmarshal(detailsJSON, &l.Details); err != nil {
			l.Details = make(map[string]interface{})
		}
		logs = append(logs, &l)
	}
	return logs, mapErr(rows.Err())
}
