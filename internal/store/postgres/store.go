// Package postgres implements the Ledger Store on PostgreSQL via pgx.
// Wallet and promo rows are serialized with SELECT ... FOR UPDATE inside
// READ COMMITTED transactions.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Store = (*Store)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	reader
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{reader: reader{q: pool}, pool: pool}
}

// InTx runs fn in a READ COMMITTED transaction. The transaction is detached
// from ctx cancellation: once begun it runs to commit or rollback.
func (s *Store) InTx(ctx context.Context, fn store.TxFunc) error {
	ctx = context.WithoutCancel(ctx)

	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()

	if err := fn(ctx, &tx{reader: reader{q: pgTx}, pgTx: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *Store) EnsureWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return s.GetWallet(ctx, userID)
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'expired', updated_at = NOW()
		WHERE status IN ('active', 'canceled') AND end_date < $1
	`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) UpsertToolRule(ctx context.Context, r *domain.ToolCostRule) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tool_cost_rules (
			tool_id, slug, base_cost_in_credits, is_planning_tool, planning_monthly_limit,
			planning_pro_overflow_cost, planning_full_experience_cost, is_pro_only, is_active,
			reversal_policy
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tool_id) DO UPDATE SET
			slug = EXCLUDED.slug,
			base_cost_in_credits = EXCLUDED.base_cost_in_credits,
			is_planning_tool = EXCLUDED.is_planning_tool,
			planning_monthly_limit = EXCLUDED.planning_monthly_limit,
			planning_pro_overflow_cost = EXCLUDED.planning_pro_overflow_cost,
			planning_full_experience_cost = EXCLUDED.planning_full_experience_cost,
			is_pro_only = EXCLUDED.is_pro_only,
			is_active = EXCLUDED.is_active,
			reversal_policy = EXCLUDED.reversal_policy
	`, r.ToolID, r.Slug, r.BaseCostInCredits, r.IsPlanningTool, r.PlanningMonthlyLimit,
		r.PlanningProOverflowCost, r.PlanningFullExperienceCost, r.IsProOnly, r.IsActive,
		string(r.ReversalPolicy))
	return mapErr(err)
}

func (s *Store) CreatePromoCode(ctx context.Context, p *domain.PromoCode) error {
	p.Code = domain.NormalizePromoCode(p.Code)
	if p.Status == "" {
		p.Status = domain.PromoActive
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO promo_codes (code, type, value, status, max_uses, used_count, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, p.Code, p.Type, p.Value, p.Status, p.MaxUses, p.UsedCount, p.ExpiresAt).Scan(&p.ID, &p.CreatedAt)
	return mapErr(err)
}

func (s *Store) CreateAuditLog(ctx context.Context, l *domain.AuditLog) error {
	detailsJSON, err := json.Marshal(l.Details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO audit_logs (user_id, action, category, details)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, l.UserID, l.Action, l.Category, detailsJSON).Scan(&l.ID, &l.CreatedAt)
	return mapErr(err)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// mapErr translates driver errors into domain errors. Anything it does not
// recognise is wrapped so storage details stay out of the error kind.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: sqlstate %s", domain.ErrStorageConflict, pgErr.Code)
		case "23505":
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("postgres: %w", err)
}

// currentSubscriptionIndex allows one active or canceled row per user.
const currentSubscriptionIndex = "uq_subscriptions_current"

// mapSubscriptionErr reports a lost race for the user's current
// subscription as a conflict, so the retried transaction extends the
// winner's row instead of failing.
func mapSubscriptionErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == currentSubscriptionIndex {
		return fmt.Errorf("%w: %s", domain.ErrStorageConflict, pgErr.ConstraintName)
	}
	return mapErr(err)
}

func isAlreadyExists(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}
