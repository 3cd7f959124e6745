package service

import (
	"context"
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

// ChargeResult tells the caller what a tool invocation cost and how to undo it.
type ChargeResult struct {
	ToolID         string                `json:"tool_id"`
	Cost           int64                 `json:"cost"`
	AccessType     domain.AccessType     `json:"access_type"`
	UsageInfo      *domain.UsageInfo     `json:"usage_info,omitempty"`
	Entries        []*domain.LedgerEntry `json:"entries,omitempty"`
	LedgerEntryID  int64                 `json:"ledger_entry_id,omitempty"`
	Balance        domain.Balance        `json:"balance"`
	ReversalPolicy domain.ReversalPolicy `json:"reversal_policy"`
}

// ChargeService prices and charges a tool invocation as one unit of work.
type ChargeService struct {
	store          store.Store
	pricing        *PricingService
	wallet         *WalletService
	retry          RetryPolicy
	reversalPolicy domain.ReversalPolicy
	now            func() time.Time
}

// ChargeAndRecordUsage re-prices toolID, debits the cost and counts Pro
// planning usage in one transaction. Callers reverse LedgerEntryID when the
// downstream operation fails.
func (s *ChargeService) ChargeAndRecordUsage(ctx context.Context, userID int64, toolID, experienceLevel string) (*ChargeResult, error) {
	var res *ChargeResult
	err := s.retry.do(ctx, "charge", func() error {
		return s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
			w, err := tx.LockWallet(ctx, userID)
			if err != nil {
				return err
			}

			q, err := s.pricing.quote(ctx, tx, userID, toolID, experienceLevel)
			if err != nil {
				return err
			}
			policy := q.ReversalPolicy
			if policy == "" {
				policy = s.reversalPolicy
			}

			r := &ChargeResult{
				ToolID:         q.ToolID,
				Cost:           q.CostInCredits,
				AccessType:     q.AccessType,
				UsageInfo:      q.UsageInfo,
				Balance:        w.Balance(),
				ReversalPolicy: policy,
			}

			if q.CostInCredits > 0 {
				m, err := s.wallet.debitTx(ctx, tx, userID, q.CostInCredits, nil, domain.Meta{
					Description: "tool usage: " + q.ToolID,
					Source:      domain.SourceToolUsage,
					Metadata: map[string]interface{}{
						"tool_id":         q.ToolID,
						"access_type":     string(q.AccessType),
						"reversal_policy": string(policy),
					},
				})
				if err != nil {
					return err
				}
				r.Entries = m.Entries
				r.LedgerEntryID = m.EntryID()
				r.Balance = m.Balance
			}

			if q.CountsUsage() {
				used, err := tx.IncrementMonthlyUsage(ctx, userID, q.ToolID, domain.UsagePeriod(s.now()))
				if err != nil {
					return err
				}
				if r.UsageInfo != nil {
					info := *r.UsageInfo
					info.Used = used
					info.Remaining = max(info.Limit-used, 0)
					r.UsageInfo = &info
				}
			}

			res = r
			return nil
		})
	})
	if err != nil {
		if domain.KindOf(err) == domain.KindInsufficientBalance {
			toolCharges.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	toolCharges.WithLabelValues(string(res.AccessType)).Inc()
	if len(res.Entries) > 0 {
		s.wallet.notify(userID, &MutationResult{Entries: res.Entries, Balance: res.Balance})
	}
	return res, nil
}
