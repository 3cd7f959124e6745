package service

import (
	"context"
	"fmt"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// maxPage keeps (page-1)*pageSize far from int overflow.
const maxPage = 1_000_000

// LedgerService appends and reads ledger entries. It never updates or
// deletes an entry.
type LedgerService struct {
	store store.Store
}

func NewLedgerService(st store.Store) *LedgerService {
	return &LedgerService{store: st}
}

// Record appends e inside tx. The caller's balance write must be in the
// same tx so both commit or neither does.
func (s *LedgerService) Record(ctx context.Context, tx store.Tx, e *domain.LedgerEntry) error {
	if e.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if e.Direction != domain.DirectionCredit && e.Direction != domain.DirectionDebit {
		return fmt.Errorf("record ledger entry: unknown direction %q", e.Direction)
	}
	if !e.CreditType.Valid() {
		return domain.ErrInvalidCreditType
	}
	if !e.Source.Valid() {
		return domain.ErrInvalidSource
	}
	if e.BalanceAfter < 0 {
		return domain.ErrInsufficientBalance
	}

	if err := tx.AppendLedgerEntry(ctx, e); err != nil {
		return err
	}

	ledgerEntries.WithLabelValues(string(e.Direction), string(e.Source)).Inc()
	ledgerCredits.WithLabelValues(string(e.Direction), string(e.CreditType)).Add(float64(e.Amount))
	return nil
}

// ListForUser returns one page of the user's history, newest first.
// filter is empty, a direction (credit, debit) or a source.
func (s *LedgerService) ListForUser(ctx context.Context, userID int64, page, pageSize int, filter string) (*domain.LedgerPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		return nil, domain.ErrInvalidFilter
	}

	f := domain.LedgerFilter{
		UserID: userID,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	switch d := domain.Direction(filter); {
	case filter == "":
	case d == domain.DirectionCredit || d == domain.DirectionDebit:
		f.Direction = d
	case domain.Source(filter).Valid():
		f.Source = domain.Source(filter)
	default:
		return nil, domain.ErrInvalidFilter
	}

	items, total, err := s.store.ListLedgerEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	return &domain.LedgerPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// BucketCheck compares one credit type's ledger replay with the wallet.
type BucketCheck struct {
	LedgerSum     int64 `json:"ledger_sum"`
	WalletBalance int64 `json:"wallet_balance"`
}

// VerifyReport is the result of replaying a user's ledger.
type VerifyReport struct {
	UserID     int64                              `json:"user_id"`
	Entries    int                                `json:"entries"`
	Buckets    map[domain.CreditType]*BucketCheck `json:"buckets"`
	Consistent bool                               `json:"consistent"`
	Problems   []string                           `json:"problems,omitempty"`
}

// Verify replays the user's entries in creation order. For each credit type
// every entry must start where the previous one ended, and the signed sum
// must equal the wallet balance. The wallet row is locked while reading so
// the snapshot is consistent.
func (s *LedgerService) Verify(ctx context.Context, userID int64) (*VerifyReport, error) {
	var report *VerifyReport
	err := s.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		w, err := tx.LockWallet(ctx, userID)
		if err != nil {
			return err
		}
		entries, err := tx.ReplayLedger(ctx, userID)
		if err != nil {
			return err
		}
		report = replay(w, entries)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func replay(w *domain.Wallet, entries []*domain.LedgerEntry) *VerifyReport {
	r := &VerifyReport{
		UserID:  w.UserID,
		Entries: len(entries),
		Buckets: map[domain.CreditType]*BucketCheck{
			domain.CreditBonus:     {WalletBalance: w.BonusCredits},
			domain.CreditPurchased: {WalletBalance: w.PurchasedCredits},
		},
	}

	last := map[domain.CreditType]int64{}
	for _, e := range entries {
		b, ok := r.Buckets[e.CreditType]
		if !ok {
			r.Problems = append(r.Problems, fmt.Sprintf("entry %d: unknown credit type %q", e.ID, e.CreditType))
			continue
		}
		if e.BalanceBefore != last[e.CreditType] {
			r.Problems = append(r.Problems, fmt.Sprintf("entry %d: balance_before %d, previous %s entry ended at %d",
				e.ID, e.BalanceBefore, e.CreditType, last[e.CreditType]))
		}
		if e.BalanceBefore+e.Signed() != e.BalanceAfter {
			r.Problems = append(r.Problems, fmt.Sprintf("entry %d: %d %+d != %d",
				e.ID, e.BalanceBefore, e.Signed(), e.BalanceAfter))
		}
		b.LedgerSum += e.Signed()
		last[e.CreditType] = e.BalanceAfter
	}

	for t, b := range r.Buckets {
		if b.LedgerSum != b.WalletBalance {
			r.Problems = append(r.Problems, fmt.Sprintf("%s: ledger sums to %d, wallet holds %d", t, b.LedgerSum, b.WalletBalance))
		}
	}
	r.Consistent = len(r.Problems) == 0
	return r
}
