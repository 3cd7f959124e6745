package service

import (
	"time"

	"credit_engine/internal/domain"
	"credit_engine/internal/store"

	"github.com/google/uuid"
)

// Options configures an Engine. Zero values pick defaults.
type Options struct {
	Retry          RetryPolicy
	ReversalPolicy domain.ReversalPolicy
	Now            func() time.Time
}

// Engine wires the credit economy services over one Ledger Store.
type Engine struct {
	Store         store.Store
	Ledger        *LedgerService
	Wallet        *WalletService
	Subscriptions *SubscriptionService
	Pricing       *PricingService
	Charge        *ChargeService
	Promo         *PromoService
	Audit         *AuditService
}

// NewEngine builds all services. It panics on an unknown reversal policy;
// config.Load rejects those before they get here.
func NewEngine(st store.Store, opts Options) *Engine {
	if opts.Retry.Attempts == 0 {
		opts.Retry = DefaultRetryPolicy
	}
	policy, err := domain.ParseReversalPolicy(string(opts.ReversalPolicy))
	if err != nil {
		panic(err)
	}
	opts.ReversalPolicy = policy
	if opts.Now == nil {
		opts.Now = time.Now
	}

	audit := NewAuditService(st)
	ledger := NewLedgerService(st)
	wallet := &WalletService{
		store:          st,
		ledger:         ledger,
		audit:          audit,
		retry:          opts.Retry,
		reversalPolicy: opts.ReversalPolicy,
		newOperationID: func() string { return uuid.NewString() },
	}
	subs := &SubscriptionService{store: st, audit: audit, retry: opts.Retry, now: opts.Now}
	pricing := &PricingService{store: st, subs: subs, now: opts.Now}

	return &Engine{
		Store:         st,
		Ledger:        ledger,
		Wallet:        wallet,
		Subscriptions: subs,
		Pricing:       pricing,
		Charge: &ChargeService{
			store:          st,
			pricing:        pricing,
			wallet:         wallet,
			retry:          opts.Retry,
			reversalPolicy: opts.ReversalPolicy,
			now:            opts.Now,
		},
		Promo: &PromoService{
			store:  st,
			wallet: wallet,
			subs:   subs,
			audit:  audit,
			retry:  opts.Retry,
			now:    opts.Now,
		},
		Audit: audit,
	}
}
