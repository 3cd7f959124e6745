package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ledgerEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ledger_entries_total",
			Help: "Ledger entries appended, by direction and source",
		},
		[]string{"direction", "source"},
	)
	ledgerCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_ledger_amount_total",
			Help: "Credits moved through the ledger, by direction and credit type",
		},
		[]string{"direction", "credit_type"},
	)
	debitsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_debits_rejected_total",
			Help: "Debits rejected before any mutation, by reason",
		},
		[]string{"reason"},
	)
	storageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_storage_retries_total",
			Help: "Transactions re-run after a storage conflict",
		},
		[]string{"operation"},
	)
	toolCharges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_tool_charges_total",
			Help: "Tool charges by access type",
		},
		[]string{"access_type"},
	)
	promoRedemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_promo_redemptions_total",
			Help: "Promo redemption attempts by code type and outcome",
		},
		[]string{"type", "result"},
	)
	subscriptionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_subscriptions_expired_total",
			Help: "Subscriptions moved to expired by the sweep",
		},
	)
)

func init() {
	prometheus.MustRegister(ledgerEntries)
	prometheus.MustRegister(ledgerCredits)
	prometheus.MustRegister(debitsRejected)
	prometheus.MustRegister(storageRetries)
	prometheus.MustRegister(toolCharges)
	prometheus.MustRegister(promoRedemptions)
	prometheus.MustRegister(subscriptionsExpired)
}
