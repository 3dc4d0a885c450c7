// Package observability holds the Prometheus metrics for the ledger,
// the wallet store and the marketplace.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/riti-network/riti/internal/domain"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// TasksSubmitted tracks accepted task submissions.
var TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "tasks_submitted_total",
	Help:      "Total task submissions that produced a block.",
})

// TasksRejected tracks rejected task submissions by reason.
var TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "tasks_rejected_total",
	Help:      "Total task submissions rejected, by reason.",
}, []string{"reason"})

// RewardsMinted tracks Yuki credited as mining rewards.
var RewardsMinted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "rewards_minted_yuki_total",
	Help:      "Total Yuki minted as task rewards.",
})

// StakeBurned tracks Yuki debited as stake and never returned.
var StakeBurned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "stake_burned_yuki_total",
	Help:      "Total Yuki burned as task stake.",
})

// ChainHeight tracks the number of blocks in the chain.
var ChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "chain_height",
	Help:      "Number of blocks in the chain, genesis included.",
})

// ─── Marketplace Metrics ────────────────────────────────────────────────────

// ListingsCreated tracks listings opened.
var ListingsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "market",
	Name:      "listings_created_total",
	Help:      "Total marketplace listings created.",
})

// ListingsActive tracks listings currently open.
var ListingsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "riti",
	Subsystem: "market",
	Name:      "listings_active",
	Help:      "Number of open marketplace listings.",
})

// TradesExecuted tracks completed purchases.
var TradesExecuted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "market",
	Name:      "trades_executed_total",
	Help:      "Total trades executed against listings.",
})

// TradeVolume tracks Yuki moved from buyers to sellers.
var TradeVolume = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "market",
	Name:      "trade_volume_yuki_total",
	Help:      "Total Yuki paid by buyers to sellers.",
})

// MarketRejections tracks failed marketplace operations by operation and reason.
var MarketRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "market",
	Name:      "rejections_total",
	Help:      "Total rejected marketplace operations.",
}, []string{"op", "reason"})

// ─── Store Metrics ──────────────────────────────────────────────────────────

// ArchiveFailures tracks blocks that were appended in memory but could not
// be written to the block archive.
var ArchiveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "ledger",
	Name:      "archive_failures_total",
	Help:      "Total appended blocks the block archive failed to store.",
})

// StoreSaveFailures tracks failed wallet store writes.
var StoreSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "riti",
	Subsystem: "wallet",
	Name:      "save_failures_total",
	Help:      "Total failed attempts to persist the wallet store.",
})

// ─── Labels ─────────────────────────────────────────────────────────────────

var reasons = []struct {
	err   error
	label string
}{
	{domain.ErrWalletNotFound, "wallet_not_found"},
	{domain.ErrInsufficientStake, "insufficient_stake"},
	{domain.ErrInsufficientFunds, "insufficient_funds"},
	{domain.ErrInsufficientTokens, "insufficient_tokens"},
	{domain.ErrInsufficientListingQuantity, "insufficient_listing_quantity"},
	{domain.ErrInvalidListing, "invalid_listing"},
	{domain.ErrNotListingOwner, "not_listing_owner"},
	{domain.ErrProofRejected, "proof_rejected"},
	{domain.ErrInvalidInput, "invalid_input"},
	{domain.ErrOverflow, "overflow"},
	{domain.ErrPersistence, "persistence"},
}

// Reason maps an error to a bounded metric label.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.label
		}
	}
	return "other"
}
