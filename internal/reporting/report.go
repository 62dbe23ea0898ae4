package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
)

// Report is the audit report of the current ledger, draws and distributions.
type Report struct {
	GeneratedAt time.Time

	Ledger LedgerSummary
	Tiers  []TierRow // fixed tier order, lowest first

	// Active exclusions, ordered by address
	Exclusions []*domain.ExclusionRecord

	// Most recent first
	Draws         []*domain.DrawResult
	Distributions []*domain.Distribution

	DistributionTotals DistributionTotals
}

// LedgerSummary describes the persisted snapshot under current exclusions.
type LedgerSummary struct {
	SnapshotAt      *time.Time
	TotalHolders    int
	EligibleHolders int
	ExcludedHolders int
	TotalEntries    int64
	TotalUSDValue   decimal.Decimal
}

// TierRow aggregates holders per tier.
type TierRow struct {
	Tier     domain.Tier
	Holders  int
	Entries  int64
	USDValue decimal.Decimal
}

// DistributionTotals sums the listed distributions.
type DistributionTotals struct {
	Count  int
	Total  uint64
	Reward uint64
	Burn   uint64
	Ops    uint64
}
