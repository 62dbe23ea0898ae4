package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tier is a holding bracket derived from a holder's USD value.
type Tier string

// Tier values, lowest first.
const (
	TierNone   Tier = "none"
	TierBronze Tier = "bronze"
	TierSilver Tier = "silver"
	TierGold   Tier = "gold"
)

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierNone, TierBronze, TierSilver, TierGold:
		return true
	}
	return false
}

// HolderRecord is one address holding a non-zero balance at snapshot time.
// Corresponds to holder_records table in PostgreSQL.
type HolderRecord struct {
	Address      string          // owner address, PRIMARY KEY
	RawBalance   uint64          // minor-unit token amount
	Decimals     uint8           // mint decimals
	UnitPriceUSD decimal.Decimal // price of one whole token
	USDValue     decimal.Decimal // whole-token amount * unit price
	Tier         Tier

	Multiplier         int64 // >= 1
	MembershipBaseline int64 // baseline entries granted by membership
	BaseEntries        int64 // floor(USDValue / entry unit)
	FinalEntries       int64 // (BaseEntries + MembershipBaseline) * Multiplier
	IsEligible         bool  // USDValue >= minimum eligible value

	Excluded        bool
	ExclusionReason string
	ExcludedBy      string

	SnapshotAt time.Time
}

// DrawEntries returns the entries this record contributes to a draw.
// Excluded and ineligible records contribute nothing.
func (h *HolderRecord) DrawEntries() int64 {
	if h.Excluded || !h.IsEligible || h.FinalEntries < 0 {
		return 0
	}
	return h.FinalEntries
}

// Clone returns a copy of the record.
func (h *HolderRecord) Clone() *HolderRecord {
	c := *h
	return &c
}

// RawHolding is a single address balance as reported by the snapshot source.
type RawHolding struct {
	Address    string
	RawBalance uint64
	// ProgramOwned is true when the address is not on the ed25519 curve,
	// i.e. a program-derived account such as a pool or vault.
	ProgramOwned bool
}

// Snapshot is a point-in-time capture of all holder balances.
type Snapshot struct {
	Mint         string
	Decimals     uint8
	UnitPriceUSD decimal.Decimal
	Holdings     []RawHolding
	TakenAt      time.Time
}

// SyncStats summarizes one prepare-draw run.
type SyncStats struct {
	SnapshotAt      time.Time       `json:"snapshot_at"`
	TotalHolders    int             `json:"total_holders"`
	DustDropped     int             `json:"dust_dropped"`
	EligibleHolders int             `json:"eligible_holders"`
	ExcludedHolders int             `json:"excluded_holders"`
	SystemExcluded  int             `json:"system_excluded"`
	TotalEntries    int64           `json:"total_entries"`
	UnitPriceUSD    decimal.Decimal `json:"unit_price_usd"`
	Duration        time.Duration   `json:"duration_ns"`
}
