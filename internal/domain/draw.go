package domain

import "time"

// EntryRange is the inclusive span of entry numbers owned by one address.
// Derived from the filtered ledger, never persisted on its own.
type EntryRange struct {
	Address string
	Start   int64
	End     int64
}

// Len returns the number of entries in the range.
func (r EntryRange) Len() int64 {
	return r.End - r.Start + 1
}

// Contains reports whether n falls within the range.
func (r EntryRange) Contains(n int64) bool {
	return n >= r.Start && n <= r.End
}

// DrawResult is one executed draw. Immutable once created.
// Corresponds to draw_results table in PostgreSQL.
type DrawResult struct {
	ID                   string    `json:"id"`
	WinningNumber        int64     `json:"winning_number"` // 1..TotalEntries
	WinnerAddress        string    `json:"winner_address"`
	WinnerEntries        int64     `json:"winner_entries"`
	TotalEntries         int64     `json:"total_entries"`
	TotalEligibleHolders int       `json:"total_eligible_holders"`
	PrizeAmount          uint64    `json:"prize_amount"`
	LedgerDigest         string    `json:"ledger_digest"` // hash of the entry ranges
	Timestamp            time.Time `json:"timestamp"`
}
