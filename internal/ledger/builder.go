// Package ledger converts raw holder snapshots into entry-weighted holder records.
package ledger

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
)

// BuildStats summarizes one ledger build.
type BuildStats struct {
	Holders      int   // records produced
	DustDropped  int   // holdings below the raw balance floor
	Eligible     int   // records with IsEligible
	TotalEntries int64 // sum of FinalEntries over eligible records
}

// Builder computes HolderRecords from a snapshot.
// It is pure: no I/O, no exclusion state.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder. Returns an error if cfg is invalid.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

var maxEntries = decimal.NewFromInt(math.MaxInt64)

// Build converts snap into holder records sorted by address ASC.
//
// Formulas:
//   - usd_value = raw_balance / 10^decimals * unit_price
//   - tier = highest threshold with usd_value >= min_usd, else none
//   - base_entries = floor(usd_value / entry_unit_usd)
//   - final_entries = (base_entries + membership_baseline) * multiplier
//   - is_eligible = usd_value >= min_eligible_usd
//
// Holdings below MinRawBalance (and zero balances) are dropped before any computation.
// A missing or non-positive price fails with ErrConfiguration; no records are produced.
// memberships maps address to the membership active at snapshot time and may be nil.
func (b *Builder) Build(snap *domain.Snapshot, memberships map[string]*domain.Membership) ([]*domain.HolderRecord, BuildStats, error) {
	var stats BuildStats

	if snap == nil {
		return nil, stats, fmt.Errorf("%w: nil snapshot", domain.ErrConfiguration)
	}
	if !snap.UnitPriceUSD.IsPositive() {
		return nil, stats, fmt.Errorf("%w: unit price %s is not positive", domain.ErrConfiguration, snap.UnitPriceUSD)
	}

	seen := make(map[string]struct{}, len(snap.Holdings))
	records := make([]*domain.HolderRecord, 0, len(snap.Holdings))

	for _, h := range snap.Holdings {
		if _, dup := seen[h.Address]; dup {
			return nil, BuildStats{}, fmt.Errorf("%w: %s", errDuplicateHolder, h.Address)
		}
		seen[h.Address] = struct{}{}

		if h.RawBalance == 0 || h.RawBalance < b.cfg.MinRawBalance {
			stats.DustDropped++
			continue
		}

		rec, err := b.record(h, snap, memberships[h.Address])
		if err != nil {
			return nil, BuildStats{}, err
		}
		records = append(records, rec)

		stats.Holders++
		if rec.IsEligible {
			stats.Eligible++
			stats.TotalEntries += rec.FinalEntries
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Address < records[j].Address
	})

	return records, stats, nil
}

func (b *Builder) record(h domain.RawHolding, snap *domain.Snapshot, m *domain.Membership) (*domain.HolderRecord, error) {
	usd := USDValue(h.RawBalance, snap.Decimals, snap.UnitPriceUSD)

	// QuoRem at precision 0 is exact integer division; usd is never negative so it floors.
	base, _ := usd.QuoRem(b.cfg.EntryUnitUSD, 0)
	if base.GreaterThan(maxEntries) {
		return nil, fmt.Errorf("base entries overflow for %s", h.Address)
	}

	multiplier, baseline := int64(1), int64(0)
	if m != nil && m.ActiveAt(snap.TakenAt) {
		if m.Multiplier > 1 {
			multiplier = m.Multiplier
		}
		if m.BaselineEntries > 0 {
			baseline = m.BaselineEntries
		}
	}

	final, ok := finalEntries(base.IntPart(), baseline, multiplier)
	if !ok {
		return nil, fmt.Errorf("final entries overflow for %s", h.Address)
	}

	return &domain.HolderRecord{
		Address:            h.Address,
		RawBalance:         h.RawBalance,
		Decimals:           snap.Decimals,
		UnitPriceUSD:       snap.UnitPriceUSD,
		USDValue:           usd,
		Tier:               b.cfg.TierFor(usd),
		Multiplier:         multiplier,
		MembershipBaseline: baseline,
		BaseEntries:        base.IntPart(),
		FinalEntries:       final,
		IsEligible:         usd.GreaterThanOrEqual(b.cfg.MinEligibleUSD),
		SnapshotAt:         snap.TakenAt,
	}, nil
}

// USDValue converts a raw token amount to USD at price per whole token.
func USDValue(raw uint64, decimals uint8, price decimal.Decimal) decimal.Decimal {
	whole := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
	return whole.Mul(price)
}

// finalEntries computes (base + baseline) * multiplier, reporting overflow.
func finalEntries(base, baseline, multiplier int64) (int64, bool) {
	sum := base + baseline
	if sum < base {
		return 0, false
	}
	if multiplier != 0 && sum > math.MaxInt64/multiplier {
		return 0, false
	}
	return sum * multiplier, true
}
