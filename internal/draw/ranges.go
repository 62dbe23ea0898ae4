package draw

import (
	"fmt"
	"math"
	"sort"

	"holder-rewards/internal/domain"
)

// BuildRanges assigns consecutive entry numbers starting at 1 to the ledger,
// stable-sorted by address. Records with zero entries get no range.
//
// The ledger must already be filtered: an excluded or ineligible record, a
// negative entry count or a repeated address fails with ErrInvariantViolation.
// The same ledger always yields the same ranges.
func BuildRanges(ledger []*domain.HolderRecord) ([]domain.EntryRange, int64, error) {
	sorted := make([]*domain.HolderRecord, 0, len(ledger))
	for _, r := range ledger {
		if r == nil {
			return nil, 0, fmt.Errorf("%w: nil record in draw ledger", domain.ErrInvariantViolation)
		}
		sorted = append(sorted, r)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})

	ranges := make([]domain.EntryRange, 0, len(sorted))
	var total int64

	for i, r := range sorted {
		switch {
		case r.Excluded:
			return nil, 0, fmt.Errorf("%w: excluded address %s reached the draw", domain.ErrInvariantViolation, r.Address)
		case !r.IsEligible:
			return nil, 0, fmt.Errorf("%w: ineligible address %s reached the draw", domain.ErrInvariantViolation, r.Address)
		case r.FinalEntries < 0:
			return nil, 0, fmt.Errorf("%w: negative entries for %s", domain.ErrInvariantViolation, r.Address)
		case i > 0 && sorted[i-1].Address == r.Address:
			return nil, 0, fmt.Errorf("%w: duplicate address %s in draw ledger", domain.ErrInvariantViolation, r.Address)
		}

		if r.FinalEntries == 0 {
			continue
		}
		if total > math.MaxInt64-r.FinalEntries {
			return nil, 0, fmt.Errorf("%w: total entries overflow", domain.ErrInvariantViolation)
		}

		ranges = append(ranges, domain.EntryRange{
			Address: r.Address,
			Start:   total + 1,
			End:     total + r.FinalEntries,
		})
		total += r.FinalEntries
	}

	return ranges, total, nil
}

// Locate returns the index of the range containing n by binary search over
// range ends. ok is false when n is outside [1, last End].
func Locate(ranges []domain.EntryRange, n int64) (idx int, ok bool) {
	idx = sort.Search(len(ranges), func(i int) bool {
		return ranges[i].End >= n
	})
	if idx == len(ranges) || !ranges[idx].Contains(n) {
		return -1, false
	}
	return idx, true
}
