package exclusion

import (
	"context"
	"fmt"
	"sort"

	"holder-rewards/internal/domain"
)

// Filter splits ledger against the current active exclusions.
//
// eligible holds copies of records that can win: not excluded, eligible, with
// at least one entry. annotated holds a copy of every record with Excluded,
// ExclusionReason and ExcludedBy stamped from the active exclusion (or cleared).
// The input records are not modified.
func (m *Manager) Filter(ctx context.Context, ledger []*domain.HolderRecord) (eligible, annotated []*domain.HolderRecord, err error) {
	active, err := m.store.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list active exclusions: %w", err)
	}

	eligible, annotated = Apply(ledger, active)
	return eligible, annotated, nil
}

// Apply is the pure core of Filter.
func Apply(ledger []*domain.HolderRecord, active []*domain.ExclusionRecord) (eligible, annotated []*domain.HolderRecord) {
	byAddr := make(map[string]*domain.ExclusionRecord, len(active))
	for _, e := range active {
		if e.Active {
			byAddr[e.Address] = e
		}
	}

	annotated = make([]*domain.HolderRecord, 0, len(ledger))
	eligible = make([]*domain.HolderRecord, 0, len(ledger))

	for _, rec := range ledger {
		r := rec.Clone()
		if e, ok := byAddr[r.Address]; ok {
			r.Excluded = true
			r.ExclusionReason = e.Reason
			r.ExcludedBy = e.AppliedBy
		} else {
			r.Excluded = false
			r.ExclusionReason = ""
			r.ExcludedBy = ""
		}
		annotated = append(annotated, r)

		if r.DrawEntries() > 0 {
			eligible = append(eligible, r)
		}
	}

	return eligible, annotated
}

// ProgramOwnedAddresses returns the holders flagged as program-owned, sorted.
func ProgramOwnedAddresses(holdings []domain.RawHolding) []string {
	var out []string
	for _, h := range holdings {
		if h.ProgramOwned {
			out = append(out, h.Address)
		}
	}
	sort.Strings(out)
	return out
}
