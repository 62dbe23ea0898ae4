package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/exclusion"
	"holder-rewards/internal/storage"
)

var tierOrder = []domain.Tier{domain.TierNone, domain.TierBronze, domain.TierSilver, domain.TierGold}

// Generator produces reports from stored data.
type Generator struct {
	holders       storage.HolderStore
	exclusions    storage.ExclusionStore
	draws         storage.DrawResultStore
	distributions storage.DistributionStore
	limit         int
	now           func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
// limit bounds the listed draws and distributions; <= 0 lists all.
func NewGenerator(
	holders storage.HolderStore,
	exclusions storage.ExclusionStore,
	draws storage.DrawResultStore,
	distributions storage.DistributionStore,
	limit int,
) *Generator {
	return &Generator{
		holders:       holders,
		exclusions:    exclusions,
		draws:         draws,
		distributions: distributions,
		limit:         limit,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	records, err := g.holders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	active, err := g.exclusions.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}
	eligible, annotated := exclusion.Apply(records, active)

	draws, err := g.draws.List(ctx, g.limit)
	if err != nil {
		return nil, fmt.Errorf("load draws: %w", err)
	}
	dists, err := g.distributions.List(ctx, g.limit)
	if err != nil {
		return nil, fmt.Errorf("load distributions: %w", err)
	}

	r := &Report{
		GeneratedAt:   g.now(),
		Exclusions:    active,
		Draws:         draws,
		Distributions: dists,
	}

	r.Ledger, r.Tiers = summarizeLedger(annotated, eligible)

	snapAt, err := g.holders.SnapshotTime(ctx)
	switch {
	case err == nil:
		r.Ledger.SnapshotAt = &snapAt
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load snapshot time: %w", err)
	}

	for _, d := range dists {
		r.DistributionTotals.Count++
		r.DistributionTotals.Total += d.TotalFeeAmount
		r.DistributionTotals.Reward += d.RewardAmount
		r.DistributionTotals.Burn += d.BurnAmount
		r.DistributionTotals.Ops += d.OpsAmount
	}

	return r, nil
}

func summarizeLedger(annotated, eligible []*domain.HolderRecord) (LedgerSummary, []TierRow) {
	summary := LedgerSummary{
		TotalHolders:    len(annotated),
		EligibleHolders: len(eligible),
		TotalUSDValue:   decimal.Zero,
	}

	byTier := make(map[domain.Tier]*TierRow, len(tierOrder))
	for _, t := range tierOrder {
		byTier[t] = &TierRow{Tier: t, USDValue: decimal.Zero}
	}

	for _, rec := range annotated {
		if rec.Excluded {
			summary.ExcludedHolders++
		}
		summary.TotalEntries += rec.DrawEntries()
		summary.TotalUSDValue = summary.TotalUSDValue.Add(rec.USDValue)

		row, ok := byTier[rec.Tier]
		if !ok {
			continue
		}
		row.Holders++
		row.Entries += rec.DrawEntries()
		row.USDValue = row.USDValue.Add(rec.USDValue)
	}

	tiers := make([]TierRow, 0, len(tierOrder))
	for _, t := range tierOrder {
		tiers = append(tiers, *byTier[t])
	}
	return summary, tiers
}
