package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Holder Rewards Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Ledger
	sb.WriteString("## Ledger\n\n")
	snapAt := "none"
	if r.Ledger.SnapshotAt != nil {
		snapAt = r.Ledger.SnapshotAt.UTC().Format(time.RFC3339)
	}
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Snapshot | %s |\n", snapAt))
	sb.WriteString(fmt.Sprintf("| Holders | %d |\n", r.Ledger.TotalHolders))
	sb.WriteString(fmt.Sprintf("| Eligible Holders | %d |\n", r.Ledger.EligibleHolders))
	sb.WriteString(fmt.Sprintf("| Excluded Holders | %d |\n", r.Ledger.ExcludedHolders))
	sb.WriteString(fmt.Sprintf("| Total Entries | %d |\n", r.Ledger.TotalEntries))
	sb.WriteString(fmt.Sprintf("| Total USD Value | %s |\n", r.Ledger.TotalUSDValue.StringFixed(2)))
	sb.WriteString("\n")

	// Tiers
	sb.WriteString("### Tiers\n\n")
	sb.WriteString("| Tier | Holders | Entries | USD Value |\n")
	sb.WriteString("|------|---------|---------|-----------|\n")
	for _, t := range r.Tiers {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", t.Tier, t.Holders, t.Entries, t.USDValue.StringFixed(2)))
	}
	sb.WriteString("\n")

	// Exclusions
	sb.WriteString("## Active Exclusions\n\n")
	if len(r.Exclusions) > 0 {
		sb.WriteString("| Address | Reason | Applied By | Applied At |\n")
		sb.WriteString("|---------|--------|------------|------------|\n")
		for _, e := range r.Exclusions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				e.Address, escapeCell(e.Reason), e.AppliedBy, e.AppliedAt.UTC().Format(time.RFC3339)))
		}
	} else {
		sb.WriteString("No active exclusions.\n")
	}
	sb.WriteString("\n")

	// Draws
	sb.WriteString("## Draws\n\n")
	if len(r.Draws) > 0 {
		sb.WriteString("| Time | Winner | Winning Number | Winner Entries | Total Entries | Holders | Prize | Ledger Digest |\n")
		sb.WriteString("|------|--------|----------------|----------------|---------------|---------|-------|---------------|\n")
		for _, d := range r.Draws {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d | %d | %s |\n",
				d.Timestamp.UTC().Format(time.RFC3339), d.WinnerAddress, d.WinningNumber, d.WinnerEntries,
				d.TotalEntries, d.TotalEligibleHolders, d.PrizeAmount, shortDigest(d.LedgerDigest)))
		}
	} else {
		sb.WriteString("No draws recorded.\n")
	}
	sb.WriteString("\n")

	// Distributions
	sb.WriteString("## Distributions\n\n")
	if len(r.Distributions) > 0 {
		sb.WriteString("| Time | Signature | Total | Reward | Burn | Ops |\n")
		sb.WriteString("|------|-----------|-------|--------|------|-----|\n")
		for _, d := range r.Distributions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d | %d | %d |\n",
				d.Timestamp.UTC().Format(time.RFC3339), d.SourceTxSignature,
				d.TotalFeeAmount, d.RewardAmount, d.BurnAmount, d.OpsAmount))
		}
		t := r.DistributionTotals
		sb.WriteString(fmt.Sprintf("| **Total (%d)** | | %d | %d | %d | %d |\n", t.Count, t.Total, t.Reward, t.Burn, t.Ops))
	} else {
		sb.WriteString("No distributions recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
