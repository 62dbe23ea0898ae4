package reporting

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage/memory"
)

var snapAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func record(addr string, usd int64, tier domain.Tier, entries int64) *domain.HolderRecord {
	return &domain.HolderRecord{
		Address:      addr,
		RawBalance:   uint64(usd) * 1_000_000,
		Decimals:     6,
		UnitPriceUSD: decimal.NewFromInt(1),
		USDValue:     decimal.NewFromInt(usd),
		Tier:         tier,
		Multiplier:   1,
		BaseEntries:  entries,
		FinalEntries: entries,
		IsEligible:   entries > 0,
		SnapshotAt:   snapAt,
	}
}

func setupStores(t *testing.T) *Generator {
	ctx := context.Background()

	holders := memory.NewHolderStore()
	exclusions := memory.NewExclusionStore()
	draws := memory.NewDrawResultStore()
	dists := memory.NewDistributionStore()

	ledger := []*domain.HolderRecord{
		record("Alice", 300, domain.TierBronze, 30),
		record("Bob", 100, domain.TierBronze, 10),
		record("Carol", 5000, domain.TierSilver, 500),
		record("Dust", 5, domain.TierNone, 0),
	}
	if err := holders.ReplaceSnapshot(ctx, ledger); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	if err := exclusions.Insert(ctx, &domain.ExclusionRecord{
		ID:        "ex1",
		Address:   "Carol",
		Reason:    "treasury | vault",
		AppliedBy: domain.SystemActor,
		AppliedAt: snapAt,
		Active:    true,
	}); err != nil {
		t.Fatalf("Insert exclusion failed: %v", err)
	}

	if err := draws.Insert(ctx, &domain.DrawResult{
		ID:                   "d1",
		WinningNumber:        35,
		WinnerAddress:        "Bob",
		WinnerEntries:        10,
		TotalEntries:         40,
		TotalEligibleHolders: 2,
		PrizeAmount:          1000,
		LedgerDigest:         "abcdef0123456789",
		Timestamp:            snapAt.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Insert draw failed: %v", err)
	}

	for i, sig := range []string{"SigA", "SigB"} {
		if err := dists.Insert(ctx, &domain.Distribution{
			ID:                "dist-" + sig,
			TotalFeeAmount:    10,
			RewardAmount:      4,
			BurnAmount:        3,
			OpsAmount:         3,
			SourceTxSignature: sig,
			Timestamp:         snapAt.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Insert distribution failed: %v", err)
		}
	}

	return NewGenerator(holders, exclusions, draws, dists, 0).
		WithClock(func() time.Time { return snapAt.Add(2 * time.Hour) })
}

func TestGenerator_Generate(t *testing.T) {
	g := setupStores(t)

	r, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Ledger.TotalHolders != 4 {
		t.Errorf("Expected 4 holders, got %d", r.Ledger.TotalHolders)
	}
	if r.Ledger.EligibleHolders != 2 {
		t.Errorf("Expected 2 eligible holders, got %d", r.Ledger.EligibleHolders)
	}
	if r.Ledger.ExcludedHolders != 1 {
		t.Errorf("Expected 1 excluded holder, got %d", r.Ledger.ExcludedHolders)
	}
	if r.Ledger.TotalEntries != 40 {
		t.Errorf("Expected 40 entries, got %d", r.Ledger.TotalEntries)
	}
	if r.Ledger.SnapshotAt == nil || !r.Ledger.SnapshotAt.Equal(snapAt) {
		t.Errorf("Expected snapshot time %v, got %v", snapAt, r.Ledger.SnapshotAt)
	}

	if len(r.Tiers) != 4 {
		t.Fatalf("Expected 4 tier rows, got %d", len(r.Tiers))
	}
	bronze := r.Tiers[1]
	if bronze.Tier != domain.TierBronze || bronze.Holders != 2 || bronze.Entries != 40 {
		t.Errorf("Unexpected bronze row: %+v", bronze)
	}
	silver := r.Tiers[2]
	if silver.Holders != 1 || silver.Entries != 0 {
		t.Errorf("Excluded silver holder must contribute no entries: %+v", silver)
	}

	if r.DistributionTotals.Count != 2 || r.DistributionTotals.Total != 20 || r.DistributionTotals.Reward != 8 {
		t.Errorf("Unexpected distribution totals: %+v", r.DistributionTotals)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := setupStores(t)
	r, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Holder Rewards Report",
		"| Eligible Holders | 2 |",
		"| Total Entries | 40 |",
		"| bronze | 2 | 40 | 400.00 |",
		"treasury \\| vault",
		"| Bob | 35 | 10 | 40 | 2 | 1000 | abcdef012345 |",
		"| **Total (2)** | | 20 | 8 | 6 | 6 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_Empty(t *testing.T) {
	g := NewGenerator(memory.NewHolderStore(), memory.NewExclusionStore(), memory.NewDrawResultStore(), memory.NewDistributionStore(), 10)
	r, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if r.Ledger.SnapshotAt != nil {
		t.Errorf("Expected no snapshot time for empty ledger")
	}

	md := RenderMarkdown(r)
	for _, want := range []string{"| Snapshot | none |", "No active exclusions.", "No draws recorded.", "No distributions recorded."} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q", want)
		}
	}
}

func TestWriteLedgerCSV(t *testing.T) {
	ledger := []*domain.HolderRecord{
		record("Alice", 300, domain.TierBronze, 30),
		record("Carol", 5000, domain.TierSilver, 500),
	}
	ledger[1].Excluded = true
	ledger[1].ExclusionReason = "treasury, main"
	ledger[1].ExcludedBy = domain.SystemActor

	var buf bytes.Buffer
	checksum, err := WriteLedgerCSV(&buf, ledger)
	if err != nil {
		t.Fatalf("WriteLedgerCSV failed: %v", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	if checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("Checksum does not match written bytes")
	}

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("Read CSV failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "address" || rows[0][10] != "draw_entries" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][0] != "Alice" || rows[1][10] != "30" || rows[1][12] != "false" {
		t.Errorf("Unexpected Alice row: %v", rows[1])
	}
	if rows[2][10] != "0" || rows[2][12] != "true" || rows[2][13] != "treasury, main" {
		t.Errorf("Unexpected Carol row: %v", rows[2])
	}
}
