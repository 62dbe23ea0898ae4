package idhash

import (
	"testing"

	"holder-rewards/internal/domain"
)

func TestComputeDistributionID(t *testing.T) {
	tests := []struct {
		name string
		sig  string
	}{
		{name: "typical signature", sig: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"},
		{name: "short signature", sig: "sig"},
		{name: "empty signature", sig: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDistributionID(tt.sig)
			if len(got) != 64 {
				t.Errorf("ComputeDistributionID() length = %d, want 64", len(got))
			}
			if again := ComputeDistributionID(tt.sig); again != got {
				t.Errorf("ComputeDistributionID() not deterministic: %s != %s", again, got)
			}
		})
	}

	if ComputeDistributionID("a") == ComputeDistributionID("b") {
		t.Error("Different signatures should produce different ids")
	}
}

func TestComputeLedgerDigest(t *testing.T) {
	ranges := []domain.EntryRange{
		{Address: "A", Start: 1, End: 30},
		{Address: "B", Start: 31, End: 40},
	}

	base := ComputeLedgerDigest(ranges)
	if len(base) != 64 {
		t.Fatalf("ComputeLedgerDigest() length = %d, want 64", len(base))
	}
	if ComputeLedgerDigest(ranges) != base {
		t.Error("ComputeLedgerDigest() should be deterministic")
	}

	// Moving a boundary changes the digest.
	shifted := []domain.EntryRange{
		{Address: "A", Start: 1, End: 31},
		{Address: "B", Start: 32, End: 40},
	}
	if ComputeLedgerDigest(shifted) == base {
		t.Error("Different boundaries should produce different digest")
	}

	// Order matters.
	swapped := []domain.EntryRange{ranges[1], ranges[0]}
	if ComputeLedgerDigest(swapped) == base {
		t.Error("Different order should produce different digest")
	}

	// "A|1|3" + "0" vs "A|1|30" must not collide across records.
	a := []domain.EntryRange{{Address: "A", Start: 1, End: 3}, {Address: "0", Start: 4, End: 4}}
	b := []domain.EntryRange{{Address: "A", Start: 1, End: 30}}
	if ComputeLedgerDigest(a) == ComputeLedgerDigest(b) {
		t.Error("Record separator should prevent collisions")
	}

	if ComputeLedgerDigest(nil) == base {
		t.Error("Empty ledger digest should differ")
	}
}
