package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func TestHolderStore_ReplaceSnapshot(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := store.SnapshotTime(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty store, got %v", err)
	}

	first := []*domain.HolderRecord{
		{Address: "b", RawBalance: 2, SnapshotAt: at},
		{Address: "a", RawBalance: 1, SnapshotAt: at},
	}
	if err := store.ReplaceSnapshot(ctx, first); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	// Mutating the input must not leak into the store.
	first[0].RawBalance = 999

	got, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0].Address != "a" || got[1].RawBalance != 2 {
		t.Errorf("unexpected records: %+v %+v", got[0], got[1])
	}

	second := []*domain.HolderRecord{{Address: "c", RawBalance: 3, SnapshotAt: at.Add(time.Hour)}}
	if err := store.ReplaceSnapshot(ctx, second); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	got, _ = store.List(ctx)
	if len(got) != 1 || got[0].Address != "c" {
		t.Errorf("expected full replace, got %d records", len(got))
	}

	snap, _ := store.SnapshotTime(ctx)
	if !snap.Equal(at.Add(time.Hour)) {
		t.Errorf("unexpected snapshot time %v", snap)
	}
}

func TestHolderStore_ReplaceSnapshot_InvalidBatchKeepsPrevious(t *testing.T) {
	store := NewHolderStore()
	ctx := context.Background()

	if err := store.ReplaceSnapshot(ctx, []*domain.HolderRecord{{Address: "a"}}); err != nil {
		t.Fatalf("ReplaceSnapshot failed: %v", err)
	}

	bad := []*domain.HolderRecord{{Address: "x"}, {Address: "x"}}
	if err := store.ReplaceSnapshot(ctx, bad); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	got, _ := store.List(ctx)
	if len(got) != 1 || got[0].Address != "a" {
		t.Errorf("previous snapshot should be untouched, got %+v", got)
	}
}
