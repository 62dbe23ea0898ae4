package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func TestDistributionStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	d := &domain.Distribution{
		ID:                "dist-1",
		TotalFeeAmount:    1_000_000_001,
		RewardAmount:      400_000_000,
		BurnAmount:        300_000_000,
		OpsAmount:         300_000_001,
		SourceTxSignature: "Sig1",
		Timestamp:         ts(1700000000),
	}
	require.NoError(t, store.Insert(ctx, d))

	got, err := store.GetBySignature(ctx, "Sig1")
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, d.TotalFeeAmount, got.TotalFeeAmount)
	assert.Equal(t, d.OpsAmount, got.OpsAmount)
	assert.True(t, got.Balanced())

	_, err = store.GetBySignature(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDistributionStore_DuplicateSignature(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	d := &domain.Distribution{
		ID: "dist-1", TotalFeeAmount: 10, RewardAmount: 4, BurnAmount: 3, OpsAmount: 3,
		SourceTxSignature: "Sig1", Timestamp: ts(1700000000),
	}
	require.NoError(t, store.Insert(ctx, d))

	again := *d
	again.ID = "dist-2"
	assert.ErrorIs(t, store.Insert(ctx, &again), storage.ErrDuplicateKey)
}

func TestDistributionStore_ListNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDistributionStore(pool)
	ctx := context.Background()

	for i, sig := range []string{"SigA", "SigB", "SigC"} {
		require.NoError(t, store.Insert(ctx, &domain.Distribution{
			ID: "dist-" + sig, TotalFeeAmount: 10, RewardAmount: 4, BurnAmount: 3, OpsAmount: 3,
			SourceTxSignature: sig, Timestamp: ts(1700000000 + int64(i)),
		}))
	}

	list, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SigC", list[0].SourceTxSignature)
	assert.Equal(t, "SigB", list[1].SourceTxSignature)
}

func TestDrawResultStore_InsertGetList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDrawResultStore(pool)
	ctx := context.Background()

	r := &domain.DrawResult{
		ID:                   "draw-1",
		WinningNumber:        35,
		WinnerAddress:        "Bbbb",
		WinnerEntries:        10,
		TotalEntries:         40,
		TotalEligibleHolders: 2,
		PrizeAmount:          400_000_000,
		LedgerDigest:         "abc123",
		Timestamp:            ts(1700000000),
	}
	require.NoError(t, store.Insert(ctx, r))
	assert.ErrorIs(t, store.Insert(ctx, r), storage.ErrDuplicateKey)

	got, err := store.GetByID(ctx, "draw-1")
	require.NoError(t, err)
	assert.Equal(t, r.WinnerAddress, got.WinnerAddress)
	assert.Equal(t, r.PrizeAmount, got.PrizeAmount)
	assert.Equal(t, r.LedgerDigest, got.LedgerDigest)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	list, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMembershipStore_UpsertAndActiveAt(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewMembershipStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, &domain.Membership{
		Address: "Aaaa", Plan: "gold", Multiplier: 2, BaselineEntries: 5, StartsAt: ts(1000),
	}))
	require.NoError(t, store.Upsert(ctx, &domain.Membership{
		Address: "Bbbb", Plan: "silver", Multiplier: 1, StartsAt: ts(1000), ExpiresAt: ptr(ts(2000)),
	}))
	// Upgrade replaces the row.
	require.NoError(t, store.Upsert(ctx, &domain.Membership{
		Address: "Aaaa", Plan: "platinum", Multiplier: 3, BaselineEntries: 10, StartsAt: ts(1000),
	}))

	active, err := store.ActiveAt(ctx, ts(1500))
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "platinum", active[0].Plan)
	assert.Equal(t, int64(3), active[0].Multiplier)

	active, err = store.ActiveAt(ctx, ts(2500))
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Aaaa", active[0].Address)

	assert.ErrorIs(t, store.Upsert(ctx, &domain.Membership{Address: "Cccc", Multiplier: 0}), storage.ErrInvalidInput)
}
