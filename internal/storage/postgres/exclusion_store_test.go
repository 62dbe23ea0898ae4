package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

func TestExclusionStore_InsertAndGetActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExclusionStore(pool)
	ctx := context.Background()

	e := &domain.ExclusionRecord{
		ID:        "ex-1",
		Address:   "Wallet1",
		Reason:    "team wallet",
		AppliedBy: "admin",
		AppliedAt: ts(1700000000),
		Active:    true,
	}
	require.NoError(t, store.Insert(ctx, e))

	got, err := store.GetActive(ctx, "Wallet1")
	require.NoError(t, err)
	assert.Equal(t, "ex-1", got.ID)
	assert.Equal(t, "team wallet", got.Reason)
	assert.True(t, got.Active)
	assert.Nil(t, got.LiftedBy)
	assert.Nil(t, got.LiftedAt)

	// Second active exclusion for the same address is rejected.
	dup := *e
	dup.ID = "ex-2"
	assert.ErrorIs(t, store.Insert(ctx, &dup), storage.ErrDuplicateKey)
}

func TestExclusionStore_DeactivateAndHistory(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExclusionStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.ExclusionRecord{
		ID: "ex-1", Address: "Wallet1", Reason: "r1", AppliedBy: "admin", AppliedAt: ts(1700000000), Active: true,
	}))
	require.NoError(t, store.Deactivate(ctx, "ex-1", "admin", ts(1700000100)))

	_, err := store.GetActive(ctx, "Wallet1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Already inactive.
	assert.ErrorIs(t, store.Deactivate(ctx, "ex-1", "admin", ts(1700000200)), storage.ErrNotFound)

	// Re-exclusion after lift is allowed.
	require.NoError(t, store.Insert(ctx, &domain.ExclusionRecord{
		ID: "ex-2", Address: "Wallet1", Reason: "r2", AppliedBy: "admin", AppliedAt: ts(1700000300), Active: true,
	}))

	history, err := store.History(ctx, "Wallet1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "ex-1", history[0].ID)
	assert.False(t, history[0].Active)
	require.NotNil(t, history[0].LiftedBy)
	assert.Equal(t, "admin", *history[0].LiftedBy)
	require.NotNil(t, history[0].LiftedAt)
	assert.True(t, ts(1700000100).Equal(*history[0].LiftedAt))
	assert.True(t, history[1].Active)
}

func TestExclusionStore_ListActive(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExclusionStore(pool)
	ctx := context.Background()

	for _, addr := range []string{"Cccc", "Aaaa", "Bbbb"} {
		require.NoError(t, store.Insert(ctx, &domain.ExclusionRecord{
			ID: "ex-" + addr, Address: addr, Reason: domain.ReasonSystemAddress,
			AppliedBy: domain.SystemActor, AppliedAt: ts(1700000000), Active: true,
		}))
	}
	require.NoError(t, store.Deactivate(ctx, "ex-Bbbb", domain.SystemActor, ts(1700000001)))

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Aaaa", active[0].Address)
	assert.Equal(t, "Cccc", active[1].Address)
	assert.True(t, active[0].IsSystem())
}

func TestExclusionStore_InsertInvalid(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	err := NewExclusionStore(pool).Insert(context.Background(), &domain.ExclusionRecord{ID: "x", Active: true})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
