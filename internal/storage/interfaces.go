package storage

import (
	"context"
	"time"

	"holder-rewards/internal/domain"
)

// HolderStore provides access to holder_records storage.
// A resync overwrites the whole table rather than merging into it.
type HolderStore interface {
	// ReplaceSnapshot atomically replaces all holder records with records.
	// On error the previously stored snapshot is left untouched.
	ReplaceSnapshot(ctx context.Context, records []*domain.HolderRecord) error

	// List retrieves all holder records, ordered by address ASC.
	List(ctx context.Context) ([]*domain.HolderRecord, error)

	// SnapshotTime returns when the stored snapshot was taken. Returns ErrNotFound if empty.
	SnapshotTime(ctx context.Context) (time.Time, error)
}

// ExclusionStore provides access to exclusions storage.
// Records are never deleted; lifting an exclusion marks it inactive.
type ExclusionStore interface {
	// Insert adds a new active exclusion.
	// Returns ErrDuplicateKey if the address already has an active exclusion.
	Insert(ctx context.Context, e *domain.ExclusionRecord) error

	// GetActive retrieves the active exclusion for an address. Returns ErrNotFound if none.
	GetActive(ctx context.Context, address string) (*domain.ExclusionRecord, error)

	// Deactivate marks the exclusion with the given ID inactive.
	// Returns ErrNotFound if it does not exist or is already inactive.
	Deactivate(ctx context.Context, id, liftedBy string, liftedAt time.Time) error

	// ListActive retrieves all active exclusions, ordered by address ASC.
	ListActive(ctx context.Context) ([]*domain.ExclusionRecord, error)

	// History retrieves all exclusions for an address, ordered by applied_at ASC.
	History(ctx context.Context, address string) ([]*domain.ExclusionRecord, error)
}

// DrawResultStore provides access to draw_results storage (append-only).
type DrawResultStore interface {
	// Insert adds a new draw result. Returns ErrDuplicateKey if id exists.
	Insert(ctx context.Context, r *domain.DrawResult) error

	// GetByID retrieves a draw result by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.DrawResult, error)

	// List retrieves the most recent draw results, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*domain.DrawResult, error)
}

// DistributionStore provides access to distributions storage (append-only).
type DistributionStore interface {
	// Insert adds a new distribution. Returns ErrDuplicateKey if source_tx_signature exists.
	Insert(ctx context.Context, d *domain.Distribution) error

	// GetBySignature retrieves the distribution created from a transaction. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.Distribution, error)

	// List retrieves the most recent distributions, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*domain.Distribution, error)
}

// MembershipStore provides access to memberships storage.
type MembershipStore interface {
	// Upsert inserts or replaces the membership for an address.
	Upsert(ctx context.Context, m *domain.Membership) error

	// ActiveAt retrieves memberships in effect at t, ordered by address ASC.
	ActiveAt(ctx context.Context, t time.Time) ([]*domain.Membership, error)
}

// AuditLog is an append-only analytics log of draws and distributions.
type AuditLog interface {
	// RecordDraw appends a draw result.
	RecordDraw(ctx context.Context, r *domain.DrawResult) error

	// RecordDistribution appends a distribution.
	RecordDistribution(ctx context.Context, d *domain.Distribution) error
}
