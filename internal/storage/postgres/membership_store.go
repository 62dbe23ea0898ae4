package postgres

import (
	"context"
	"fmt"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// MembershipStore implements storage.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *Pool
}

// NewMembershipStore creates a new MembershipStore.
func NewMembershipStore(pool *Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MembershipStore = (*MembershipStore)(nil)

// Upsert inserts or replaces the membership for an address.
func (s *MembershipStore) Upsert(ctx context.Context, m *domain.Membership) error {
	if m == nil || m.Address == "" || m.Multiplier < 1 || m.BaselineEntries < 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO memberships (address, plan, multiplier, baseline_entries, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address) DO UPDATE SET
			plan = EXCLUDED.plan,
			multiplier = EXCLUDED.multiplier,
			baseline_entries = EXCLUDED.baseline_entries,
			starts_at = EXCLUDED.starts_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.pool.Exec(ctx, query, m.Address, m.Plan, m.Multiplier, m.BaselineEntries, m.StartsAt, m.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

// ActiveAt retrieves memberships in effect at t, ordered by address ASC.
func (s *MembershipStore) ActiveAt(ctx context.Context, t time.Time) ([]*domain.Membership, error) {
	query := `
		SELECT address, plan, multiplier, baseline_entries, starts_at, expires_at
		FROM memberships
		WHERE starts_at <= $1 AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("query memberships: %w", err)
	}
	defer rows.Close()

	var result []*domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.Address, &m.Plan, &m.Multiplier, &m.BaselineEntries, &m.StartsAt, &m.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return result, nil
}
