package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// ExclusionStore implements storage.ExclusionStore using PostgreSQL.
// The partial unique index on (address) WHERE active enforces one active exclusion per address.
type ExclusionStore struct {
	pool *Pool
}

// NewExclusionStore creates a new ExclusionStore.
func NewExclusionStore(pool *Pool) *ExclusionStore {
	return &ExclusionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ExclusionStore = (*ExclusionStore)(nil)

const exclusionColumns = `id, address, reason, applied_by, applied_at, active, lifted_by, lifted_at`

// Insert adds a new active exclusion.
// Returns ErrDuplicateKey if the address already has an active exclusion.
func (s *ExclusionStore) Insert(ctx context.Context, e *domain.ExclusionRecord) (err error) {
	defer func(start time.Time) { observe("insert_exclusion", start, err) }(time.Now())

	if e == nil || e.ID == "" || e.Address == "" || !e.Active {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO exclusions (id, address, reason, applied_by, applied_at, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`

	_, err = s.pool.Exec(ctx, query, e.ID, e.Address, e.Reason, e.AppliedBy, e.AppliedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert exclusion: %w", err)
	}
	return nil
}

// GetActive retrieves the active exclusion for an address. Returns ErrNotFound if none.
func (s *ExclusionStore) GetActive(ctx context.Context, address string) (*domain.ExclusionRecord, error) {
	query := `SELECT ` + exclusionColumns + ` FROM exclusions WHERE address = $1 AND active`

	e, err := scanExclusion(s.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get active exclusion: %w", err)
	}
	return e, nil
}

// Deactivate marks the exclusion with the given ID inactive.
func (s *ExclusionStore) Deactivate(ctx context.Context, id, liftedBy string, liftedAt time.Time) (err error) {
	defer func(start time.Time) { observe("deactivate_exclusion", start, err) }(time.Now())

	query := `
		UPDATE exclusions
		SET active = FALSE, lifted_by = $2, lifted_at = $3
		WHERE id = $1 AND active
	`

	tag, err := s.pool.Exec(ctx, query, id, liftedBy, liftedAt)
	if err != nil {
		return fmt.Errorf("deactivate exclusion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListActive retrieves all active exclusions, ordered by address ASC.
func (s *ExclusionStore) ListActive(ctx context.Context) ([]*domain.ExclusionRecord, error) {
	query := `SELECT ` + exclusionColumns + ` FROM exclusions WHERE active ORDER BY address ASC`
	return s.query(ctx, query)
}

// History retrieves all exclusions for an address, ordered by applied_at ASC.
func (s *ExclusionStore) History(ctx context.Context, address string) ([]*domain.ExclusionRecord, error) {
	query := `SELECT ` + exclusionColumns + ` FROM exclusions WHERE address = $1 ORDER BY applied_at ASC, id ASC`
	return s.query(ctx, query, address)
}

func (s *ExclusionStore) query(ctx context.Context, query string, args ...interface{}) ([]*domain.ExclusionRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExclusionRecord
	for rows.Next() {
		e, err := scanExclusion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return result, nil
}

// scanExclusion scans a row into ExclusionRecord.
func scanExclusion(row pgx.Row) (*domain.ExclusionRecord, error) {
	var e domain.ExclusionRecord
	err := row.Scan(&e.ID, &e.Address, &e.Reason, &e.AppliedBy, &e.AppliedAt, &e.Active, &e.LiftedBy, &e.LiftedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
