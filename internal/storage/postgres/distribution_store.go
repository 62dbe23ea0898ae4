package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// DistributionStore implements storage.DistributionStore using PostgreSQL.
type DistributionStore struct {
	pool *Pool
}

// NewDistributionStore creates a new DistributionStore.
func NewDistributionStore(pool *Pool) *DistributionStore {
	return &DistributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DistributionStore = (*DistributionStore)(nil)

const distributionColumns = `id, total_fee_amount::text, reward_amount::text, burn_amount::text,
	ops_amount::text, source_tx_signature, created_at`

// Insert adds a new distribution. Returns ErrDuplicateKey if id or source_tx_signature exists.
func (s *DistributionStore) Insert(ctx context.Context, d *domain.Distribution) (err error) {
	defer func(start time.Time) { observe("insert_distribution", start, err) }(time.Now())

	if d == nil || d.ID == "" || d.SourceTxSignature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO distributions (
			id, total_fee_amount, reward_amount, burn_amount, ops_amount, source_tx_signature, created_at
		) VALUES ($1, $2::numeric, $3::numeric, $4::numeric, $5::numeric, $6, $7)
	`

	_, err = s.pool.Exec(ctx, query,
		d.ID,
		strconv.FormatUint(d.TotalFeeAmount, 10),
		strconv.FormatUint(d.RewardAmount, 10),
		strconv.FormatUint(d.BurnAmount, 10),
		strconv.FormatUint(d.OpsAmount, 10),
		d.SourceTxSignature,
		d.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert distribution: %w", err)
	}
	return nil
}

// GetBySignature retrieves the distribution created from a transaction.
func (s *DistributionStore) GetBySignature(ctx context.Context, signature string) (*domain.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE source_tx_signature = $1`

	d, err := scanDistribution(s.pool.QueryRow(ctx, query, signature))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get distribution: %w", err)
	}
	return d, nil
}

// List retrieves the most recent distributions, newest first.
func (s *DistributionStore) List(ctx context.Context, limit int) ([]*domain.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}
	return result, nil
}

// scanDistribution scans a row into Distribution.
func scanDistribution(row pgx.Row) (*domain.Distribution, error) {
	var (
		d                       domain.Distribution
		total, reward, burn, op string
	)
	err := row.Scan(&d.ID, &total, &reward, &burn, &op, &d.SourceTxSignature, &d.Timestamp)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		src string
		dst *uint64
	}{
		{total, &d.TotalFeeAmount},
		{reward, &d.RewardAmount},
		{burn, &d.BurnAmount},
		{op, &d.OpsAmount},
	} {
		v, err := strconv.ParseUint(f.src, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", f.src, err)
		}
		*f.dst = v
	}
	return &d, nil
}
