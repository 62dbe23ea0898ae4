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

// DrawResultStore implements storage.DrawResultStore using PostgreSQL.
type DrawResultStore struct {
	pool *Pool
}

// NewDrawResultStore creates a new DrawResultStore.
func NewDrawResultStore(pool *Pool) *DrawResultStore {
	return &DrawResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DrawResultStore = (*DrawResultStore)(nil)

const drawResultColumns = `id, winning_number, winner_address, winner_entries, total_entries,
	total_eligible_holders, prize_amount::text, ledger_digest, drawn_at`

// Insert adds a new draw result. Returns ErrDuplicateKey if id exists.
func (s *DrawResultStore) Insert(ctx context.Context, r *domain.DrawResult) (err error) {
	defer func(start time.Time) { observe("insert_draw_result", start, err) }(time.Now())

	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO draw_results (
			id, winning_number, winner_address, winner_entries, total_entries,
			total_eligible_holders, prize_amount, ledger_digest, drawn_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9)
	`

	_, err = s.pool.Exec(ctx, query,
		r.ID,
		r.WinningNumber,
		r.WinnerAddress,
		r.WinnerEntries,
		r.TotalEntries,
		r.TotalEligibleHolders,
		strconv.FormatUint(r.PrizeAmount, 10),
		r.LedgerDigest,
		r.Timestamp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert draw result: %w", err)
	}
	return nil
}

// GetByID retrieves a draw result by its ID. Returns ErrNotFound if not exists.
func (s *DrawResultStore) GetByID(ctx context.Context, id string) (*domain.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + ` FROM draw_results WHERE id = $1`

	r, err := scanDrawResult(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get draw result: %w", err)
	}
	return r, nil
}

// List retrieves the most recent draw results, newest first.
func (s *DrawResultStore) List(ctx context.Context, limit int) ([]*domain.DrawResult, error) {
	query := `SELECT ` + drawResultColumns + ` FROM draw_results ORDER BY drawn_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list draw results: %w", err)
	}
	defer rows.Close()

	var result []*domain.DrawResult
	for rows.Next() {
		r, err := scanDrawResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draw result: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate draw results: %w", err)
	}
	return result, nil
}

// scanDrawResult scans a row into DrawResult.
func scanDrawResult(row pgx.Row) (*domain.DrawResult, error) {
	var (
		r     domain.DrawResult
		prize string
	)
	err := row.Scan(
		&r.ID, &r.WinningNumber, &r.WinnerAddress, &r.WinnerEntries, &r.TotalEntries,
		&r.TotalEligibleHolders, &prize, &r.LedgerDigest, &r.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	if r.PrizeAmount, err = strconv.ParseUint(prize, 10, 64); err != nil {
		return nil, fmt.Errorf("parse prize amount: %w", err)
	}
	return &r, nil
}
