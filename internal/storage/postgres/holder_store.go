package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// ReplaceSnapshot atomically replaces all holder records in one transaction.
// Readers see either the previous snapshot or the new one, never a mix.
func (s *HolderStore) ReplaceSnapshot(ctx context.Context, records []*domain.HolderRecord) (err error) {
	defer func(start time.Time) { observe("replace_holders", start, err) }(time.Now())

	for _, r := range records {
		if r == nil || r.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM holder_records`); err != nil {
		return fmt.Errorf("clear holder records: %w", err)
	}

	query := `
		INSERT INTO holder_records (
			address, raw_balance, decimals, unit_price_usd, usd_value, tier,
			multiplier, membership_baseline, base_entries, final_entries, is_eligible,
			excluded, exclusion_reason, excluded_by, snapshot_at
		) VALUES ($1, $2::numeric, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(query,
			r.Address,
			strconv.FormatUint(r.RawBalance, 10),
			int16(r.Decimals),
			r.UnitPriceUSD.String(),
			r.USDValue.String(),
			string(r.Tier),
			r.Multiplier,
			r.MembershipBaseline,
			r.BaseEntries,
			r.FinalEntries,
			r.IsEligible,
			r.Excluded,
			r.ExclusionReason,
			r.ExcludedBy,
			r.SnapshotAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert holder record: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// List retrieves all holder records, ordered by address ASC.
func (s *HolderStore) List(ctx context.Context) ([]*domain.HolderRecord, error) {
	query := `
		SELECT address, raw_balance::text, decimals, unit_price_usd::text, usd_value::text, tier,
			multiplier, membership_baseline, base_entries, final_entries, is_eligible,
			excluded, exclusion_reason, excluded_by, snapshot_at
		FROM holder_records
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list holder records: %w", err)
	}
	defer rows.Close()

	var result []*domain.HolderRecord
	for rows.Next() {
		r, err := scanHolderRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder records: %w", err)
	}

	return result, nil
}

// SnapshotTime returns when the stored snapshot was taken.
func (s *HolderStore) SnapshotTime(ctx context.Context) (time.Time, error) {
	var at *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT max(snapshot_at) FROM holder_records`).Scan(&at); err != nil {
		return time.Time{}, fmt.Errorf("get snapshot time: %w", err)
	}
	if at == nil {
		return time.Time{}, storage.ErrNotFound
	}
	return *at, nil
}

// scanHolderRecord scans a row into HolderRecord.
func scanHolderRecord(row pgx.Row) (*domain.HolderRecord, error) {
	var (
		r                      domain.HolderRecord
		rawBalance, price, usd string
		decimals               int16
		tier                   string
	)

	err := row.Scan(
		&r.Address, &rawBalance, &decimals, &price, &usd, &tier,
		&r.Multiplier, &r.MembershipBaseline, &r.BaseEntries, &r.FinalEntries, &r.IsEligible,
		&r.Excluded, &r.ExclusionReason, &r.ExcludedBy, &r.SnapshotAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan holder record: %w", err)
	}

	if r.RawBalance, err = strconv.ParseUint(rawBalance, 10, 64); err != nil {
		return nil, fmt.Errorf("parse raw balance of %s: %w", r.Address, err)
	}
	if r.UnitPriceUSD, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse unit price of %s: %w", r.Address, err)
	}
	if r.USDValue, err = decimal.NewFromString(usd); err != nil {
		return nil, fmt.Errorf("parse usd value of %s: %w", r.Address, err)
	}
	r.Decimals = uint8(decimals)
	r.Tier = domain.Tier(tier)

	return &r, nil
}
