package clickhouse

import (
	"context"
	"fmt"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/storage"
)

// AuditLog implements storage.AuditLog using ClickHouse.
// Tables use ReplacingMergeTree, so replaying the same record is harmless.
type AuditLog struct {
	conn *Conn
}

// NewAuditLog creates a new AuditLog.
func NewAuditLog(conn *Conn) *AuditLog {
	return &AuditLog{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditLog = (*AuditLog)(nil)

// RecordDraw appends a draw result to draw_audit.
func (l *AuditLog) RecordDraw(ctx context.Context, r *domain.DrawResult) (err error) {
	if r == nil {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "record_draw", time.Since(start).Seconds(), err)
	}()

	batch, err := l.conn.PrepareBatch(ctx, `INSERT INTO draw_audit`)
	if err != nil {
		return fmt.Errorf("prepare draw batch: %w", err)
	}
	if err := batch.Append(
		r.ID,
		r.WinningNumber,
		r.WinnerAddress,
		r.WinnerEntries,
		r.TotalEntries,
		int32(r.TotalEligibleHolders),
		r.PrizeAmount,
		r.LedgerDigest,
		r.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("append draw: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send draw batch: %w", err)
	}
	return nil
}

// RecordDistribution appends a distribution to distribution_audit.
func (l *AuditLog) RecordDistribution(ctx context.Context, d *domain.Distribution) (err error) {
	if d == nil {
		return storage.ErrInvalidInput
	}
	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "record_distribution", time.Since(start).Seconds(), err)
	}()

	batch, err := l.conn.PrepareBatch(ctx, `INSERT INTO distribution_audit`)
	if err != nil {
		return fmt.Errorf("prepare distribution batch: %w", err)
	}
	if err := batch.Append(
		d.ID,
		d.TotalFeeAmount,
		d.RewardAmount,
		d.BurnAmount,
		d.OpsAmount,
		d.SourceTxSignature,
		d.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("append distribution: %w", err)
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send distribution batch: %w", err)
	}
	return nil
}

// DrawCount returns the number of distinct draws recorded.
func (l *AuditLog) DrawCount(ctx context.Context) (uint64, error) {
	var n uint64
	if err := l.conn.QueryRow(ctx, `SELECT uniqExact(id) FROM draw_audit`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count draws: %w", err)
	}
	return n, nil
}

// DistributedTotals returns the summed shares over all distinct distributions.
func (l *AuditLog) DistributedTotals(ctx context.Context) (reward, burn, ops uint64, err error) {
	query := `
		SELECT sum(reward_amount), sum(burn_amount), sum(ops_amount)
		FROM distribution_audit FINAL
	`
	if err := l.conn.QueryRow(ctx, query).Scan(&reward, &burn, &ops); err != nil {
		return 0, 0, 0, fmt.Errorf("sum distributions: %w", err)
	}
	return reward, burn, ops, nil
}
