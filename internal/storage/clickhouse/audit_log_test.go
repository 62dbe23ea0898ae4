package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage/clickhouse"
	"holder-rewards/internal/storage/migrations"
)

// setupTestDB starts a ClickHouse container and applies the embedded migrations.
func setupTestDB(t *testing.T) *clickhouse.Conn {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://default@%s:%s/rewards_audit", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestAuditLog_RecordDraw(t *testing.T) {
	conn := setupTestDB(t)
	log := clickhouse.NewAuditLog(conn)
	ctx := context.Background()

	r := &domain.DrawResult{
		ID:                   "draw-1",
		WinningNumber:        35,
		WinnerAddress:        "B",
		WinnerEntries:        10,
		TotalEntries:         40,
		TotalEligibleHolders: 2,
		PrizeAmount:          1_000_000_000,
		LedgerDigest:         "abc",
		Timestamp:            time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, log.RecordDraw(ctx, r))
	require.NoError(t, log.RecordDraw(ctx, r))

	n, err := log.DrawCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestAuditLog_RecordDistribution(t *testing.T) {
	conn := setupTestDB(t)
	log := clickhouse.NewAuditLog(conn)
	ctx := context.Background()

	for i, amount := range []uint64{100, 7} {
		reward := amount * 4000 / 10000
		burn := amount * 3000 / 10000
		d := &domain.Distribution{
			ID:                fmt.Sprintf("dist-%d", i),
			TotalFeeAmount:    amount,
			RewardAmount:      reward,
			BurnAmount:        burn,
			OpsAmount:         amount - reward - burn,
			SourceTxSignature: fmt.Sprintf("sig-%d", i),
			Timestamp:         time.Date(2024, 1, 1, 12, i, 0, 0, time.UTC),
		}
		require.NoError(t, log.RecordDistribution(ctx, d))
	}

	reward, burn, ops, err := log.DistributedTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(40+2), reward)
	assert.Equal(t, uint64(30+2), burn)
	assert.Equal(t, uint64(107), reward+burn+ops)
}
