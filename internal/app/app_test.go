package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holder-rewards/internal/config"
	"holder-rewards/internal/domain"
	"holder-rewards/internal/solana"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	feeVault = "So11111111111111111111111111111111111111112"
)

func validConfig() *config.Config {
	return &config.Config{
		RPCEndpoint:            "http://127.0.0.1:1",
		RPCRateLimit:           5,
		TokenMint:              usdcMint,
		TokenProgramID:         solana.TokenProgramID,
		PriceSource:            config.PriceSourceStatic,
		StaticPriceUSD:         decimal.NewFromInt(1),
		EntryUnitUSD:           decimal.NewFromInt(10),
		MinEligibleUSD:         decimal.NewFromInt(10),
		MinRawBalance:          1,
		TierBronzeUSD:          decimal.NewFromInt(100),
		TierSilverUSD:          decimal.NewFromInt(1000),
		TierGoldUSD:            decimal.NewFromInt(10000),
		FeeSourcePrograms:      []string{solana.TokenProgramID},
		MinRewardLamports:      10_000_000,
		MaxDailyRewardLamports: 100_000_000_000,
		RewardBps:              4000,
		BurnBps:                3000,
		MatchToleranceLamports: 5000,
		VerifyWindow:           10,
		PollInterval:           30 * time.Second,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return l
}

func TestBuild_MemoryWithoutMonitor(t *testing.T) {
	a, err := Build(context.Background(), validConfig(), Options{UseMemory: true, Logger: quietLogger()})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Service)
	require.NotNil(t, a.Stores.Audit)
	assert.Nil(t, a.Monitor)

	err = a.Service.StartMonitor(context.Background())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_MonitorAttached(t *testing.T) {
	cfg := validConfig()
	cfg.FeeVaultAddress = feeVault

	a, err := Build(context.Background(), cfg, Options{UseMemory: true, WithMonitor: true, Logger: quietLogger()})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Monitor)
	status := a.Service.Status()
	require.NotNil(t, status.Monitor)
	assert.False(t, status.IsMonitoring)
}

func TestBuild_MonitorSettingsMissing(t *testing.T) {
	// No fee vault: the engine still builds, only the monitor is skipped
	a, err := Build(context.Background(), validConfig(), Options{UseMemory: true, WithMonitor: true, Logger: quietLogger()})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Monitor)
}

func TestBuild_InvalidConfig(t *testing.T) {
	cfg := validConfig()
	cfg.TokenMint = "not-a-mint"

	_, err := Build(context.Background(), cfg, Options{UseMemory: true, Logger: quietLogger()})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_PostgresRequired(t *testing.T) {
	_, err := Build(context.Background(), validConfig(), Options{Logger: quietLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestLedgerConfig(t *testing.T) {
	lc := LedgerConfig(validConfig())
	require.NoError(t, lc.Validate())

	assert.Equal(t, domain.TierNone, lc.TierFor(decimal.NewFromInt(99)))
	assert.Equal(t, domain.TierBronze, lc.TierFor(decimal.NewFromInt(100)))
	assert.Equal(t, domain.TierSilver, lc.TierFor(decimal.NewFromInt(5000)))
	assert.Equal(t, domain.TierGold, lc.TierFor(decimal.NewFromInt(10000)))
}

func TestConfigureLogging(t *testing.T) {
	prevLevel, prevFormatter := log.GetLevel(), log.StandardLogger().Formatter
	defer func() {
		log.SetLevel(prevLevel)
		log.SetFormatter(prevFormatter)
	}()

	require.NoError(t, ConfigureLogging("debug", "json"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, ConfigureLogging("loud", "text"))
}
