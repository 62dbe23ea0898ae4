// Package app assembles the rewards engine from configuration. Both binaries
// build on it so the server and the CLI share one wiring.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/config"
	"holder-rewards/internal/distribution"
	"holder-rewards/internal/domain"
	"holder-rewards/internal/draw"
	"holder-rewards/internal/exclusion"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/monitor"
	"holder-rewards/internal/rewards"
	"holder-rewards/internal/snapshot"
	"holder-rewards/internal/solana"
	"holder-rewards/internal/storage"
	chstore "holder-rewards/internal/storage/clickhouse"
	"holder-rewards/internal/storage/memory"
	"holder-rewards/internal/storage/migrations"
	pgstore "holder-rewards/internal/storage/postgres"
)

// Stores groups the persistence layer.
type Stores struct {
	Holders       storage.HolderStore
	Exclusions    storage.ExclusionStore
	Draws         storage.DrawResultStore
	Distributions storage.DistributionStore
	Memberships   storage.MembershipStore
	Audit         storage.AuditLog // nil when ClickHouse is not configured
}

// App is a fully wired engine.
type App struct {
	Config     *config.Config
	Stores     *Stores
	Exclusions *exclusion.Manager
	Service    *rewards.Service
	Monitor    *monitor.Monitor // nil when the fee monitor is not configured

	closers []func()
}

// Options controls how Build wires the engine.
type Options struct {
	UseMemory   bool // in-memory stores instead of PostgreSQL
	WithMonitor bool // build the fee monitor when its settings validate
	Logger      log.FieldLogger
}

// ConfigureLogging applies level and format to the standard logger.
func ConfigureLogging(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(lvl)
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Build connects storage, chain clients and components. The caller must
// call Close when done.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg}
	stores, err := a.openStores(ctx, cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Stores = stores

	clock := clockwork.NewRealClock()
	rpc := solana.NewHTTPClient(cfg.RPCEndpoint,
		solana.WithRateLimit(cfg.RPCRateLimit, rateBurst(cfg.RPCRateLimit)),
	)

	var prices snapshot.PriceSource
	switch cfg.PriceSource {
	case config.PriceSourceStatic:
		prices = snapshot.StaticPriceSource{Price: cfg.StaticPriceUSD}
	default:
		prices = snapshot.NewJupiterPriceSource(cfg.PriceAPIURL, cfg.TokenMint, &http.Client{Timeout: 10 * time.Second})
	}
	holders := snapshot.NewRPCHolderSource(snapshot.RPCHolderSourceOptions{
		RPC:          rpc,
		Mint:         cfg.TokenMint,
		TokenProgram: cfg.TokenProgramID,
		Logger:       opts.Logger,
	})

	builder, err := ledger.NewBuilder(LedgerConfig(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Exclusions = exclusion.NewManager(exclusion.ManagerOptions{
		Store:  stores.Exclusions,
		Clock:  clock,
		Logger: opts.Logger,
	})

	system := make([]exclusion.SystemAddress, 0, len(cfg.SystemAddresses))
	for _, addr := range cfg.SystemAddresses {
		system = append(system, exclusion.SystemAddress{Address: addr, Reason: "configured system address"})
	}

	a.Service, err = rewards.NewService(rewards.Options{
		Snapshot:            snapshot.NewFetcher(cfg.TokenMint, holders, prices, clock),
		Memberships:         ledger.NewStoreMembershipLookup(stores.Memberships),
		Builder:             builder,
		Exclusions:          a.Exclusions,
		Engine:              draw.NewEngine(draw.EngineOptions{Clock: clock, Logger: opts.Logger}),
		Holders:             stores.Holders,
		Draws:               stores.Draws,
		Distributions:       stores.Distributions,
		Audit:               stores.Audit,
		SystemAddresses:     system,
		ExcludeProgramOwned: cfg.ExcludeProgramOwned,
		Clock:               clock,
		Logger:              opts.Logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	if !opts.WithMonitor {
		return a, nil
	}
	if err := cfg.ValidateMonitor(); err != nil {
		opts.Logger.WithError(err).Warn("Fee monitor not configured")
		return a, nil
	}
	if err := a.buildMonitor(ctx, cfg, rpc, clock, opts.Logger); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// LedgerConfig maps configuration onto the ledger constants.
func LedgerConfig(cfg *config.Config) ledger.Config {
	return ledger.Config{
		EntryUnitUSD:   cfg.EntryUnitUSD,
		MinEligibleUSD: cfg.MinEligibleUSD,
		MinRawBalance:  cfg.MinRawBalance,
		Tiers: []ledger.TierThreshold{
			{Tier: domain.TierBronze, MinUSD: cfg.TierBronzeUSD},
			{Tier: domain.TierSilver, MinUSD: cfg.TierSilverUSD},
			{Tier: domain.TierGold, MinUSD: cfg.TierGoldUSD},
		},
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config, opts Options) (*Stores, error) {
	logger := opts.Logger.WithField("component", "storage")

	if opts.UseMemory {
		logger.Warn("Using in-memory storage, state is lost on exit")
		return &Stores{
			Holders:       memory.NewHolderStore(),
			Exclusions:    memory.NewExclusionStore(),
			Draws:         memory.NewDrawResultStore(),
			Distributions: memory.NewDistributionStore(),
			Memberships:   memory.NewMembershipStore(),
			Audit:         memory.NewAuditLog(),
		}, nil
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required (use --use-memory for in-memory storage)")
	}
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.WithField("applied", applied).Info("PostgreSQL ready")

	stores := &Stores{
		Holders:       pgstore.NewHolderStore(pool),
		Exclusions:    pgstore.NewExclusionStore(pool),
		Draws:         pgstore.NewDrawResultStore(pool),
		Distributions: pgstore.NewDistributionStore(pool),
		Memberships:   pgstore.NewMembershipStore(pool),
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, func() { conn.Close() })
		stores.Audit = chstore.NewAuditLog(conn)
		logger.Info("ClickHouse audit log ready")
	}

	return stores, nil
}

func (a *App) buildMonitor(ctx context.Context, cfg *config.Config, rpc *solana.HTTPClient, clock clockwork.Clock, logger log.FieldLogger) error {
	splitter, err := distribution.NewSplitter(distribution.Config{
		RewardBps:      cfg.RewardBps,
		BurnBps:        cfg.BurnBps,
		MaxDailyReward: cfg.MaxDailyRewardLamports,
	}, clock)
	if err != nil {
		return err
	}

	monOpts := monitor.Options{
		Account:      cfg.FeeVaultAddress,
		FeePrograms:  cfg.FeeSourcePrograms,
		MinReward:    cfg.MinRewardLamports,
		Tolerance:    cfg.MatchToleranceLamports,
		VerifyWindow: cfg.VerifyWindow,
		PollInterval: cfg.PollInterval,
		RPC:          rpc,
		Splitter:     splitter,
		Sink:         a.Service,
		Clock:        clock,
		Logger:       logger,
	}

	if cfg.WSEndpoint != "" {
		wsCfg := solana.DefaultWSConfig()
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, &wsCfg)
		if err != nil {
			logger.WithError(err).Warn("WebSocket connect failed, fee monitor will poll only")
		} else {
			a.closers = append(a.closers, func() { ws.Close() })
			monOpts.WS = ws
		}
	}

	m, err := monitor.New(monOpts)
	if err != nil {
		return err
	}
	a.Monitor = m
	a.Service.AttachMonitor(m)
	return nil
}

func rateBurst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}
