// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/solana"
)

// Price source kinds.
const (
	PriceSourceJupiter = "jupiter"
	PriceSourceStatic  = "static"
)

// DefaultPriceAPIURL is the Jupiter price endpoint.
const DefaultPriceAPIURL = "https://lite-api.jup.ag/price/v3"

// Config holds all runtime configuration.
type Config struct {
	// Solana
	RPCEndpoint    string
	WSEndpoint     string
	RPCRateLimit   float64
	TokenMint      string
	TokenProgramID string

	// Pricing
	PriceSource    string
	PriceAPIURL    string
	StaticPriceUSD decimal.Decimal

	// Ledger
	EntryUnitUSD   decimal.Decimal
	MinEligibleUSD decimal.Decimal
	MinRawBalance  uint64
	TierBronzeUSD  decimal.Decimal
	TierSilverUSD  decimal.Decimal
	TierGoldUSD    decimal.Decimal

	// Exclusions
	SystemAddresses     []string
	ExcludeProgramOwned bool

	// Fee monitor and splitter
	FeeVaultAddress        string
	FeeSourcePrograms      []string
	MinRewardLamports      uint64
	MaxDailyRewardLamports uint64
	RewardBps              uint32
	BurnBps                uint32
	MatchToleranceLamports uint64
	VerifyWindow           int
	PollInterval           time.Duration

	// Storage
	PostgresDSN   string
	ClickHouseDSN string

	// Server
	HTTPAddr   string
	AdminToken string
	LogLevel   string
	LogFormat  string
}

// Load reads envFile (when present) into the process environment without
// overriding variables already set, then parses configuration with defaults.
// An empty envFile skips the file step.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: load %s: %v", domain.ErrConfiguration, envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv parses configuration from environment variables.
// Values that are set but malformed are errors; unset values take defaults.
func FromEnv() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		RPCEndpoint:    os.Getenv("SOLANA_RPC_ENDPOINT"),
		WSEndpoint:     os.Getenv("SOLANA_WS_ENDPOINT"),
		RPCRateLimit:   p.float("RPC_RATE_LIMIT", 10),
		TokenMint:      os.Getenv("TOKEN_MINT"),
		TokenProgramID: getenv("TOKEN_PROGRAM_ID", solana.TokenProgramID),

		PriceSource:    strings.ToLower(getenv("PRICE_SOURCE", PriceSourceJupiter)),
		PriceAPIURL:    getenv("PRICE_API_URL", DefaultPriceAPIURL),
		StaticPriceUSD: p.decimal("STATIC_PRICE_USD", "0"),

		EntryUnitUSD:   p.decimal("ENTRY_UNIT_USD", "10"),
		MinEligibleUSD: p.decimal("MIN_ELIGIBLE_USD", "10"),
		MinRawBalance:  p.uint("MIN_RAW_BALANCE", 1, 64),
		TierBronzeUSD:  p.decimal("TIER_BRONZE_USD", "100"),
		TierSilverUSD:  p.decimal("TIER_SILVER_USD", "1000"),
		TierGoldUSD:    p.decimal("TIER_GOLD_USD", "10000"),

		SystemAddresses:     splitList(os.Getenv("SYSTEM_ADDRESSES")),
		ExcludeProgramOwned: p.bool("EXCLUDE_PROGRAM_OWNED", true),

		FeeVaultAddress:        os.Getenv("FEE_VAULT_ADDRESS"),
		FeeSourcePrograms:      splitList(os.Getenv("FEE_SOURCE_PROGRAMS")),
		MinRewardLamports:      p.uint("MIN_REWARD_LAMPORTS", 10_000_000, 64),
		MaxDailyRewardLamports: p.uint("MAX_DAILY_REWARD_LAMPORTS", 100_000_000_000, 64),
		RewardBps:              uint32(p.uint("REWARD_BPS", 4000, 32)),
		BurnBps:                uint32(p.uint("BURN_BPS", 3000, 32)),
		MatchToleranceLamports: p.uint("MATCH_TOLERANCE_LAMPORTS", 5000, 64),
		VerifyWindow:           int(p.uint("VERIFY_WINDOW", 10, 31)),
		PollInterval:           p.duration("POLL_INTERVAL", 30*time.Second),

		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN: os.Getenv("CLICKHOUSE_DSN"),

		HTTPAddr:   getenv("HTTP_ADDR", ":8080"),
		AdminToken: os.Getenv("ADMIN_TOKEN"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogFormat:  getenv("LOG_FORMAT", "text"),
	}

	if len(p.errs) > 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, errors.Join(p.errs...))
	}
	return cfg, nil
}

// Validate checks the settings needed to build a ledger and run draws.
func (c *Config) Validate() error {
	var errs []error
	if c.RPCEndpoint == "" {
		errs = append(errs, errors.New("SOLANA_RPC_ENDPOINT is required"))
	}
	if !solana.ValidAddress(c.TokenMint) {
		errs = append(errs, fmt.Errorf("TOKEN_MINT %q is not a valid address", c.TokenMint))
	}
	if !solana.ValidAddress(c.TokenProgramID) {
		errs = append(errs, fmt.Errorf("TOKEN_PROGRAM_ID %q is not a valid address", c.TokenProgramID))
	}
	if c.RPCRateLimit < 0 {
		errs = append(errs, errors.New("RPC_RATE_LIMIT must not be negative"))
	}

	switch c.PriceSource {
	case PriceSourceJupiter:
		if c.PriceAPIURL == "" {
			errs = append(errs, errors.New("PRICE_API_URL is required for the jupiter price source"))
		}
	case PriceSourceStatic:
		if !c.StaticPriceUSD.IsPositive() {
			errs = append(errs, errors.New("STATIC_PRICE_USD must be positive for the static price source"))
		}
	default:
		errs = append(errs, fmt.Errorf("PRICE_SOURCE must be %q or %q, got %q", PriceSourceJupiter, PriceSourceStatic, c.PriceSource))
	}

	if !c.EntryUnitUSD.IsPositive() {
		errs = append(errs, errors.New("ENTRY_UNIT_USD must be positive"))
	}
	if c.MinEligibleUSD.IsNegative() {
		errs = append(errs, errors.New("MIN_ELIGIBLE_USD must not be negative"))
	}
	if !(c.TierBronzeUSD.LessThan(c.TierSilverUSD) && c.TierSilverUSD.LessThan(c.TierGoldUSD)) {
		errs = append(errs, errors.New("tier thresholds must be strictly increasing (bronze < silver < gold)"))
	}
	for _, addr := range c.SystemAddresses {
		if !solana.ValidAddress(addr) {
			errs = append(errs, fmt.Errorf("SYSTEM_ADDRESSES entry %q is not a valid address", addr))
		}
	}
	if uint64(c.RewardBps)+uint64(c.BurnBps) > 10000 {
		errs = append(errs, errors.New("REWARD_BPS + BURN_BPS must not exceed 10000"))
	}
	if c.MaxDailyRewardLamports == 0 {
		errs = append(errs, errors.New("MAX_DAILY_REWARD_LAMPORTS must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// ValidateMonitor checks the additional settings the fee monitor needs.
func (c *Config) ValidateMonitor() error {
	var errs []error
	if !solana.ValidAddress(c.FeeVaultAddress) {
		errs = append(errs, fmt.Errorf("FEE_VAULT_ADDRESS %q is not a valid address", c.FeeVaultAddress))
	}
	if len(c.FeeSourcePrograms) == 0 {
		errs = append(errs, errors.New("FEE_SOURCE_PROGRAMS is required"))
	}
	for _, prog := range c.FeeSourcePrograms {
		if !solana.ValidAddress(prog) {
			errs = append(errs, fmt.Errorf("FEE_SOURCE_PROGRAMS entry %q is not a valid address", prog))
		}
	}
	if c.VerifyWindow <= 0 {
		errs = append(errs, errors.New("VERIFY_WINDOW must be positive"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.MinRewardLamports > c.MaxDailyRewardLamports {
		errs = append(errs, errors.New("MIN_REWARD_LAMPORTS must not exceed MAX_DAILY_REWARD_LAMPORTS"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects malformed values so Load reports all of them at once.
type parser struct {
	errs []error
}

func (p *parser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// uint parses key as an unsigned integer that fits in bitSize bits.
func (p *parser) uint(key string, def uint64, bitSize int) uint64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			p.errs = append(p.errs, fmt.Errorf("%s: %q out of range", key, v))
		} else {
			p.errs = append(p.errs, fmt.Errorf("%s: invalid unsigned integer %q", key, v))
		}
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return def
	}
	return f
}

func (p *parser) bool(key string, def bool) bool {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (p *parser) decimal(key, def string) decimal.Decimal {
	v, ok := p.lookup(key)
	if !ok {
		return decimal.RequireFromString(def)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid decimal %q", key, v))
		return decimal.RequireFromString(def)
	}
	return d
}
