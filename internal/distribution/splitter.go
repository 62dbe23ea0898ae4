// Package distribution splits confirmed fee amounts into reward, burn and ops shares.
package distribution

import (
	"fmt"
	"math/big"

	"github.com/jonboulle/clockwork"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/idhash"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10000

// Config holds split ratios and the safety ceiling.
type Config struct {
	RewardBps      uint32 // reward share in basis points
	BurnBps        uint32 // burn share in basis points; ops takes the rest
	MaxDailyReward uint64 // circuit breaker, lamports
}

// DefaultConfig returns the 40/30/30 split with a 100 SOL ceiling.
func DefaultConfig() Config {
	return Config{
		RewardBps:      4000,
		BurnBps:        3000,
		MaxDailyReward: 100_000_000_000,
	}
}

// Validate checks that the shares fit in 100% and a ceiling is set.
func (c Config) Validate() error {
	if uint64(c.RewardBps)+uint64(c.BurnBps) > BpsDenominator {
		return fmt.Errorf("%w: reward %d bps + burn %d bps exceeds %d", domain.ErrConfiguration, c.RewardBps, c.BurnBps, BpsDenominator)
	}
	if c.MaxDailyReward == 0 {
		return fmt.Errorf("%w: max daily reward must be positive", domain.ErrConfiguration)
	}
	return nil
}

// Splitter computes Distributions. It holds no mutable state.
type Splitter struct {
	cfg   Config
	clock clockwork.Clock
}

// NewSplitter creates a Splitter. A nil clock uses the real clock.
func NewSplitter(cfg Config, clock clockwork.Clock) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Splitter{cfg: cfg, clock: clock}, nil
}

// Config returns the splitter configuration.
func (s *Splitter) Config() Config {
	return s.cfg
}

// Split divides delta lamports confirmed by signature.
//
// Formulas:
//   - reward = floor(delta * reward_bps / 10000)
//   - burn = floor(delta * burn_bps / 10000)
//   - ops = delta - reward - burn
//
// A delta above MaxDailyReward fails with ErrLimitExceeded before any share is computed.
func (s *Splitter) Split(delta uint64, signature string) (*domain.Distribution, error) {
	if delta > s.cfg.MaxDailyReward {
		return nil, fmt.Errorf("%w: %d lamports > ceiling %d", domain.ErrLimitExceeded, delta, s.cfg.MaxDailyReward)
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing source signature", domain.ErrConfiguration)
	}

	reward := share(delta, s.cfg.RewardBps)
	burn := share(delta, s.cfg.BurnBps)

	d := &domain.Distribution{
		ID:                idhash.ComputeDistributionID(signature),
		TotalFeeAmount:    delta,
		RewardAmount:      reward,
		BurnAmount:        burn,
		OpsAmount:         delta - reward - burn,
		SourceTxSignature: signature,
		Timestamp:         s.clock.Now().UTC(),
	}
	if !d.Balanced() {
		return nil, fmt.Errorf("%w: split of %d does not balance", domain.ErrInvariantViolation, delta)
	}
	return d, nil
}

// share returns floor(amount * bps / 10000) without intermediate overflow.
func share(amount uint64, bps uint32) uint64 {
	v := new(big.Int).SetUint64(amount)
	v.Mul(v, big.NewInt(int64(bps)))
	v.Quo(v, big.NewInt(BpsDenominator))
	return v.Uint64()
}
