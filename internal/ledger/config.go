package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
)

// TierThreshold assigns Tier to holders whose USD value is at least MinUSD.
type TierThreshold struct {
	Tier   domain.Tier
	MinUSD decimal.Decimal
}

// Config holds the ledger computation constants.
type Config struct {
	EntryUnitUSD   decimal.Decimal // USD per base entry
	MinEligibleUSD decimal.Decimal // eligibility threshold
	MinRawBalance  uint64          // dust floor in raw units; below it a holder is dropped
	Tiers          []TierThreshold // ascending by MinUSD
}

// DefaultConfig returns the standard program constants.
func DefaultConfig() Config {
	return Config{
		EntryUnitUSD:   decimal.NewFromInt(10),
		MinEligibleUSD: decimal.NewFromInt(10),
		MinRawBalance:  1,
		Tiers: []TierThreshold{
			{Tier: domain.TierBronze, MinUSD: decimal.NewFromInt(100)},
			{Tier: domain.TierSilver, MinUSD: decimal.NewFromInt(1000)},
			{Tier: domain.TierGold, MinUSD: decimal.NewFromInt(10000)},
		},
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if !c.EntryUnitUSD.IsPositive() {
		return fmt.Errorf("%w: entry unit must be positive", domain.ErrConfiguration)
	}
	if c.MinEligibleUSD.IsNegative() {
		return fmt.Errorf("%w: minimum eligible value must not be negative", domain.ErrConfiguration)
	}
	for i, t := range c.Tiers {
		if !t.Tier.Valid() || t.Tier == domain.TierNone {
			return fmt.Errorf("%w: invalid tier %q", domain.ErrConfiguration, t.Tier)
		}
		if i > 0 && !c.Tiers[i-1].MinUSD.LessThan(t.MinUSD) {
			return fmt.Errorf("%w: tier thresholds must be strictly ascending", domain.ErrConfiguration)
		}
	}
	return nil
}

// TierFor returns the highest tier whose threshold usd reaches.
func (c Config) TierFor(usd decimal.Decimal) domain.Tier {
	tier := domain.TierNone
	for _, t := range c.Tiers {
		if usd.GreaterThanOrEqual(t.MinUSD) {
			tier = t.Tier
		}
	}
	return tier
}

var errDuplicateHolder = errors.New("duplicate holder address in snapshot")
