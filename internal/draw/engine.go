// Package draw selects a winner from an entry-weighted ledger.
package draw

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/idhash"
)

// Engine runs draws. Range construction is deterministic; the winning number is not.
// Callers serialize draws against the same prize pool.
type Engine struct {
	random RandomSource
	clock  clockwork.Clock
	logger log.FieldLogger
}

// EngineOptions contains configuration for creating an Engine.
type EngineOptions struct {
	Random RandomSource    // defaults to CryptoSource
	Clock  clockwork.Clock // defaults to the real clock
	Logger log.FieldLogger
}

// NewEngine creates a draw engine.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Random == nil {
		opts.Random = CryptoSource{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Engine{
		random: opts.Random,
		clock:  opts.Clock,
		logger: opts.Logger.WithField("component", "draw"),
	}
}

// Run draws one winner from the filtered ledger for prize.
//
// Steps:
//  1. Reject an empty pool with ErrNoEligibleEntries.
//  2. Build entry ranges (stable by address).
//  3. Draw winning_number uniformly from [1, total_entries].
//  4. Binary-search the owning range.
//
// No result is produced on any error.
func (e *Engine) Run(ledger []*domain.HolderRecord, prize uint64) (*domain.DrawResult, error) {
	if len(ledger) == 0 {
		return nil, domain.ErrNoEligibleEntries
	}

	ranges, total, err := BuildRanges(ledger)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, domain.ErrNoEligibleEntries
	}

	n, err := e.random.Int(big.NewInt(total))
	if err != nil {
		return nil, fmt.Errorf("draw random number: %w", err)
	}
	if !n.IsInt64() {
		return nil, fmt.Errorf("%w: random value %s out of range", domain.ErrInvariantViolation, n)
	}
	winning := n.Int64() + 1

	idx, ok := Locate(ranges, winning)
	if !ok {
		return nil, fmt.Errorf("%w: winning number %d outside [1, %d]", domain.ErrInvariantViolation, winning, total)
	}
	winner := ranges[idx]

	result := &domain.DrawResult{
		ID:                   uuid.NewString(),
		WinningNumber:        winning,
		WinnerAddress:        winner.Address,
		WinnerEntries:        winner.Len(),
		TotalEntries:         total,
		TotalEligibleHolders: len(ranges),
		PrizeAmount:          prize,
		LedgerDigest:         idhash.ComputeLedgerDigest(ranges),
		Timestamp:            e.clock.Now().UTC(),
	}

	e.logger.WithFields(log.Fields{
		"draw_id":        result.ID,
		"winning_number": winning,
		"winner":         winner.Address,
		"total_entries":  total,
		"holders":        len(ranges),
		"prize":          prize,
	}).Info("Draw completed")

	return result, nil
}
