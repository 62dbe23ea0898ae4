package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"holder-rewards/internal/domain"
)

// Fetcher captures complete snapshots.
type Fetcher struct {
	mint    string
	holders HolderSource
	prices  PriceSource
	clock   clockwork.Clock
}

// NewFetcher creates a Fetcher. A nil clock uses the real clock.
func NewFetcher(mint string, holders HolderSource, prices PriceSource, clock clockwork.Clock) *Fetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Fetcher{mint: mint, holders: holders, prices: prices, clock: clock}
}

// Fetch reads holders, decimals and price concurrently.
// Any failure cancels the others and no snapshot is returned.
func (f *Fetcher) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	var (
		holdings []domain.RawHolding
		decimals uint8
		price    decimal.Decimal
	)

	takenAt := f.clock.Now().UTC().Truncate(time.Microsecond)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		holdings, err = f.holders.Holders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		decimals, err = f.holders.Decimals(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = f.prices.PriceUSD(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	return &domain.Snapshot{
		Mint:         f.mint,
		Decimals:     decimals,
		UnitPriceUSD: price,
		Holdings:     holdings,
		TakenAt:      takenAt,
	}, nil
}
