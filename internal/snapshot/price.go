package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"holder-rewards/internal/domain"
)

// PriceSource supplies the USD price of one whole token.
// Implementations never return a zero or negative price without an error.
type PriceSource interface {
	PriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// StaticPriceSource returns a fixed configured price.
type StaticPriceSource struct {
	Price decimal.Decimal
}

// PriceUSD returns the configured price, or ErrConfiguration if it is not positive.
func (s StaticPriceSource) PriceUSD(_ context.Context) (decimal.Decimal, error) {
	if !s.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: static price %s is not positive", domain.ErrConfiguration, s.Price)
	}
	return s.Price, nil
}

// JupiterPriceSource queries the Jupiter price API for one mint.
type JupiterPriceSource struct {
	baseURL string
	mint    string
	client  *http.Client
}

// NewJupiterPriceSource creates a price source. A nil client uses a 10s timeout client.
func NewJupiterPriceSource(baseURL, mint string, client *http.Client) *JupiterPriceSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &JupiterPriceSource{baseURL: baseURL, mint: mint, client: client}
}

// jupiterPrice is one entry of the price response keyed by mint.
type jupiterPrice struct {
	USDPrice decimal.Decimal `json:"usdPrice"`
	BlockID  int64           `json:"blockId"`
}

// PriceUSD fetches the current price.
// A missing entry or non-positive price fails closed with ErrConfiguration.
func (s *JupiterPriceSource) PriceUSD(ctx context.Context) (decimal.Decimal, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price url: %v", domain.ErrConfiguration, err)
	}
	q := u.Query()
	q.Set("ids", s.mint)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("create price request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price api status %d: %s", resp.StatusCode, string(body))
	}

	var prices map[string]*jupiterPrice
	if err := json.Unmarshal(body, &prices); err != nil {
		return decimal.Zero, fmt.Errorf("decode price response: %w", err)
	}

	p, ok := prices[s.mint]
	if !ok || p == nil {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", domain.ErrConfiguration, s.mint)
	}
	if !p.USDPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: price %s for %s is not positive", domain.ErrConfiguration, p.USDPrice, s.mint)
	}
	return p.USDPrice, nil
}
