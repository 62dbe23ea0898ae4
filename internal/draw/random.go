package draw

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
)

// RandomSource yields uniform integers in [0, max).
// Production code uses CryptoSource; tests inject FixedSource.
type RandomSource interface {
	Int(max *big.Int) (*big.Int, error)
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

// Int returns a uniform value in [0, max).
func (CryptoSource) Int(max *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, max)
}

// ErrSourceExhausted is returned by FixedSource when no values remain.
var ErrSourceExhausted = errors.New("fixed random source exhausted")

// FixedSource replays preset winning numbers (1-based) in order.
type FixedSource struct {
	mu      sync.Mutex
	winning []int64
}

// NewFixedSource returns a source that makes the next draws land on winning.
func NewFixedSource(winning ...int64) *FixedSource {
	return &FixedSource{winning: winning}
}

// Int returns the next preset winning number minus one.
// It does not clamp: an out-of-range value surfaces as an engine error.
func (s *FixedSource) Int(_ *big.Int) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.winning) == 0 {
		return nil, ErrSourceExhausted
	}
	k := s.winning[0]
	s.winning = s.winning[1:]
	return big.NewInt(k - 1), nil
}
