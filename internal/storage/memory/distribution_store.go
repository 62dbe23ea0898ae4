package memory

import (
	"context"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// DistributionStore is an in-memory implementation of storage.DistributionStore.
type DistributionStore struct {
	mu            sync.RWMutex
	distributions []*domain.Distribution // insertion order
	bySignature   map[string]*domain.Distribution
}

var _ storage.DistributionStore = (*DistributionStore)(nil)

// NewDistributionStore creates a new in-memory distribution store.
func NewDistributionStore() *DistributionStore {
	return &DistributionStore{
		bySignature: make(map[string]*domain.Distribution),
	}
}

// Insert adds a new distribution. Returns ErrDuplicateKey if source_tx_signature exists.
func (s *DistributionStore) Insert(_ context.Context, d *domain.Distribution) error {
	if d == nil || d.ID == "" || d.SourceTxSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySignature[d.SourceTxSignature]; exists {
		return storage.ErrDuplicateKey
	}

	distCopy := *d
	s.distributions = append(s.distributions, &distCopy)
	s.bySignature[d.SourceTxSignature] = &distCopy
	return nil
}

// GetBySignature retrieves the distribution created from a transaction.
func (s *DistributionStore) GetBySignature(_ context.Context, signature string) (*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.bySignature[signature]
	if !ok {
		return nil, storage.ErrNotFound
	}
	distCopy := *d
	return &distCopy, nil
}

// List retrieves the most recent distributions, newest first.
func (s *DistributionStore) List(_ context.Context, limit int) ([]*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Distribution
	for i := len(s.distributions) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		distCopy := *s.distributions[i]
		result = append(result, &distCopy)
	}
	return result, nil
}
