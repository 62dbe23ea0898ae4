package memory

import (
	"context"
	"sync"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// DrawResultStore is an in-memory implementation of storage.DrawResultStore.
type DrawResultStore struct {
	mu      sync.RWMutex
	results []*domain.DrawResult // insertion order
	byID    map[string]*domain.DrawResult
}

var _ storage.DrawResultStore = (*DrawResultStore)(nil)

// NewDrawResultStore creates a new in-memory draw result store.
func NewDrawResultStore() *DrawResultStore {
	return &DrawResultStore{
		byID: make(map[string]*domain.DrawResult),
	}
}

// Insert adds a new draw result. Returns ErrDuplicateKey if id exists.
func (s *DrawResultStore) Insert(_ context.Context, r *domain.DrawResult) error {
	if r == nil || r.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[r.ID]; exists {
		return storage.ErrDuplicateKey
	}

	resultCopy := *r
	s.results = append(s.results, &resultCopy)
	s.byID[r.ID] = &resultCopy
	return nil
}

// GetByID retrieves a draw result by its ID.
func (s *DrawResultStore) GetByID(_ context.Context, id string) (*domain.DrawResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	resultCopy := *r
	return &resultCopy, nil
}

// List retrieves the most recent draw results, newest first.
func (s *DrawResultStore) List(_ context.Context, limit int) ([]*domain.DrawResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DrawResult
	for i := len(s.results) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		resultCopy := *s.results[i]
		result = append(result, &resultCopy)
	}
	return result, nil
}
