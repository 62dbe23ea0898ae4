package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// ExclusionStore is an in-memory implementation of storage.ExclusionStore.
type ExclusionStore struct {
	mu      sync.RWMutex
	records []*domain.ExclusionRecord // insertion order
	active  map[string]int            // address -> index into records
	byID    map[string]int
}

var _ storage.ExclusionStore = (*ExclusionStore)(nil)

// NewExclusionStore creates a new in-memory exclusion store.
func NewExclusionStore() *ExclusionStore {
	return &ExclusionStore{
		active: make(map[string]int),
		byID:   make(map[string]int),
	}
}

// Insert adds a new active exclusion.
func (s *ExclusionStore) Insert(_ context.Context, e *domain.ExclusionRecord) error {
	if e == nil || e.ID == "" || e.Address == "" || !e.Active {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.active[e.Address]; exists {
		return storage.ErrDuplicateKey
	}
	if _, exists := s.byID[e.ID]; exists {
		return storage.ErrDuplicateKey
	}

	recCopy := *e
	s.records = append(s.records, &recCopy)
	idx := len(s.records) - 1
	s.active[e.Address] = idx
	s.byID[e.ID] = idx
	return nil
}

// GetActive retrieves the active exclusion for an address.
func (s *ExclusionStore) GetActive(_ context.Context, address string) (*domain.ExclusionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.active[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	recCopy := *s.records[idx]
	return &recCopy, nil
}

// Deactivate marks the exclusion with the given ID inactive.
func (s *ExclusionStore) Deactivate(_ context.Context, id, liftedBy string, liftedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok || !s.records[idx].Active {
		return storage.ErrNotFound
	}

	// Replace rather than mutate so copies handed out earlier stay stable.
	updated := *s.records[idx]
	updated.Active = false
	updated.LiftedBy = &liftedBy
	updated.LiftedAt = &liftedAt
	s.records[idx] = &updated
	delete(s.active, updated.Address)
	return nil
}

// ListActive retrieves all active exclusions, ordered by address ASC.
func (s *ExclusionStore) ListActive(_ context.Context) ([]*domain.ExclusionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ExclusionRecord, 0, len(s.active))
	for _, idx := range s.active {
		recCopy := *s.records[idx]
		result = append(result, &recCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// History retrieves all exclusions for an address, ordered by applied_at ASC.
func (s *ExclusionStore) History(_ context.Context, address string) ([]*domain.ExclusionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExclusionRecord
	for _, r := range s.records {
		if r.Address == address {
			recCopy := *r
			result = append(result, &recCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AppliedAt.Before(result[j].AppliedAt)
	})

	return result, nil
}
