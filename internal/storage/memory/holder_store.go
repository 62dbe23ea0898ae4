package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.HolderRecord // keyed by address
	snapshotAt time.Time
}

var _ storage.HolderStore = (*HolderStore)(nil)

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string]*domain.HolderRecord),
	}
}

// ReplaceSnapshot atomically replaces all holder records.
func (s *HolderStore) ReplaceSnapshot(_ context.Context, records []*domain.HolderRecord) error {
	// Validate and copy before touching state so a bad batch leaves the old snapshot intact.
	next := make(map[string]*domain.HolderRecord, len(records))
	var snapshotAt time.Time
	for _, r := range records {
		if r == nil || r.Address == "" {
			return storage.ErrInvalidInput
		}
		if _, dup := next[r.Address]; dup {
			return storage.ErrDuplicateKey
		}
		next[r.Address] = r.Clone()
		if r.SnapshotAt.After(snapshotAt) {
			snapshotAt = r.SnapshotAt
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = next
	s.snapshotAt = snapshotAt
	return nil
}

// List retrieves all holder records, ordered by address ASC.
func (s *HolderStore) List(_ context.Context) ([]*domain.HolderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.HolderRecord, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, r.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// SnapshotTime returns when the stored snapshot was taken.
func (s *HolderStore) SnapshotTime(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return s.snapshotAt, nil
}
