package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// MembershipStore is an in-memory implementation of storage.MembershipStore.
type MembershipStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Membership // keyed by address
}

var _ storage.MembershipStore = (*MembershipStore)(nil)

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		data: make(map[string]*domain.Membership),
	}
}

// Upsert inserts or replaces the membership for an address.
func (s *MembershipStore) Upsert(_ context.Context, m *domain.Membership) error {
	if m == nil || m.Address == "" || m.Multiplier < 1 || m.BaselineEntries < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mCopy := *m
	s.data[m.Address] = &mCopy
	return nil
}

// ActiveAt retrieves memberships in effect at t, ordered by address ASC.
func (s *MembershipStore) ActiveAt(_ context.Context, t time.Time) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Membership
	for _, m := range s.data {
		if m.ActiveAt(t) {
			mCopy := *m
			result = append(result, &mCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})

	return result, nil
}
