package ledger

import (
	"context"
	"fmt"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/storage"
)

// MembershipLookup resolves paid memberships in effect at a point in time.
type MembershipLookup interface {
	ActiveMemberships(ctx context.Context, at time.Time) (map[string]*domain.Membership, error)
}

// StoreMembershipLookup adapts a storage.MembershipStore to MembershipLookup.
type StoreMembershipLookup struct {
	store storage.MembershipStore
}

// NewStoreMembershipLookup creates a lookup backed by store.
func NewStoreMembershipLookup(store storage.MembershipStore) *StoreMembershipLookup {
	return &StoreMembershipLookup{store: store}
}

// ActiveMemberships returns active memberships keyed by address.
func (l *StoreMembershipLookup) ActiveMemberships(ctx context.Context, at time.Time) (map[string]*domain.Membership, error) {
	list, err := l.store.ActiveAt(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	out := make(map[string]*domain.Membership, len(list))
	for _, m := range list {
		out[m.Address] = m
	}
	return out, nil
}
