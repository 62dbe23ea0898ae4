// Package exclusion maintains addresses barred from winning draws.
package exclusion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/solana"
	"holder-rewards/internal/storage"
)

// SystemAddress is an address the system excludes on every reconciliation pass.
type SystemAddress struct {
	Address string
	Reason  string
}

// Manager applies and lifts exclusions and filters ledgers against them.
// One active exclusion per address is enforced by the store.
type Manager struct {
	store  storage.ExclusionStore
	clock  clockwork.Clock
	logger log.FieldLogger
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Store  storage.ExclusionStore
	Clock  clockwork.Clock // defaults to the real clock
	Logger log.FieldLogger // defaults to the standard logger
}

// NewManager creates a new exclusion manager.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Manager{
		store:  opts.Store,
		clock:  opts.Clock,
		logger: opts.Logger.WithField("component", "exclusion"),
	}
}

// Exclude bars address from future draws.
// Returns domain.ErrConflict if the address already has an active exclusion,
// storage.ErrInvalidInput if the address or reason is malformed.
func (m *Manager) Exclude(ctx context.Context, address, reason, appliedBy string) (*domain.ExclusionRecord, error) {
	rec, err := m.newRecord(address, reason, appliedBy)
	if err != nil {
		return nil, err
	}

	if err := m.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConflict, address)
		}
		return nil, fmt.Errorf("insert exclusion: %w", err)
	}

	observability.RecordExclusionChange("exclude", actorKind(rec.AppliedBy))
	m.logger.WithFields(log.Fields{
		"address":    rec.Address,
		"reason":     rec.Reason,
		"applied_by": rec.AppliedBy,
	}).Info("Address excluded")

	return rec, nil
}

// newRecord validates input and builds an unsaved active exclusion.
func (m *Manager) newRecord(address, reason, appliedBy string) (*domain.ExclusionRecord, error) {
	reason = strings.TrimSpace(reason)
	appliedBy = strings.TrimSpace(appliedBy)
	if !solana.ValidAddress(address) {
		return nil, fmt.Errorf("%w: invalid address %q", storage.ErrInvalidInput, address)
	}
	if reason == "" || appliedBy == "" {
		return nil, fmt.Errorf("%w: reason and actor are required", storage.ErrInvalidInput)
	}
	return &domain.ExclusionRecord{
		ID:        uuid.NewString(),
		Address:   address,
		Reason:    reason,
		AppliedBy: appliedBy,
		AppliedAt: m.clock.Now().UTC(),
		Active:    true,
	}, nil
}

// Include lifts the active exclusion on address.
// Returns domain.ErrForbidden if a non-system actor tries to lift a system exclusion,
// storage.ErrNotFound if the address has no active exclusion.
func (m *Manager) Include(ctx context.Context, address, requestedBy string) error {
	requestedBy = strings.TrimSpace(requestedBy)
	if requestedBy == "" {
		return fmt.Errorf("%w: actor is required", storage.ErrInvalidInput)
	}

	active, err := m.store.GetActive(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no active exclusion for %s: %w", address, storage.ErrNotFound)
		}
		return fmt.Errorf("get active exclusion: %w", err)
	}

	if active.IsSystem() && requestedBy != domain.SystemActor {
		return fmt.Errorf("%w: %s", domain.ErrForbidden, address)
	}

	if err := m.store.Deactivate(ctx, active.ID, requestedBy, m.clock.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("no active exclusion for %s: %w", address, storage.ErrNotFound)
		}
		return fmt.Errorf("deactivate exclusion: %w", err)
	}

	observability.RecordExclusionChange("include", actorKind(requestedBy))
	m.logger.WithFields(log.Fields{
		"address":      address,
		"requested_by": requestedBy,
	}).Info("Exclusion lifted")

	return nil
}

// ApplySystemExclusions excludes every address in addrs as the system actor.
// Addresses already excluded (by anyone) are left as they are, so repeated
// passes over the same set converge on one active exclusion per address.
// Returns the number of exclusions newly applied.
func (m *Manager) ApplySystemExclusions(ctx context.Context, addrs []SystemAddress) (int, error) {
	planned, err := m.PlanSystemExclusions(ctx, addrs)
	if err != nil {
		return 0, err
	}
	return m.CommitSystemExclusions(ctx, planned)
}

// PlanSystemExclusions builds, without saving, the system exclusions addrs
// still needs: one record per address that has no active exclusion.
// Any invalid address fails the whole plan.
func (m *Manager) PlanSystemExclusions(ctx context.Context, addrs []SystemAddress) ([]*domain.ExclusionRecord, error) {
	active, err := m.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active exclusions: %w", err)
	}
	excluded := make(map[string]bool, len(active)+len(addrs))
	for _, e := range active {
		excluded[e.Address] = true
	}

	var planned []*domain.ExclusionRecord
	for _, a := range addrs {
		if excluded[a.Address] {
			continue
		}
		rec, err := m.newRecord(a.Address, a.Reason, domain.SystemActor)
		if err != nil {
			return nil, fmt.Errorf("system exclusion of %s: %w", a.Address, err)
		}
		excluded[a.Address] = true
		planned = append(planned, rec)
	}
	return planned, nil
}

// CommitSystemExclusions saves planned records. An address excluded since
// planning is skipped. On a store failure the records inserted by this call
// are deactivated again, so the set of active exclusions is as before.
func (m *Manager) CommitSystemExclusions(ctx context.Context, planned []*domain.ExclusionRecord) (int, error) {
	inserted := make([]*domain.ExclusionRecord, 0, len(planned))
	for _, rec := range planned {
		err := m.store.Insert(ctx, rec)
		switch {
		case err == nil:
			inserted = append(inserted, rec)
		case errors.Is(err, storage.ErrDuplicateKey):
			// excluded since planning
		default:
			err = fmt.Errorf("system exclusion of %s: %w", rec.Address, err)
			return 0, errors.Join(err, m.revert(ctx, inserted))
		}
	}

	for range inserted {
		observability.RecordExclusionChange("exclude", actorKind(domain.SystemActor))
	}
	if len(inserted) > 0 {
		m.logger.WithFields(log.Fields{
			"applied": len(inserted),
			"total":   len(planned),
		}).Info("System exclusions reconciled")
	}
	return len(inserted), nil
}

func (m *Manager) revert(ctx context.Context, recs []*domain.ExclusionRecord) error {
	var errs []error
	for _, rec := range recs {
		if err := m.store.Deactivate(ctx, rec.ID, domain.SystemActor, m.clock.Now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("revert exclusion of %s: %w", rec.Address, err))
		}
	}
	if len(recs) > 0 {
		m.logger.WithField("reverted", len(recs)-len(errs)).Warn("System exclusions rolled back")
	}
	return errors.Join(errs...)
}

// ActiveExclusions returns all active exclusions ordered by address.
func (m *Manager) ActiveExclusions(ctx context.Context) ([]*domain.ExclusionRecord, error) {
	return m.store.ListActive(ctx)
}

// History returns every exclusion ever applied to address, oldest first.
func (m *Manager) History(ctx context.Context, address string) ([]*domain.ExclusionRecord, error) {
	return m.store.History(ctx, address)
}

func actorKind(actor string) string {
	if actor == domain.SystemActor {
		return "system"
	}
	return "admin"
}
