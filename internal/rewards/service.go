// Package rewards wires the ledger, exclusion, draw and fee components into
// the operations exposed to administrators.
package rewards

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/draw"
	"holder-rewards/internal/exclusion"
	"holder-rewards/internal/ledger"
	"holder-rewards/internal/monitor"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/storage"
)

// SnapshotSource captures a complete holder snapshot.
type SnapshotSource interface {
	Fetch(ctx context.Context) (*domain.Snapshot, error)
}

// FeeMonitor is the monitor lifecycle the service drives.
type FeeMonitor interface {
	Start(ctx context.Context) error
	Stop() error
	Status() monitor.Status
}

// Options contains configuration for creating a Service.
type Options struct {
	Snapshot    SnapshotSource
	Memberships ledger.MembershipLookup // optional
	Builder     *ledger.Builder
	Exclusions  *exclusion.Manager
	Engine      *draw.Engine

	Holders       storage.HolderStore
	Draws         storage.DrawResultStore
	Distributions storage.DistributionStore
	Audit         storage.AuditLog // optional analytics sink

	// SystemAddresses are excluded on every prepare.
	SystemAddresses []exclusion.SystemAddress
	// ExcludeProgramOwned also excludes off-curve holders (pools, vaults).
	ExcludeProgramOwned bool

	Clock  clockwork.Clock
	Logger log.FieldLogger
}

// Service is the rewards engine facade.
type Service struct {
	opts   Options
	logger log.FieldLogger

	prepareMu sync.Mutex
	drawMu    sync.Mutex

	monitorMu sync.RWMutex
	monitor   FeeMonitor
}

// Status is the externally visible engine status.
type Status struct {
	IsMonitoring bool            `json:"is_monitoring"`
	LastBalance  uint64          `json:"last_balance"`
	Monitor      *monitor.Status `json:"monitor,omitempty"`
}

// NewService creates a Service. Snapshot, Builder, Exclusions, Engine and the
// three stores are required.
func NewService(opts Options) (*Service, error) {
	if opts.Snapshot == nil || opts.Builder == nil || opts.Exclusions == nil || opts.Engine == nil {
		return nil, fmt.Errorf("%w: rewards service needs snapshot, builder, exclusions and engine", domain.ErrConfiguration)
	}
	if opts.Holders == nil || opts.Draws == nil || opts.Distributions == nil {
		return nil, fmt.Errorf("%w: rewards service needs holder, draw and distribution stores", domain.ErrConfiguration)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	return &Service{
		opts:   opts,
		logger: opts.Logger.WithField("component", "rewards"),
	}, nil
}

// AttachMonitor sets the fee monitor driven by StartMonitor and StopMonitor.
// The monitor usually takes the service as its DistributionSink, so it is
// attached after construction.
func (s *Service) AttachMonitor(m FeeMonitor) {
	s.monitorMu.Lock()
	defer s.monitorMu.Unlock()
	s.monitor = m
}

// PrepareDraw resynchronizes the ledger from chain state.
//
// Steps:
//  1. Fetch snapshot (holders, decimals, price).
//  2. Resolve memberships active at snapshot time.
//  3. Build holder records.
//  4. Plan system exclusions (configured and program-owned).
//  5. Annotate against active and planned exclusions.
//  6. Replace the persisted snapshot in one transaction.
//  7. Save the planned exclusions.
//
// Concurrent calls are serialized. Any failure leaves the persisted ledger and
// the active exclusions as they were.
func (s *Service) PrepareDraw(ctx context.Context) (stats *domain.SyncStats, err error) {
	s.prepareMu.Lock()
	defer s.prepareMu.Unlock()

	start := s.opts.Clock.Now()
	defer func() {
		elapsed := s.opts.Clock.Since(start).Seconds()
		if err != nil {
			observability.RecordPrepare("failed", elapsed, 0, 0, 0, 0, 0)
			s.logger.WithError(err).Error("Prepare draw failed, previous ledger kept")
			return
		}
		observability.RecordPrepare("success", elapsed, stats.TotalHolders, stats.EligibleHolders,
			stats.ExcludedHolders, stats.DustDropped, stats.TotalEntries)
	}()

	snap, err := s.opts.Snapshot.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var memberships map[string]*domain.Membership
	if s.opts.Memberships != nil {
		memberships, err = s.opts.Memberships.ActiveMemberships(ctx, snap.TakenAt)
		if err != nil {
			return nil, err
		}
	}

	records, buildStats, err := s.opts.Builder.Build(snap, memberships)
	if err != nil {
		return nil, fmt.Errorf("build ledger: %w", err)
	}

	active, err := s.opts.Exclusions.ActiveExclusions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active exclusions: %w", err)
	}
	planned, err := s.opts.Exclusions.PlanSystemExclusions(ctx, s.systemAddresses(snap))
	if err != nil {
		return nil, err
	}
	eligible, annotated := exclusion.Apply(records, append(active, planned...))

	previous, err := s.opts.Holders.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if err := s.opts.Holders.ReplaceSnapshot(ctx, annotated); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}

	systemExcluded, err := s.opts.Exclusions.CommitSystemExclusions(ctx, planned)
	if err != nil {
		if restoreErr := s.opts.Holders.ReplaceSnapshot(ctx, previous); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore ledger: %w", restoreErr))
		}
		return nil, err
	}

	stats = &domain.SyncStats{
		SnapshotAt:      snap.TakenAt,
		TotalHolders:    len(annotated),
		DustDropped:     buildStats.DustDropped,
		EligibleHolders: len(eligible),
		ExcludedHolders: countExcluded(annotated),
		SystemExcluded:  systemExcluded,
		TotalEntries:    totalEntries(eligible),
		UnitPriceUSD:    snap.UnitPriceUSD,
		Duration:        s.opts.Clock.Since(start),
	}

	s.logger.WithFields(log.Fields{
		"holders":         stats.TotalHolders,
		"eligible":        stats.EligibleHolders,
		"excluded":        stats.ExcludedHolders,
		"system_excluded": stats.SystemExcluded,
		"dust_dropped":    stats.DustDropped,
		"total_entries":   stats.TotalEntries,
		"price_usd":       stats.UnitPriceUSD.String(),
	}).Info("Ledger prepared")

	return stats, nil
}

func (s *Service) systemAddresses(snap *domain.Snapshot) []exclusion.SystemAddress {
	addrs := append([]exclusion.SystemAddress(nil), s.opts.SystemAddresses...)
	if !s.opts.ExcludeProgramOwned {
		return addrs
	}
	for _, a := range exclusion.ProgramOwnedAddresses(snap.Holdings) {
		addrs = append(addrs, exclusion.SystemAddress{Address: a, Reason: domain.ReasonProgramOwned})
	}
	return addrs
}

// ListEligible returns the draw-eligible ledger under the current exclusions.
func (s *Service) ListEligible(ctx context.Context) ([]*domain.HolderRecord, error) {
	eligible, _, err := s.currentLedger(ctx)
	return eligible, err
}

// ListLedger returns every persisted record annotated with current exclusions.
func (s *Service) ListLedger(ctx context.Context) ([]*domain.HolderRecord, error) {
	_, annotated, err := s.currentLedger(ctx)
	return annotated, err
}

func (s *Service) currentLedger(ctx context.Context) (eligible, annotated []*domain.HolderRecord, err error) {
	records, err := s.opts.Holders.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load ledger: %w", err)
	}
	return s.opts.Exclusions.Filter(ctx, records)
}

// Exclude bars address from future draws.
func (s *Service) Exclude(ctx context.Context, address, reason, by string) (*domain.ExclusionRecord, error) {
	return s.opts.Exclusions.Exclude(ctx, address, reason, by)
}

// Include lifts the active exclusion of address.
func (s *Service) Include(ctx context.Context, address, by string) error {
	return s.opts.Exclusions.Include(ctx, address, by)
}

// Exclusions returns the active exclusions.
func (s *Service) Exclusions(ctx context.Context) ([]*domain.ExclusionRecord, error) {
	return s.opts.Exclusions.ActiveExclusions(ctx)
}

// ExclusionHistory returns every exclusion ever applied to address.
func (s *Service) ExclusionHistory(ctx context.Context, address string) ([]*domain.ExclusionRecord, error) {
	return s.opts.Exclusions.History(ctx, address)
}

// RunDraw draws one winner for prize from the persisted ledger.
// Only one draw runs at a time; a concurrent call fails with ErrDrawInProgress.
// Exclusions are applied as they stand when the draw starts.
func (s *Service) RunDraw(ctx context.Context, prize uint64) (result *domain.DrawResult, err error) {
	if !s.drawMu.TryLock() {
		observability.RecordDraw("busy", 0)
		return nil, domain.ErrDrawInProgress
	}
	defer s.drawMu.Unlock()

	defer func() {
		switch {
		case err == nil:
			observability.RecordDraw("success", result.Timestamp.Unix())
		case errors.Is(err, domain.ErrNoEligibleEntries):
			observability.RecordDraw("no_entries", 0)
		default:
			observability.RecordDraw("failed", 0)
		}
	}()

	eligible, _, err := s.currentLedger(ctx)
	if err != nil {
		return nil, err
	}

	result, err = s.opts.Engine.Run(eligible, prize)
	if err != nil {
		return nil, err
	}

	if err := s.opts.Draws.Insert(ctx, result); err != nil {
		return nil, fmt.Errorf("persist draw %s: %w", result.ID, err)
	}

	if s.opts.Audit != nil {
		if err := s.opts.Audit.RecordDraw(ctx, result); err != nil {
			s.logger.WithError(err).WithField("draw_id", result.ID).Warn("Audit log write failed")
		}
	}

	return result, nil
}

// Draws returns recent draw results, newest first.
func (s *Service) Draws(ctx context.Context, limit int) ([]*domain.DrawResult, error) {
	return s.opts.Draws.List(ctx, limit)
}

// Distributions returns recent distributions, newest first.
func (s *Service) Distributions(ctx context.Context, limit int) ([]*domain.Distribution, error) {
	return s.opts.Distributions.List(ctx, limit)
}

// HandleDistribution persists a distribution emitted by the fee monitor.
// A distribution for an already recorded signature is a no-op.
func (s *Service) HandleDistribution(ctx context.Context, d *domain.Distribution) error {
	logger := s.logger.WithFields(log.Fields{
		"distribution_id": d.ID,
		"signature":       d.SourceTxSignature,
	})

	if err := s.opts.Distributions.Insert(ctx, d); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Warn("Distribution already recorded, skipping")
			return nil
		}
		return fmt.Errorf("persist distribution: %w", err)
	}

	if s.opts.Audit != nil {
		if err := s.opts.Audit.RecordDistribution(ctx, d); err != nil {
			logger.WithError(err).Warn("Audit log write failed")
		}
	}

	logger.WithFields(log.Fields{
		"total":  d.TotalFeeAmount,
		"reward": d.RewardAmount,
		"burn":   d.BurnAmount,
		"ops":    d.OpsAmount,
	}).Info("Distribution recorded")
	return nil
}

// StartMonitor starts the attached fee monitor.
func (s *Service) StartMonitor(ctx context.Context) error {
	m, err := s.feeMonitor()
	if err != nil {
		return err
	}
	return m.Start(ctx)
}

// StopMonitor stops the attached fee monitor.
func (s *Service) StopMonitor() error {
	m, err := s.feeMonitor()
	if err != nil {
		return err
	}
	return m.Stop()
}

// Status reports whether the fee monitor runs and its last known balance.
func (s *Service) Status() Status {
	s.monitorMu.RLock()
	m := s.monitor
	s.monitorMu.RUnlock()

	if m == nil {
		return Status{}
	}
	ms := m.Status()
	return Status{
		IsMonitoring: ms.IsMonitoring,
		LastBalance:  ms.LastBalance,
		Monitor:      &ms,
	}
}

func (s *Service) feeMonitor() (FeeMonitor, error) {
	s.monitorMu.RLock()
	defer s.monitorMu.RUnlock()
	if s.monitor == nil {
		return nil, fmt.Errorf("%w: fee monitor not configured", domain.ErrConfiguration)
	}
	return s.monitor, nil
}

func countExcluded(records []*domain.HolderRecord) int {
	n := 0
	for _, r := range records {
		if r.Excluded {
			n++
		}
	}
	return n
}

func totalEntries(records []*domain.HolderRecord) int64 {
	var total int64
	for _, r := range records {
		total += r.DrawEntries()
	}
	return total
}

// Compile-time check that the service can receive monitor output.
var _ monitor.DistributionSink = (*Service)(nil)
