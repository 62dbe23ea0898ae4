// Package monitor watches a fee account and turns verified deposits into distributions.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/solana"
)

// Default tuning values.
const (
	DefaultTolerance    = 5000
	DefaultVerifyWindow = 10
	DefaultPollInterval = 30 * time.Second
)

// Options contains configuration for creating a Monitor.
type Options struct {
	Account      string   // watched receiving account
	FeePrograms  []string // programs a fee transaction must invoke
	MinReward    uint64   // deltas below this only advance the baseline
	Tolerance    uint64   // allowed |tx delta - observed delta|
	VerifyWindow int      // recent signatures inspected per verification
	PollInterval time.Duration

	RPC      BalanceClient
	WS       AccountSubscriber // optional push trigger
	Splitter Splitter
	Sink     DistributionSink

	Clock  clockwork.Clock
	Logger log.FieldLogger
}

// Monitor is the fee monitor for one watched account.
// lastKnownBalance is owned here and mutated only inside a transition.
type Monitor struct {
	opts        Options
	feePrograms map[string]bool
	logger      log.FieldLogger

	// transition is the single mutual-exclusion point for state changes.
	// Observers that cannot take it immediately are coalesced.
	transition sync.Mutex

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu               sync.RWMutex
	running          bool
	state            State
	lastKnownBalance uint64
	lastSlot         int64
	lastOutcome      Outcome
	lastObservedAt   *time.Time
	consumed         map[string]int64 // signature -> slot, above lastSlot only
	pending          []PendingReview
	distributions    int
}

// New creates a monitor. It does not start watching until Start.
func New(opts Options) (*Monitor, error) {
	if opts.Account == "" {
		return nil, fmt.Errorf("%w: monitor account is required", domain.ErrConfiguration)
	}
	if len(opts.FeePrograms) == 0 {
		return nil, fmt.Errorf("%w: at least one fee program is required", domain.ErrConfiguration)
	}
	if opts.RPC == nil || opts.Splitter == nil || opts.Sink == nil {
		return nil, fmt.Errorf("%w: monitor needs an RPC client, splitter and sink", domain.ErrConfiguration)
	}
	if opts.VerifyWindow <= 0 {
		opts.VerifyWindow = DefaultVerifyWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}

	programs := make(map[string]bool, len(opts.FeePrograms))
	for _, p := range opts.FeePrograms {
		programs[p] = true
	}

	return &Monitor{
		opts:        opts,
		feePrograms: programs,
		logger:      opts.Logger.WithFields(log.Fields{"component": "fee_monitor", "account": opts.Account}),
		state:       StateIdle,
		consumed:    make(map[string]int64),
	}, nil
}

// Start captures the current balance as the baseline and begins polling, plus
// push notifications when a subscriber is configured. The loops run until
// Stop; ctx only bounds the initial balance read.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if running {
		return domain.ErrAlreadyMonitoring
	}

	bal, err := m.opts.RPC.GetBalance(ctx, m.opts.Account)
	if err != nil {
		return fmt.Errorf("read initial balance: %w", err)
	}

	m.mu.Lock()
	m.running = true
	m.state = StateObserving
	m.lastKnownBalance = bal.Lamports
	m.lastSlot = bal.Slot
	m.pruneConsumedLocked()
	m.mu.Unlock()
	observability.UpdateLastKnownBalance(bal.Lamports)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	m.wg.Add(1)
	go m.pollLoop(runCtx)

	if m.opts.WS != nil {
		notifications, err := m.opts.WS.SubscribeAccount(runCtx, m.opts.Account)
		if err != nil {
			m.logger.WithError(err).Warn("Account subscription failed, polling only")
		} else {
			m.wg.Add(1)
			go m.pushLoop(runCtx, notifications)
		}
	}

	m.logger.WithFields(log.Fields{
		"balance":       bal.Lamports,
		"slot":          bal.Slot,
		"poll_interval": m.opts.PollInterval,
	}).Info("Fee monitor started")

	return nil
}

// Stop cancels the loops and waits for them to exit. An in-flight
// verification loses its context and never confirms.
func (m *Monitor) Stop() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return domain.ErrNotMonitoring
	}

	m.cancel()
	m.wg.Wait()
	m.cancel = nil

	m.mu.Lock()
	m.running = false
	m.state = StateIdle
	m.mu.Unlock()

	m.logger.Info("Fee monitor stopped")
	return nil
}

// Status returns a snapshot of the monitor state.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Status{
		IsMonitoring:  m.running,
		State:         m.state,
		Account:       m.opts.Account,
		LastBalance:   m.lastKnownBalance,
		LastSlot:      m.lastSlot,
		LastOutcome:   m.lastOutcome,
		Distributions: m.distributions,
		PendingReview: append([]PendingReview{}, m.pending...),
	}
	if m.lastObservedAt != nil {
		at := *m.lastObservedAt
		s.LastObservedAt = &at
	}
	return s
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := m.opts.Clock.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// Each tick runs on its own so a slow verification never delays the
			// next one; overlapping ticks are coalesced by the transition lock.
			m.wg.Add(1)
			go func() {
				defer m.wg.Done()
				m.poll(ctx)
			}()
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	bal, err := m.opts.RPC.GetBalance(ctx, m.opts.Account)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.WithError(err).Warn("Balance poll failed")
		}
		observability.RecordObservation(SourcePoll, "fetch_error")
		return
	}
	m.observeAndLog(ctx, Observation{Balance: bal.Lamports, Slot: bal.Slot, Source: SourcePoll})
}

func (m *Monitor) pushLoop(ctx context.Context, notifications <-chan solana.AccountNotification) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				m.logger.Warn("Account subscription closed, polling only")
				return
			}
			m.observeAndLog(ctx, Observation{Balance: n.Lamports, Slot: n.Slot, Source: SourcePush})
		}
	}
}

// observeAndLog runs Observe for the background loops. Errors are logged and
// the loops keep going.
func (m *Monitor) observeAndLog(ctx context.Context, obs Observation) {
	outcome, err := m.Observe(ctx, obs)
	if err == nil {
		return
	}
	entry := m.logger.WithError(err).WithFields(log.Fields{
		"source":  obs.Source,
		"outcome": outcome,
		"balance": obs.Balance,
	})
	switch {
	case errors.Is(err, domain.ErrNotMonitoring):
	case errors.Is(err, domain.ErrVerificationInconclusive):
		entry.Info("Fee verification inconclusive, will retry")
	default:
		entry.Error("Fee observation failed")
	}
}
