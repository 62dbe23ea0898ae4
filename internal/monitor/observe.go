package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/observability"
	"holder-rewards/internal/solana"
)

// Observe runs one state transition for a balance reading. Poll ticks, push
// notifications and callers all enter here.
//
// Transitions:
//   - busy (another transition in flight): coalesced, nothing changes
//   - slot older than the last reading: stale, ignored
//   - delta <= 0 or delta < MinReward: baseline advanced to the reading
//   - verification error: inconclusive, baseline kept so the next poll retries
//   - no matching transaction: rejected, baseline advanced
//   - match: baseline advanced and signature consumed before splitting
//
// Only transactions landed after the baseline slot are candidates: anything at
// or before it is already part of the baseline balance.
//
// Returned errors wrap ErrVerificationInconclusive, ErrLimitExceeded or a sink failure.
func (m *Monitor) Observe(ctx context.Context, obs Observation) (Outcome, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return "", domain.ErrNotMonitoring
	}

	if !m.transition.TryLock() {
		observability.RecordObservationCoalesced()
		observability.RecordObservation(obs.Source, string(OutcomeCoalesced))
		return OutcomeCoalesced, nil
	}
	defer m.transition.Unlock()

	outcome, err := m.transitionLocked(ctx, obs)

	now := m.opts.Clock.Now().UTC()
	m.mu.Lock()
	m.lastOutcome = outcome
	m.lastObservedAt = &now
	m.mu.Unlock()

	observability.RecordObservation(obs.Source, string(outcome))
	return outcome, err
}

func (m *Monitor) transitionLocked(ctx context.Context, obs Observation) (Outcome, error) {
	m.mu.RLock()
	last, lastSlot := m.lastKnownBalance, m.lastSlot
	m.mu.RUnlock()

	if obs.Slot != 0 && obs.Slot < lastSlot {
		return OutcomeStale, nil
	}

	if obs.Balance <= last {
		m.advance(obs)
		return OutcomeNoChange, nil
	}

	delta := obs.Balance - last
	if delta < m.opts.MinReward {
		m.advance(obs)
		return OutcomeBelowMinimum, nil
	}

	logger := m.logger.WithFields(log.Fields{
		"source":  obs.Source,
		"delta":   delta,
		"balance": obs.Balance,
	})

	m.setState(StateVerifying)
	signature, sigSlot, err := m.verify(ctx, delta, lastSlot)
	m.setState(StateObserving)

	if err != nil {
		return OutcomeInconclusive, fmt.Errorf("%w: %v", domain.ErrVerificationInconclusive, err)
	}
	if signature == "" {
		m.advance(obs)
		logger.Info("Balance increase not matched to a fee transaction, treating as deposit")
		return OutcomeRejected, nil
	}

	// Consume before splitting so a concurrent duplicate sees no delta.
	m.mu.Lock()
	m.lastKnownBalance = obs.Balance
	if obs.Slot > m.lastSlot {
		m.lastSlot = obs.Slot
	}
	m.consumed[signature] = sigSlot
	m.pruneConsumedLocked()
	m.mu.Unlock()
	observability.UpdateLastKnownBalance(obs.Balance)

	logger = logger.WithField("signature", signature)

	dist, err := m.opts.Splitter.Split(delta, signature)
	if err != nil {
		if errors.Is(err, domain.ErrLimitExceeded) {
			m.holdForReview(signature, delta, err.Error())
			observability.RecordDistribution("limit_exceeded", 0, 0, 0)
			logger.WithError(err).Error("Fee held for manual review")
			return OutcomeLimitExceeded, err
		}
		m.holdForReview(signature, delta, err.Error())
		return OutcomeConfirmed, fmt.Errorf("split fee %s: %w", signature, err)
	}

	if err := m.opts.Sink.HandleDistribution(ctx, dist); err != nil {
		m.holdForReview(signature, delta, "persist distribution: "+err.Error())
		observability.RecordDistribution("failed", 0, 0, 0)
		return OutcomeConfirmed, fmt.Errorf("handle distribution %s: %w", dist.ID, err)
	}

	m.mu.Lock()
	m.distributions++
	m.mu.Unlock()
	observability.RecordDistribution("created", dist.RewardAmount, dist.BurnAmount, dist.OpsAmount)

	logger.WithFields(log.Fields{
		"distribution_id": dist.ID,
		"reward":          dist.RewardAmount,
		"burn":            dist.BurnAmount,
		"ops":             dist.OpsAmount,
	}).Info("Fee confirmed and distributed")

	return OutcomeConfirmed, nil
}

// verify looks for an unconsumed, successful transaction landed after
// baselineSlot that credited delta (within tolerance) to the account through a
// fee program. Returns the signature and its slot, or "" with a nil error when
// the window holds no match.
func (m *Monitor) verify(ctx context.Context, delta uint64, baselineSlot int64) (string, int64, error) {
	start := m.opts.Clock.Now()
	defer func() {
		observability.RecordVerification(m.opts.Clock.Since(start).Seconds())
	}()

	sigs, err := m.opts.RPC.GetSignaturesForAddress(ctx, m.opts.Account, &solana.SignaturesOpts{Limit: m.opts.VerifyWindow})
	if err != nil {
		return "", 0, fmt.Errorf("fetch signatures: %w", err)
	}
	if len(sigs) > m.opts.VerifyWindow {
		sigs = sigs[:m.opts.VerifyWindow]
	}

	missing := 0
	for _, info := range sigs {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		if info.Err != nil || m.isConsumed(info.Signature) {
			continue
		}
		if baselineSlot > 0 && info.Slot <= baselineSlot {
			continue
		}

		tx, err := m.opts.RPC.GetTransaction(ctx, info.Signature)
		if err != nil {
			return "", 0, fmt.Errorf("fetch transaction %s: %w", info.Signature, err)
		}
		if tx == nil {
			missing++
			continue
		}
		if m.matches(tx, delta) {
			return info.Signature, info.Slot, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if missing > 0 {
		return "", 0, fmt.Errorf("%d recent transactions not yet available", missing)
	}
	return "", 0, nil
}

func (m *Monitor) matches(tx *solana.Transaction, delta uint64) bool {
	if tx.Failed() {
		return false
	}
	credited, ok := tx.BalanceDelta(m.opts.Account)
	if !ok || credited <= 0 {
		return false
	}
	if absDiff(uint64(credited), delta) > m.opts.Tolerance {
		return false
	}
	return m.touchesFeeProgram(tx)
}

// touchesFeeProgram checks instruction program ids, then "Program <id> invoke" log lines.
func (m *Monitor) touchesFeeProgram(tx *solana.Transaction) bool {
	for _, id := range tx.ProgramIDs() {
		if m.feePrograms[id] {
			return true
		}
	}
	if tx.Meta == nil {
		return false
	}
	for _, line := range tx.Meta.LogMessages {
		rest, ok := strings.CutPrefix(line, "Program ")
		if !ok {
			continue
		}
		if id, _, ok := strings.Cut(rest, " invoke"); ok && m.feePrograms[id] {
			return true
		}
	}
	return false
}

func (m *Monitor) advance(obs Observation) {
	m.mu.Lock()
	m.lastKnownBalance = obs.Balance
	if obs.Slot > m.lastSlot {
		m.lastSlot = obs.Slot
	}
	m.pruneConsumedLocked()
	m.mu.Unlock()
	observability.UpdateLastKnownBalance(obs.Balance)
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) isConsumed(signature string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.consumed[signature]
	return ok
}

// pruneConsumedLocked drops signatures the baseline slot already covers.
// Callers hold m.mu.
func (m *Monitor) pruneConsumedLocked() {
	if m.lastSlot <= 0 {
		return
	}
	for sig, slot := range m.consumed {
		if slot <= m.lastSlot {
			delete(m.consumed, sig)
		}
	}
}

func (m *Monitor) holdForReview(signature string, amount uint64, reason string) {
	m.mu.Lock()
	m.pending = append(m.pending, PendingReview{
		Signature:  signature,
		Amount:     amount,
		Reason:     reason,
		DetectedAt: m.opts.Clock.Now().UTC(),
	})
	n := len(m.pending)
	m.mu.Unlock()
	observability.UpdatePendingReviews(n)
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
