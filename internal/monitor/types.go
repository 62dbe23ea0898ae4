package monitor

import (
	"context"
	"time"

	"holder-rewards/internal/domain"
	"holder-rewards/internal/solana"
)

// State is the monitor's position in its state machine.
type State string

// States. Confirmed and Rejected are transient and recorded as outcomes.
const (
	StateIdle      State = "idle"
	StateObserving State = "observing"
	StateVerifying State = "verifying"
)

// Outcome is the result of one observation.
type Outcome string

// Observation outcomes.
const (
	OutcomeNoChange      Outcome = "no_change"
	OutcomeBelowMinimum  Outcome = "below_minimum"
	OutcomeStale         Outcome = "stale"
	OutcomeCoalesced     Outcome = "coalesced"
	OutcomeConfirmed     Outcome = "confirmed"
	OutcomeRejected      Outcome = "rejected"
	OutcomeInconclusive  Outcome = "inconclusive"
	OutcomeLimitExceeded Outcome = "limit_exceeded"
)

// Observation sources.
const (
	SourcePoll = "poll"
	SourcePush = "push"
)

// Observation is one reading of the watched account's balance.
type Observation struct {
	Balance uint64
	Slot    int64 // 0 when unknown
	Source  string
}

// BalanceClient is the subset of the RPC client the monitor reads from.
type BalanceClient interface {
	GetBalance(ctx context.Context, address string) (*solana.Balance, error)
	GetSignaturesForAddress(ctx context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error)
	GetTransaction(ctx context.Context, signature string) (*solana.Transaction, error)
}

// AccountSubscriber pushes balance changes of an account.
type AccountSubscriber interface {
	SubscribeAccount(ctx context.Context, address string) (<-chan solana.AccountNotification, error)
}

// Splitter turns a confirmed fee amount into a Distribution.
type Splitter interface {
	Split(delta uint64, signature string) (*domain.Distribution, error)
}

// DistributionSink receives every Distribution the monitor produces.
type DistributionSink interface {
	HandleDistribution(ctx context.Context, d *domain.Distribution) error
}

// PendingReview is a confirmed fee event held back for manual handling.
type PendingReview struct {
	Signature  string    `json:"signature"`
	Amount     uint64    `json:"amount"`
	Reason     string    `json:"reason"`
	DetectedAt time.Time `json:"detected_at"`
}

// Status is a point-in-time view of the monitor.
type Status struct {
	IsMonitoring   bool            `json:"is_monitoring"`
	State          State           `json:"state"`
	Account        string          `json:"account"`
	LastBalance    uint64          `json:"last_balance"`
	LastSlot       int64           `json:"last_slot"`
	LastOutcome    Outcome         `json:"last_outcome,omitempty"`
	LastObservedAt *time.Time      `json:"last_observed_at,omitempty"`
	Distributions  int             `json:"distributions"`
	PendingReview  []PendingReview `json:"pending_review"`
}
