package domain

import "time"

// SystemActor is the actor recorded on exclusions applied by reconciliation.
const SystemActor = "SYSTEM"

// Exclusion reasons applied by the system.
const (
	ReasonSystemAddress = "system address"
	ReasonProgramOwned  = "program-owned account"
)

// ExclusionRecord is an append-mostly log entry barring an address from draws.
// Corresponds to exclusions table in PostgreSQL.
type ExclusionRecord struct {
	ID        string
	Address   string
	Reason    string
	AppliedBy string // SystemActor or admin identifier
	AppliedAt time.Time
	Active    bool
	LiftedBy  *string
	LiftedAt  *time.Time
}

// IsSystem reports whether the exclusion was applied by the system.
func (e *ExclusionRecord) IsSystem() bool {
	return e.AppliedBy == SystemActor
}
