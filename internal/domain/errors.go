package domain

import "errors"

// Error taxonomy shared by the ledger, exclusion, draw and fee components.
var (
	// ErrConfiguration is returned when price or configuration is missing or invalid.
	// Nothing proceeds on this error.
	ErrConfiguration = errors.New("configuration error")

	// ErrConflict is returned when an address already has an active exclusion.
	ErrConflict = errors.New("conflict: active exclusion exists")

	// ErrForbidden is returned when a non-system actor lifts a system exclusion.
	ErrForbidden = errors.New("forbidden: system exclusion can only be lifted by the system")

	// ErrNoEligibleEntries is returned when the draw pool is empty.
	ErrNoEligibleEntries = errors.New("no eligible entries")

	// ErrLimitExceeded is returned when a fee amount exceeds the daily ceiling.
	// Callers surface it for manual review and never retry automatically.
	ErrLimitExceeded = errors.New("fee amount exceeds daily reward limit")

	// ErrVerificationInconclusive means a balance increase could not be verified yet.
	// It is non-fatal and never confirms.
	ErrVerificationInconclusive = errors.New("verification inconclusive")

	// ErrInvariantViolation is returned when excluded or ineligible records reach the draw.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrDrawInProgress is returned when a draw is requested while another runs.
	ErrDrawInProgress = errors.New("draw already in progress")

	// ErrNotMonitoring is returned when stopping a monitor that is not running.
	ErrNotMonitoring = errors.New("monitor not running")

	// ErrAlreadyMonitoring is returned when starting a monitor that is running.
	ErrAlreadyMonitoring = errors.New("monitor already running")
)
