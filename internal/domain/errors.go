package domain

import "errors"

// Expected, non-error outcomes of normal operation. Callers branch on
// these rather than treating them as failures.
var (
	// ErrDuplicate signals a fingerprint collision at ingestion.
	ErrDuplicate = errors.New("duplicate candidate")

	// ErrRateLimited signals that both or either publish cap is exhausted;
	// terminal for the cycle, not an error.
	ErrRateLimited = errors.New("rate limited")

	// ErrClaimConflict signals a lost claim race: the row left pending
	// between selection and claim. Triggers reselection.
	ErrClaimConflict = errors.New("claim conflict")

	// ErrCircuitOpen is returned when a breaker short-circuits a call.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrNoCandidate signals an empty admissible candidate set.
	ErrNoCandidate = errors.New("no pending candidate")
)
