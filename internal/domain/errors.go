package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Not-found errors, one per aggregate.
var (
	// ErrAgreementNotFound is returned when no credit agreement matches the ID.
	ErrAgreementNotFound = errors.New("credit agreement not found")

	// ErrFacilityNotFound is returned when no facility matches the ID.
	ErrFacilityNotFound = errors.New("facility not found")

	// ErrPositionNotFound is returned when no position matches the criteria.
	ErrPositionNotFound = errors.New("position not found")

	// ErrLoanNotFound is returned when no loan matches the ID.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrTradeNotFound is returned when no trade matches the ID.
	ErrTradeNotFound = errors.New("trade not found")
)

// Concurrency and external-dependency errors.
var (
	// ErrVersionConflict is returned when an optimistic write hit a stale
	// version. Safe for the caller to retry with fresh reads; every other
	// error kind requires corrected input.
	ErrVersionConflict = errors.New("record was modified concurrently, retry with fresh data")

	// ErrDirectoryUnavailable is returned when the entity/KYC directory could
	// not be reached or returned an unusable response.
	ErrDirectoryUnavailable = errors.New("entity directory is unavailable")
)

// ──────────────────────────────────────────────────────────────────────────────
// Typed errors
// ──────────────────────────────────────────────────────────────────────────────

// ValidationError reports that a named ledger invariant would be violated.
// Reason always identifies the specific invariant, never a generic
// "invalid input".
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StateTransitionError reports an illegal status change, e.g. reactivating a
// CLOSED loan or a COMPLETED position.
type StateTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("illegal %s status transition: %s -> %s", e.Entity, e.From, e.To)
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound stays in sync automatically.
var notFoundErrors = []error{
	ErrAgreementNotFound,
	ErrFacilityNotFound,
	ErrPositionNotFound,
	ErrLoanNotFound,
	ErrTradeNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true when err carries a ValidationError anywhere in
// its chain.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStateTransition returns true when err carries a StateTransitionError.
func IsStateTransition(err error) bool {
	var se *StateTransitionError
	return errors.As(err, &se)
}

// IsConflict returns true for optimistic-concurrency conflicts — the only
// error kind a caller may retry automatically (with fresh reads).
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsExternal returns true when the failure originated in an external
// collaborator (entity/KYC directory) rather than in the ledger itself.
func IsExternal(err error) bool {
	return errors.Is(err, ErrDirectoryUnavailable)
}
