/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability. The
  pure calculators have NO failure modes by design (missing data yields
  "nothing required"); errors exist only at the store boundary and for
  input validation in the surrounding application.

USAGE:
  if errors.Is(err, ce.ErrCredentialNotFound) {
      http.Error(w, "unknown credential", http.StatusNotFound)
  }

SEE ALSO:
  - repository.go: Store boundary that returns these
  - api/handlers.go: Maps them to HTTP status codes
*/
package ce

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrCredentialNotFound is returned when a referenced credential doesn't exist.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrPeriodNotFound is returned when a referenced renewal period doesn't exist.
	ErrPeriodNotFound = errors.New("renewal period not found")

	// ErrActivityNotFound is returned when a referenced activity doesn't exist.
	ErrActivityNotFound = errors.New("activity not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrNegativeAmount is returned when a write carries a negative CE amount.
	// CE amounts are non-negative by construction; the store enforces it.
	ErrNegativeAmount = errors.New("ce amount must not be negative")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError carries the ID that missed, wrapping the matching sentinel.
type NotFoundError struct {
	Kind string // "credential", "period", "activity"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	switch e.Kind {
	case "period":
		return ErrPeriodNotFound
	case "activity":
		return ErrActivityNotFound
	default:
		return ErrCredentialNotFound
	}
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrActivityNotFound)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrNegativeAmount)
}
