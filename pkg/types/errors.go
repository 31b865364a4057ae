package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Venue and ledger failures abort
// the cycle and bubble to the action handler; credential and signing failures
// are scoped to the action or leg that needed them.
var (
	// ErrVenueUnavailable indicates a venue returned a non-success response.
	ErrVenueUnavailable = errors.New("venue unavailable")

	// ErrCredentialsUnavailable indicates signing material is missing.
	// Checked before any network call is made.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")

	// ErrUnparseableMarket indicates a venue listing could not be normalized
	// through the documented field fallback chain.
	ErrUnparseableMarket = errors.New("unparseable market")

	// ErrLedgerWrite indicates a trade record could not be persisted.
	// Never swallowed: losing a trade record silently is worse than failing.
	ErrLedgerWrite = errors.New("ledger write failed")
)

// VenueError wraps a non-success HTTP response from a venue.
type VenueError struct {
	Venue      Platform
	StatusCode int
	Body       string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Venue, e.StatusCode, e.Body)
}

// Unwrap lets callers match with errors.Is(err, ErrVenueUnavailable).
func (e *VenueError) Unwrap() error { return ErrVenueUnavailable }

// SigningError wraps a per-leg signing failure (malformed key, unsupported
// format, rejected signature). It fails only the specific order, never the
// broader scan or orchestration cycle.
type SigningError struct {
	Venue Platform
	Op    string
	Err   error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("%s signing failed (%s): %v", e.Venue, e.Op, e.Err)
}

func (e *SigningError) Unwrap() error { return e.Err }
