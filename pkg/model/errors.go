package model

import (
	"errors"
	"fmt"
)

// ErrUnknownSwapper is returned when a swapper name is absent from the
// registry's classification table. Callers must reject the quote rather
// than defaulting to either swapper type.
var ErrUnknownSwapper = errors.New("unknown swapper")

// ValidationError rejects input that can never succeed (unsupported
// swapper, malformed amount, bad address). Raised before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a lookup miss for an entity the caller named.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// ExternalUnavailable wraps a chain-RPC or provider-API failure or
// timeout. Always transient: it is recorded but never by itself moves a
// quote to FAILED.
type ExternalUnavailable struct {
	Target string
	Err    error
}

func (e *ExternalUnavailable) Error() string {
	return fmt.Sprintf("external %s unavailable: %v", e.Target, e.Err)
}

func (e *ExternalUnavailable) Unwrap() error { return e.Err }

// InvalidTransitionError refuses a state-machine edge that does not
// exist, or a write whose row version no longer matches. Indicates a
// concurrency bug or a stale read; the record is never mutated.
type InvalidTransitionError struct {
	QuoteID string
	From    QuoteStatus
	To      QuoteStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s for quote %s", e.From, e.To, e.QuoteID)
}

// ExecutionError marks a strategy failure confirmed to be
// non-retryable. Only this error may drive a quote to FAILED, and never
// purely from a timeout.
type ExecutionError struct {
	Swapper SwapperName
	Reason  string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("execution failed via %s: %s: %v", e.Swapper, e.Reason, e.Err)
	}
	return fmt.Sprintf("execution failed via %s: %s", e.Swapper, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsValidation reports whether err should surface as a client error
// (HTTP 400 in the web binding).
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) || errors.Is(err, ErrUnknownSwapper)
}

// IsNotFound reports whether err is a lookup miss (HTTP 404).
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
