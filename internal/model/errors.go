package model

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the audit pipeline. Match with errors.Is.
var (
	ErrAuthentication  = errors.New("authentication failure")
	ErrMalformedQuery  = errors.New("malformed query")
	ErrRateLimited     = errors.New("rate limited")
	ErrTransport       = errors.New("transport failure")
	ErrRetryExhausted  = errors.New("retry exhausted")
	ErrMalformedWindow = errors.New("malformed window")
	ErrMalformedEvent  = errors.New("malformed event")
)

// RetryExhaustedError aborts a pagination after too many retryable failures.
// LastCursor is the last page reference that was fully consumed; empty when no
// page succeeded.
type RetryExhaustedError struct {
	Window     TimeWindow
	LastCursor string
	Attempts   int
	Cause      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts (window %s, last cursor %q): %v",
		e.Attempts, e.Window, e.LastCursor, e.Cause)
}

// Unwrap exposes both ErrRetryExhausted and the last underlying cause.
func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Cause}
}

// MalformedEventError is a per-row extraction failure.
type MalformedEventError struct {
	EventID   string
	EventType string
	Field     string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %s (%s): missing %s", e.EventID, e.EventType, e.Field)
}

func (e *MalformedEventError) Unwrap() error { return ErrMalformedEvent }
