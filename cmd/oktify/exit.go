package main

import (
	"errors"
	"fmt"

	"github.com/hejijunhao/oktify/internal/model"
)

// Process exit codes.
const (
	exitOK             = 0
	exitFailure        = 1
	exitUsage          = 2
	exitAuthentication = 3
	exitRetryExhausted = 4
	exitTransport      = 5
)

// usageError marks an invalid invocation or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exitCode maps an error to a process exit code. Retry exhaustion is checked
// before transport because it wraps the last transport cause.
func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usage), errors.Is(err, model.ErrMalformedWindow):
		return exitUsage
	case errors.Is(err, model.ErrAuthentication):
		return exitAuthentication
	case errors.Is(err, model.ErrRetryExhausted):
		return exitRetryExhausted
	case errors.Is(err, model.ErrTransport):
		return exitTransport
	default:
		return exitFailure
	}
}
