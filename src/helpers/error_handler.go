package helpers

import (
	"errors"
	"fmt"
	"runtime/debug"

	"volume-spike-detector/src/logger"
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	ErrAlreadyRunning = errors.New("already running")
	ErrNotRunning     = errors.New("not running")
	ErrTokenExpired   = errors.New("access token expired")
	ErrRestartLimited = errors.New("restart limit reached")
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DetectorError struct {
	Message string
	Cause   error
}

func (e *DetectorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DetectorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ DetectorError }
type FeedError struct{ DetectorError }
type AuthError struct{ DetectorError }
type SinkError struct{ DetectorError }
type ValidationError struct{ DetectorError }

// -----------------------------------------------------------------------------

func NewFeedError(message string, cause error) error {
	return &FeedError{DetectorError{Message: message, Cause: cause}}
}

func NewAuthError(message string, cause error) error {
	return &AuthError{DetectorError{Message: message, Cause: cause}}
}

func NewSinkError(sink string, cause error) error {
	return &SinkError{DetectorError{Message: sink + " sink failed", Cause: cause}}
}

func NewValidationError(message string) error {
	return &ValidationError{DetectorError{Message: message}}
}

// -----------------------------------------------------------------------------
// Panic Recovery
// -----------------------------------------------------------------------------

// PanicError carries a recovered panic value.
type PanicError struct {
	Operation string
	Value     interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

// -----------------------------------------------------------------------------

// SafeRun executes fn and converts a panic into a *PanicError.
func SafeRun(log *logger.Logger, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Operation: operation, Value: r}
			if log != nil {
				log.Error("%s panicked: %v\n%s", operation, r, debug.Stack())
			}
		}
	}()
	return fn()
}
