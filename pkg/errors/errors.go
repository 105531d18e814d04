// Package errors defines the sentinel and wrapper error types shared
// across the readiness coordinator's components.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when the registry or coordinator detects
	// a configuration-time problem (duplicate signal name, dependency
	// cycle, unknown dependency target) rather than a runtime failure.
	ErrConfiguration = errors.New("readiness: invalid configuration")

	// ErrSignalFailed is returned when a signal's wait reports a non-nil
	// error that is not itself a cancellation or timeout.
	ErrSignalFailed = errors.New("readiness: signal failed")

	// ErrSignalTimeout is returned when a signal exceeds its own timeout.
	ErrSignalTimeout = errors.New("readiness: signal timed out")

	// ErrRunCancelled is returned when a coordinator run is cancelled
	// before reaching a terminal aggregate status.
	ErrRunCancelled = errors.New("readiness: run cancelled")
)

// ConfigurationError wraps a configuration problem with a human-readable
// reason. It always unwraps to ErrConfiguration.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("readiness: invalid configuration: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(reason string) error {
	return &ConfigurationError{Reason: reason}
}

// SignalError wraps an error with the name of the signal that produced it.
type SignalError struct {
	Name string
	Err  error
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("readiness: signal %s: %v", e.Name, e.Err)
}

func (e *SignalError) Unwrap() error {
	return e.Err
}

// NewSignalError creates a new signal error.
func NewSignalError(name string, err error) error {
	return &SignalError{Name: name, Err: err}
}

// RunError is the composite error WaitAll raises under FailFast when the
// overall status becomes Failed. It carries every non-Succeeded result so
// callers can inspect the full picture without a second call to
// get_result.
type RunError struct {
	Failures []string // "<signal name>: <status>: <error, if any>"
}

func (e *RunError) Error() string {
	if len(e.Failures) == 0 {
		return "readiness: run failed"
	}
	msg := "readiness: run failed:"
	for _, f := range e.Failures {
		msg += " [" + f + "]"
	}
	return msg
}

func (e *RunError) Unwrap() error {
	return ErrSignalFailed
}

// NewRunError creates a new composite run error.
func NewRunError(failures []string) error {
	return &RunError{Failures: failures}
}
