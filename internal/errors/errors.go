// Package apperrors defines structured error types for the halo-model engine,
// allowing callers to distinguish configuration problems from numerical
// failures while still carrying the underlying cause.
//
// Error Wrapping Guidelines:
// This package follows Go's error wrapping conventions using fmt.Errorf with %w.
// All wrapping error types implement Unwrap() to support errors.Is() and errors.As().
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Process exit codes used by the developer tools under cmd/.
const (
	ExitSuccess          = 0   // Indicates successful execution.
	ExitErrorGeneric     = 1   // Indicates a generic error.
	ExitErrorConvergence = 2   // Indicates a quadrature that did not converge.
	ExitErrorConfig      = 4   // Indicates a configuration error.
	ExitErrorCanceled    = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError reports a parameter that is missing or outside its valid
// domain. It is raised at mutation time (construction and the Set* methods)
// and when the mean galaxy density turns out to be zero.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ConvergenceError is returned when adaptive quadrature exhausts its
// refinement depth without meeting the requested tolerance. The last
// estimate is kept for diagnostics only; callers must not use it as a result.
type ConvergenceError struct {
	// Depth is the number of refinement levels that were performed.
	Depth int
	// Difference is the absolute change between the last two levels.
	Difference float64
	// Estimate is the last (unconverged) value of the integral.
	Estimate float64
}

// Error returns a description of the failed integration.
func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("integration did not converge after %d refinements (last difference %.3e, estimate %.6e)",
		e.Depth, e.Difference, e.Estimate)
}

// ValidationError represents an invalid field of a parameter set.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message describes why validation failed.
	Message string
	// Value is the invalid value (optional, may be nil).
	Value any
}

// Error returns the error message for a ValidationError.
func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// NewValidationError creates a new ValidationError.
//
// Parameters:
//   - field: The name of the field that failed validation.
//   - message: A description of why validation failed.
//   - value: The invalid value (optional).
//
// Returns:
//   - error: A new ValidationError instance.
func NewValidationError(field, message string, value any) error {
	return ValidationError{Field: field, Message: message, Value: value}
}

// AsConfigError converts a ValidationError into the ConfigError class used
// by the engine's mutators, keeping the field name in the message. Other
// errors are returned unchanged.
func AsConfigError(err error) error {
	var ve ValidationError
	if errors.As(err, &ve) {
		return ConfigError{Message: ve.Error()}
	}
	return err
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsConvergenceError reports whether err wraps a ConvergenceError.
func IsConvergenceError(err error) bool {
	var ce *ConvergenceError
	return errors.As(err, &ce)
}

// IsConfigError reports whether err wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce ConfigError
	return errors.As(err, &ce)
}
