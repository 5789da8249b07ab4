package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Generic error types

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrRateLimitExceeded indicates API rate limit exceeded
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrExternal indicates an upstream service returned an unusable answer
	ErrExternal = errors.New("external service error")
)

// Workflow errors. Adapter failures are converted into step results at the
// stage boundary; only ErrInvalidRequest ever reaches the caller.

var (
	// ErrInvalidRequest indicates request parameters outside declared bounds
	ErrInvalidRequest = errors.New("invalid request")

	// ErrSourceUnavailable indicates the document source is unreachable or unauthorized
	ErrSourceUnavailable = errors.New("document source unavailable")

	// ErrScoringUnavailable indicates the sentiment scorer failed on the whole batch
	ErrScoringUnavailable = errors.New("sentiment scoring unavailable")

	// ErrGenerationUnavailable indicates the recommendation generator failed
	ErrGenerationUnavailable = errors.New("response generation unavailable")

	// ErrCancelled indicates the run was cancelled by the caller
	ErrCancelled = errors.New("workflow cancelled")

	// ErrInvalidTransition indicates an illegal workflow state transition
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyDecided indicates a response already has an approval decision
	ErrAlreadyDecided = errors.New("response already decided")
)

// ValidationError represents a validation error with field-specific details
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ValidationErrors collects field errors for a single request.
// It unwraps to ErrInvalidRequest so callers can match with Is.
type ValidationErrors []*ValidationError

// Error implements the error interface
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(parts, "; "))
}

// Unwrap returns ErrInvalidRequest
func (v ValidationErrors) Unwrap() error {
	return ErrInvalidRequest
}

// ToError returns nil when no field failed
func (v ValidationErrors) ToError() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// MultiError wraps multiple errors
type MultiError struct {
	Errors []error
}

// Error implements the error interface
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors (%d): %v", len(m.Errors), m.Errors[0])
}

// Unwrap exposes all collected errors to errors.Is / errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Add adds an error to the list
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// ToError returns the MultiError as an error, or nil if no errors
func (m *MultiError) ToError() error {
	if !m.HasErrors() {
		return nil
	}
	return m
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Join marks err as an instance of kind while keeping the original chain.
// Both errors.Is(result, kind) and errors.Is(result, err) hold.
func Join(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
