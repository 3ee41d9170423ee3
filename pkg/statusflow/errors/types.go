package errors

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ValidationError indicates a structurally invalid transition context or
// a rejected business rule. It aggregates every error and warning string
// collected by validators and handlers.
type ValidationError struct {
	Field    string
	Errors   []string
	Warnings []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msg := strings.Join(e.Errors, "; ")
	if msg == "" {
		msg = "validation failed"
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error on %s: %s", e.Field, msg)
	}
	return fmt.Sprintf("validation error: %s", msg)
}

// NewValidation creates a validation error for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Errors: []string{message}}
}

// TimeoutError indicates an operation exceeded its budget.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Budget, e.Op)
}

// NetworkError indicates a transport-level failure reaching a
// collaborator.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RateLimitError indicates a collaborator rejected a call due to rate
// limiting. RetryAfter is advisory and may be zero.
type RateLimitError struct {
	Op         string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited during %s (retry after %s)", e.Op, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited during %s", e.Op)
}

// CircuitBreakerError indicates the breaker for an (error kind,
// component) key is open. ResetIn is the remaining cooldown.
type CircuitBreakerError struct {
	ErrorKind Kind
	Component string
	ResetIn   time.Duration
}

// Error implements the error interface.
func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s/%s (reset in %s)",
		e.ErrorKind, e.Component, e.ResetIn)
}

// ExecutionError wraps an uncaught failure inside a subscriber or event
// handler.
type ExecutionError struct {
	Handler string
	Err     error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Handler != "" {
		return fmt.Sprintf("execution failed in %s: %v", e.Handler, e.Err)
	}
	return fmt.Sprintf("execution failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// StructuredError is the normalized form of an unhandled exception.
// The error coordinator produces one before routing a failure through
// the recovery engine.
type StructuredError struct {
	// ID uniquely identifies this error occurrence.
	ID string

	// Kind is the classified error kind.
	Kind Kind

	// Message is the original error message.
	Message string

	// Component names the subsystem the error originated in.
	Component string

	// Context carries arbitrary diagnostic metadata.
	Context map[string]any

	// Stack is the goroutine stack captured at normalization time.
	Stack string

	// Err is the original error.
	Err error
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Component, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the original error.
func (e *StructuredError) Unwrap() error {
	return e.Err
}

// Normalize wraps err into a StructuredError attributed to component.
// Already-normalized errors are returned unchanged so repeated
// normalization is idempotent.
func Normalize(err error, component string) *StructuredError {
	if structured, ok := err.(*StructuredError); ok {
		return structured
	}

	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)

	return &StructuredError{
		ID:        uuid.New().String(),
		Kind:      Classify(err),
		Message:   err.Error(),
		Component: component,
		Stack:     string(buf[:n]),
		Err:       err,
	}
}

// WithContext attaches a diagnostic key/value pair and returns the
// error for chaining.
func (e *StructuredError) WithContext(key string, value any) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
