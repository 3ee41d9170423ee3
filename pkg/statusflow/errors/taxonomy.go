// Package errors provides the error taxonomy for the status and
// recovery coordination core.
//
// The package implements a layered error handling approach:
//   - Classification: map any error to a Kind for routing decisions
//   - Normalization: wrap uncaught failures into a structured form
//   - Typed errors: validation, timeout, breaker, and execution failures
//
// The recovery engine keys its retry/circuit-breaker routing on Kind.
package errors

import (
	"context"
	"errors"
)

// Kind classifies an error for recovery routing.
type Kind string

// Error kind constants.
const (
	KindValidation     Kind = "ValidationError"
	KindTimeout        Kind = "TimeoutError"
	KindNetwork        Kind = "NetworkError"
	KindRateLimit      Kind = "RateLimitError"
	KindCircuitBreaker Kind = "CircuitBreakerError"
	KindExecution      Kind = "ExecutionError"
	KindSystem         Kind = "SystemError"
	KindUnknown        Kind = "UnknownError"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// IsRetryable reports whether errors of this kind belong to the fixed
// retryable set.
func (k Kind) IsRetryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimit:
		return true
	default:
		return false
	}
}

// Classify determines the kind of an error.
//
// Already-structured errors keep their recorded kind. Typed errors map
// directly. Context deadline errors classify as timeouts so that
// abandoned validator calls route the same way as explicit timeouts.
// Anything unrecognized is unknown.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var structured *StructuredError
	if errors.As(err, &structured) {
		return structured.Kind
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return KindValidation
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return KindTimeout
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return KindRateLimit
	}

	var breakerErr *CircuitBreakerError
	if errors.As(err, &breakerErr) {
		return KindCircuitBreaker
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return KindExecution
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindSystem
	}

	return KindUnknown
}

// IsRetryable reports whether the error's kind is in the retryable set.
func IsRetryable(err error) bool {
	return Classify(err).IsRetryable()
}
