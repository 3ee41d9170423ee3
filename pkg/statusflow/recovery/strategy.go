// Package recovery implements the error recovery engine: retry with
// exponential backoff, per-key circuit breaking, and process-wide error
// aggregation for observability.
//
// The engine classifies each error as retryable, circuit-breakable, or
// unmanaged and executes the matching strategy. Every invocation updates
// the shared aggregation regardless of outcome, so observability is
// unconditional even when recovery is not attempted.
package recovery

import "time"

// Strategy names the recovery path chosen for an error.
type Strategy string

// Recovery strategies.
const (
	StrategyRetry          Strategy = "retry"
	StrategyCircuitBreaker Strategy = "circuitBreaker"
	StrategyFallback       Strategy = "fallback"
	StrategyNone           Strategy = "none"
)

// String returns the strategy name.
func (s Strategy) String() string {
	return string(s)
}

// Result reports the outcome of one recovery engine invocation.
type Result struct {
	// Success is true when the chosen strategy resolved the error.
	Success bool

	// Strategy is the path the engine took.
	Strategy Strategy

	// Attempts is the number of recovery action invocations made.
	Attempts int

	// Duration is the total time spent inside the engine.
	Duration time.Duration

	// Err is the final error when Success is false.
	Err error
}
