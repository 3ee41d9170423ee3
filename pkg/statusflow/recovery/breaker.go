package recovery

import (
	"errors"
	"time"

	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
)

// BreakerConfig configures the circuit breaker strategy.
type BreakerConfig struct {
	// FailureThreshold is the failure count at which the breaker opens.
	FailureThreshold uint

	// ResetTimeout is the cooldown after which one probe call may reset
	// the breaker.
	ResetTimeout time.Duration
}

// DefaultBreaker is the standard circuit breaker configuration.
var DefaultBreaker = BreakerConfig{
	FailureThreshold: 5,
	ResetTimeout:     60 * time.Second,
}

// Validate rejects unusable breaker configurations.
func (c BreakerConfig) Validate() error {
	if c.FailureThreshold == 0 {
		return errors.New("failure threshold must be positive")
	}
	if c.ResetTimeout <= 0 {
		return errors.New("reset timeout must be positive")
	}
	return nil
}

// breakerKey identifies one breaker: failures accumulate per
// (error kind, component) pair.
type breakerKey struct {
	kind      sferrors.Kind
	component string
}

// breakerState holds the mutable state for one key. Created lazily on
// first failure, reset to zero once the cooldown elapses.
type breakerState struct {
	failures    uint
	lastFailure time.Time
}

// BreakerSnapshot is a read-only view of one breaker's state.
type BreakerSnapshot struct {
	ErrorKind   sferrors.Kind
	Component   string
	Failures    uint
	LastFailure time.Time
}

// recordFailure applies one failure to the breaker for key and decides
// between staying open and resetting.
//
// The elapsed time is measured against the previous failure, before the
// new stamp: once the threshold is crossed the breaker rejects calls
// until ResetTimeout has passed since the last failure, at which point a
// single probe call resets the count to zero and succeeds.
func (e *Engine) recordFailure(key breakerKey, now time.Time) (open bool, resetIn time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[key]
	if !ok {
		state = &breakerState{}
		e.breakers[key] = state
	}

	previous := state.lastFailure
	state.failures++
	state.lastFailure = now

	elapsed := now.Sub(previous)
	if state.failures >= e.breaker.FailureThreshold && !previous.IsZero() && elapsed < e.breaker.ResetTimeout {
		return true, e.breaker.ResetTimeout - elapsed
	}

	state.failures = 0
	state.lastFailure = time.Time{}
	return false, 0
}

// breakerTripped reports whether the breaker for key has accumulated
// failures at or beyond the threshold.
func (e *Engine) breakerTripped(key breakerKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.breakers[key]
	return ok && state.failures >= e.breaker.FailureThreshold
}

// RecordBreakerFailure counts one failure against the breaker for the
// error's kind and component without running any strategy. Callers use
// it to pre-load breaker state from failures observed outside the
// engine.
func (e *Engine) RecordBreakerFailure(err error, component string) {
	key := breakerKey{kind: sferrors.Classify(err), component: component}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[key]
	if !ok {
		state = &breakerState{}
		e.breakers[key] = state
	}
	state.failures++
	state.lastFailure = time.Now()
}

// BreakerState returns a snapshot of the breaker for an error kind and
// component, and whether one exists.
func (e *Engine) BreakerState(kind sferrors.Kind, component string) (BreakerSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.breakers[breakerKey{kind: kind, component: component}]
	if !ok {
		return BreakerSnapshot{}, false
	}
	return BreakerSnapshot{
		ErrorKind:   kind,
		Component:   component,
		Failures:    state.failures,
		LastFailure: state.lastFailure,
	}, true
}
