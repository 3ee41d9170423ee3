package recovery

import (
	"errors"
	"time"
)

// RetryConfig configures the retry strategy.
type RetryConfig struct {
	// MaxRetries is the number of recovery action attempts.
	MaxRetries int

	// InitialDelay is the backoff before the first attempt.
	InitialDelay time.Duration

	// BackoffFactor is the multiplier applied to the delay after each
	// failed attempt.
	BackoffFactor float64
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxRetries:    3,
	InitialDelay:  100 * time.Millisecond,
	BackoffFactor: 2.0,
}

// AggressiveRetry retries more times with a gentler curve.
var AggressiveRetry = RetryConfig{
	MaxRetries:    5,
	InitialDelay:  50 * time.Millisecond,
	BackoffFactor: 1.5,
}

// Validate rejects unusable retry configurations.
func (c RetryConfig) Validate() error {
	if c.MaxRetries <= 0 {
		return errors.New("max retries must be positive")
	}
	if c.InitialDelay < 0 {
		return errors.New("initial delay must not be negative")
	}
	if c.BackoffFactor < 1 {
		return errors.New("backoff factor must be at least 1")
	}
	return nil
}

// delayFor returns the backoff that precedes a 1-indexed attempt:
// InitialDelay * BackoffFactor^(attempt-1).
func (c RetryConfig) delayFor(attempt int) time.Duration {
	delay := float64(c.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= c.BackoffFactor
	}
	return time.Duration(delay)
}

// RetryOption configures retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxRetries sets the number of attempts.
func WithMaxRetries(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxRetries = n
	}
}

// WithInitialDelay sets the backoff before the first attempt.
func WithInitialDelay(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.InitialDelay = d
	}
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.BackoffFactor = f
	}
}

// NewRetryConfig creates a retry configuration from options, starting
// at the defaults.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
