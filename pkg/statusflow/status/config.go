package status

import (
	"errors"
	"time"
)

// Config fixes coordinator behavior at construction time.
// Start from DefaultConfig and override fields as needed; NewCoordinator
// validates the result and fails fast on nonsense values.
type Config struct {
	// ValidationTimeout bounds each validator call. Default: 5s.
	ValidationTimeout time.Duration

	// AllowConcurrentTransitions disables per-entity serialization.
	// When false (the default), transitions for the same (kind, id) are
	// queued behind a per-entity mutex.
	AllowConcurrentTransitions bool

	// EnableHistory keeps a bounded per-entity transition history.
	EnableHistory bool

	// MaxHistoryLength caps the per-entity history. Default: 1000.
	MaxHistoryLength int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ValidationTimeout:          5 * time.Second,
		AllowConcurrentTransitions: false,
		EnableHistory:              true,
		MaxHistoryLength:           1000,
	}
}

// Validate rejects unusable configurations.
func (c Config) Validate() error {
	if c.ValidationTimeout <= 0 {
		return errors.New("validation timeout must be positive")
	}
	if c.EnableHistory && c.MaxHistoryLength <= 0 {
		return errors.New("max history length must be positive when history is enabled")
	}
	return nil
}
