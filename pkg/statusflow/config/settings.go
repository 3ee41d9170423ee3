package config

import (
	"fmt"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/recovery"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/status"
)

// Settings is the typed configuration surface of the coordination core.
// Zero sub-records are filled with documented defaults; Validate fails
// fast at construction time.
type Settings struct {
	Coordinator status.Config
	Retry       recovery.RetryConfig
	Breaker     recovery.BreakerConfig
}

// Defaults returns the documented default settings.
func Defaults() Settings {
	return Settings{
		Coordinator: status.DefaultConfig(),
		Retry:       recovery.DefaultRetry,
		Breaker:     recovery.DefaultBreaker,
	}
}

// SettingsFrom builds typed settings from a loaded Config.
// Missing keys and sections take the defaults.
func SettingsFrom(c Config) Settings {
	s := Defaults()

	coord := c.Section("coordinator")
	s.Coordinator.ValidationTimeout = coord.Duration("validation_timeout", s.Coordinator.ValidationTimeout)
	s.Coordinator.AllowConcurrentTransitions = coord.Bool("allow_concurrent_transitions", s.Coordinator.AllowConcurrentTransitions)
	s.Coordinator.EnableHistory = coord.Bool("enable_history", s.Coordinator.EnableHistory)
	s.Coordinator.MaxHistoryLength = coord.Int("max_history_length", s.Coordinator.MaxHistoryLength)

	retry := c.Section("retry")
	s.Retry.MaxRetries = retry.Int("max_retries", s.Retry.MaxRetries)
	s.Retry.InitialDelay = retry.Duration("initial_delay", s.Retry.InitialDelay)
	s.Retry.BackoffFactor = retry.Float("backoff_factor", s.Retry.BackoffFactor)

	breaker := c.Section("circuit_breaker")
	s.Breaker.FailureThreshold = breaker.Uint("failure_threshold", s.Breaker.FailureThreshold)
	s.Breaker.ResetTimeout = breaker.Duration("reset_timeout", s.Breaker.ResetTimeout)

	return s
}

// LoadSettings reads a config file and returns validated settings.
func LoadSettings(path string) (Settings, error) {
	cfg, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	s := SettingsFrom(cfg)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects unusable settings.
func (s Settings) Validate() error {
	if err := s.Coordinator.Validate(); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	if err := s.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if err := s.Breaker.Validate(); err != nil {
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}
