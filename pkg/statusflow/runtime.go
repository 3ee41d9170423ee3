package statusflow

import (
	"log/slog"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/config"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/observability"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/recovery"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/status"
)

// Runtime is the composition root: it constructs and owns one
// dispatcher, one status coordinator, one recovery engine, and one
// error coordinator per process, wiring them together through explicit
// dependency injection.
type Runtime struct {
	dispatcher  *event.Dispatcher
	coordinator *status.Coordinator
	engine      *recovery.Engine
	errors      *ErrorCoordinator
}

// runtimeConfig accumulates construction options.
type runtimeConfig struct {
	settings  config.Settings
	validator status.Validator
	logger    *slog.Logger
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	snapshots observability.SnapshotProvider
	reporter  status.ReportSink
	onChange  status.OnChangeFunc
	recover   recovery.Action
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

// WithSettings replaces the default settings wholesale.
func WithSettings(s config.Settings) RuntimeOption {
	return func(c *runtimeConfig) {
		c.settings = s
	}
}

// WithValidator sets the transition validator. Default: a table
// validator with no rules would reject everything, so the default is
// AllowAll; production callers supply their own.
func WithValidator(v status.Validator) RuntimeOption {
	return func(c *runtimeConfig) {
		c.validator = v
	}
}

// WithLogger sets the logger shared by all components.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink shared by all components.
func WithMetrics(m observability.MetricsRecorder) RuntimeOption {
	return func(c *runtimeConfig) {
		c.metrics = m
	}
}

// WithSpanManager sets the tracing sink shared by all components.
func WithSpanManager(s observability.SpanManager) RuntimeOption {
	return func(c *runtimeConfig) {
		c.spans = s
	}
}

// WithSnapshots sets the provider for resource/performance snapshots
// captured at error time. Default: runtime-backed.
func WithSnapshots(p observability.SnapshotProvider) RuntimeOption {
	return func(c *runtimeConfig) {
		c.snapshots = p
	}
}

// WithReportSink sets the fire-and-forget report sink.
func WithReportSink(r status.ReportSink) RuntimeOption {
	return func(c *runtimeConfig) {
		c.reporter = r
	}
}

// WithOnChange sets the synchronous status change callback.
func WithOnChange(fn status.OnChangeFunc) RuntimeOption {
	return func(c *runtimeConfig) {
		c.onChange = fn
	}
}

// WithRecoveryAction sets the recovery action invoked by the engine's
// retry and fallback strategies.
func WithRecoveryAction(a recovery.Action) RuntimeOption {
	return func(c *runtimeConfig) {
		c.recover = a
	}
}

// New constructs a Runtime from options, validating all configuration
// up front.
func New(opts ...RuntimeOption) (*Runtime, error) {
	cfg := &runtimeConfig{
		settings:  config.Defaults(),
		validator: status.AllowAll(),
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},
		snapshots: observability.NewRuntimeSnapshots(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.settings.Validate(); err != nil {
		return nil, err
	}

	dispatcher := event.NewDispatcher(
		event.WithLogger(cfg.logger),
		event.WithEmitObserver(cfg.metrics.RecordEmit),
	)

	coordinator, err := status.NewCoordinator(cfg.validator, dispatcher, cfg.settings.Coordinator,
		status.WithLogger(cfg.logger),
		status.WithMetrics(cfg.metrics),
		status.WithSpanManager(cfg.spans),
		status.WithReportSink(cfg.reporter),
		status.WithOnChange(cfg.onChange),
	)
	if err != nil {
		return nil, err
	}

	engineOpts := []recovery.EngineOption{
		recovery.WithRetry(cfg.settings.Retry),
		recovery.WithBreaker(cfg.settings.Breaker),
		recovery.WithLogger(cfg.logger),
		recovery.WithMetrics(cfg.metrics),
		recovery.WithSpanManager(cfg.spans),
	}
	if cfg.recover != nil {
		engineOpts = append(engineOpts, recovery.WithFallback(cfg.recover))
	}
	engine, err := recovery.NewEngine(engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Runtime{
		dispatcher:  dispatcher,
		coordinator: coordinator,
		engine:      engine,
		errors: NewErrorCoordinator(coordinator, engine,
			WithErrorLogger(cfg.logger),
			WithErrorSnapshots(cfg.snapshots),
		),
	}, nil
}

// Coordinator returns the status coordinator.
func (r *Runtime) Coordinator() *status.Coordinator {
	return r.coordinator
}

// Dispatcher returns the event dispatcher.
func (r *Runtime) Dispatcher() *event.Dispatcher {
	return r.dispatcher
}

// Engine returns the error recovery engine.
func (r *Runtime) Engine() *recovery.Engine {
	return r.engine
}

// Errors returns the error coordinator.
func (r *Runtime) Errors() *ErrorCoordinator {
	return r.errors
}
