package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/observability"
)

// Action is the recovery action the retry and fallback strategies
// invoke. The engine retries this action, not the original failing
// operation; the original call is never re-invoked here.
type Action func(ctx context.Context) error

// Engine routes errors to a recovery strategy and aggregates error
// statistics. Construct one per process and share it.
type Engine struct {
	retry    RetryConfig
	breaker  BreakerConfig
	fallback Action

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	mu          sync.Mutex
	breakers    map[breakerKey]*breakerState
	aggregation *Aggregation
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRetry overrides the default retry configuration.
func WithRetry(cfg RetryConfig) EngineOption {
	return func(e *Engine) {
		e.retry = cfg
	}
}

// WithBreaker overrides the default circuit breaker configuration.
func WithBreaker(cfg BreakerConfig) EngineOption {
	return func(e *Engine) {
		e.breaker = cfg
	}
}

// WithFallback sets the recovery action invoked by the retry and
// fallback strategies.
func WithFallback(action Action) EngineOption {
	return func(e *Engine) {
		e.fallback = action
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics sink. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithSpanManager sets the tracing sink. Default: no-op.
func WithSpanManager(s observability.SpanManager) EngineOption {
	return func(e *Engine) {
		e.spans = s
	}
}

// NewEngine creates a recovery engine. Missing retry/breaker sections
// take the documented defaults; invalid ones fail construction.
func NewEngine(opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		retry:       DefaultRetry,
		breaker:     DefaultBreaker,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
		breakers:    make(map[breakerKey]*breakerState),
		aggregation: newAggregation(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.retry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	if err := e.breaker.Validate(); err != nil {
		return nil, fmt.Errorf("invalid circuit breaker config: %w", err)
	}
	return e, nil
}

// CanHandle reports whether the engine manages errors like err arising
// in component: either the error's kind is retryable, or the breaker for
// (kind, component) has already accumulated failures at the threshold.
func (e *Engine) CanHandle(err error, component string) bool {
	kind := sferrors.Classify(err)
	if kind.IsRetryable() {
		return true
	}
	return e.breakerTripped(breakerKey{kind: kind, component: component})
}

// Handle routes an error through the matching strategy and updates the
// aggregation regardless of the branch taken.
func (e *Engine) Handle(ctx context.Context, err error, component string) Result {
	start := time.Now()
	kind := sferrors.Classify(err)
	key := breakerKey{kind: kind, component: component}

	spanCtx, span := e.spans.StartRecoverySpan(ctx, string(kind), component)
	ctx = spanCtx

	e.aggregate(kind, component, start)

	var result Result
	switch {
	case e.breakerTripped(key):
		result = e.handleCircuitBreaker(key, start)
	case kind.IsRetryable():
		result = e.handleRetry(ctx, key, start)
	case e.fallback != nil:
		result = e.handleFallback(ctx, start)
	default:
		result = Result{
			Success:  false,
			Strategy: StrategyNone,
			Duration: time.Since(start),
			Err:      err,
		}
	}

	e.metrics.RecordRecovery(ctx, string(result.Strategy), result.Success, result.Attempts, result.Duration)
	e.spans.EndSpanWithError(span, result.Err)
	observability.LogRecoveryResult(e.logger, string(kind), component,
		string(result.Strategy), result.Success, result.Attempts)
	return result
}

// handleRetry runs the retry strategy: up to MaxRetries 1-indexed
// attempts, each preceded by an exponential backoff sleep, each invoking
// the recovery action exactly once. The first clean completion wins.
func (e *Engine) handleRetry(ctx context.Context, key breakerKey, start time.Time) Result {
	if e.fallback == nil {
		return Result{
			Success:  false,
			Strategy: StrategyRetry,
			Duration: time.Since(start),
			Err:      fmt.Errorf("retry strategy requires a recovery action"),
		}
	}

	var lastErr error
	for attempt := 1; attempt <= e.retry.MaxRetries; attempt++ {
		delay := e.retry.delayFor(attempt)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return Result{
					Success:  false,
					Strategy: StrategyRetry,
					Attempts: attempt - 1,
					Duration: time.Since(start),
					Err:      ctx.Err(),
				}
			case <-time.After(delay):
			}
		}

		if err := e.fallback(ctx); err != nil {
			lastErr = err
			observability.LogRecoveryAttempt(e.logger, string(key.kind), key.component, attempt, err)
			continue
		}

		return Result{
			Success:  true,
			Strategy: StrategyRetry,
			Attempts: attempt,
			Duration: time.Since(start),
		}
	}

	return Result{
		Success:  false,
		Strategy: StrategyRetry,
		Attempts: e.retry.MaxRetries,
		Duration: time.Since(start),
		Err:      lastErr,
	}
}

// handleCircuitBreaker runs the breaker strategy for one key.
func (e *Engine) handleCircuitBreaker(key breakerKey, start time.Time) Result {
	open, resetIn := e.recordFailure(key, start)
	if open {
		return Result{
			Success:  false,
			Strategy: StrategyCircuitBreaker,
			Duration: time.Since(start),
			Err: &sferrors.CircuitBreakerError{
				ErrorKind: key.kind,
				Component: key.component,
				ResetIn:   resetIn,
			},
		}
	}
	return Result{
		Success:  true,
		Strategy: StrategyCircuitBreaker,
		Duration: time.Since(start),
	}
}

// handleFallback invokes the recovery action exactly once.
func (e *Engine) handleFallback(ctx context.Context, start time.Time) Result {
	if err := e.fallback(ctx); err != nil {
		return Result{
			Success:  false,
			Strategy: StrategyFallback,
			Attempts: 1,
			Duration: time.Since(start),
			Err:      err,
		}
	}
	return Result{
		Success:  true,
		Strategy: StrategyFallback,
		Attempts: 1,
		Duration: time.Since(start),
	}
}
