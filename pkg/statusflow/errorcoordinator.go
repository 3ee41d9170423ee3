package statusflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/observability"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/recovery"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/status"
)

// RecoveryStats summarizes error coordinator outcomes.
type RecoveryStats struct {
	Attempts    uint64
	Successes   uint64
	SuccessRate float64
}

// ErrorCoordinator consumes unhandled failures: it normalizes them,
// marks the owning entity as errored, and routes the error through the
// recovery engine. Recovery is observability plus a single remediation
// attempt, not a guarantee of resumption; an unrecovered error is
// returned to the caller.
type ErrorCoordinator struct {
	coordinator *status.Coordinator
	engine      *recovery.Engine
	snapshots   observability.SnapshotProvider
	logger      *slog.Logger

	mu        sync.Mutex
	attempts  uint64
	successes uint64
}

// ErrorCoordinatorOption configures an ErrorCoordinator.
type ErrorCoordinatorOption func(*ErrorCoordinator)

// WithErrorLogger sets the error coordinator's logger.
func WithErrorLogger(logger *slog.Logger) ErrorCoordinatorOption {
	return func(ec *ErrorCoordinator) {
		ec.logger = logger
	}
}

// WithErrorSnapshots sets the snapshot provider consulted at error time.
func WithErrorSnapshots(p observability.SnapshotProvider) ErrorCoordinatorOption {
	return func(ec *ErrorCoordinator) {
		ec.snapshots = p
	}
}

// NewErrorCoordinator creates an error coordinator over the given
// status coordinator and recovery engine.
func NewErrorCoordinator(coordinator *status.Coordinator, engine *recovery.Engine, opts ...ErrorCoordinatorOption) *ErrorCoordinator {
	ec := &ErrorCoordinator{
		coordinator: coordinator,
		engine:      engine,
		snapshots:   observability.NewRuntimeSnapshots(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	return ec
}

// Recover handles one unhandled failure from a managed operation.
//
// The cause is normalized into a structured error, the owning entity is
// transitioned to its error status with resource and performance
// snapshots taken at that instant, and the error is handed to the
// recovery engine. A successful recovery is logged and suppressed (nil
// returned); a failed one returns the recovery error, falling back to
// the original cause.
func (ec *ErrorCoordinator) Recover(
	ctx context.Context,
	kind entity.Kind,
	entityID string,
	component string,
	operation string,
	cause error,
) error {
	structured := sferrors.Normalize(cause, component)

	resource := ec.snapshots.ResourceSnapshot()
	performance := ec.snapshots.PerformanceSnapshot()

	transitionErr := ec.coordinator.Transition(ctx, &status.TransitionContext{
		EntityKind:          kind,
		EntityID:            entityID,
		TargetStatus:        kind.ErrorStatus(),
		Operation:           operation,
		Phase:               "error",
		StartTime:           time.Now(),
		ErrorContext:        structured,
		ResourceSnapshot:    &resource,
		PerformanceSnapshot: &performance,
	})
	if transitionErr != nil && ec.logger != nil {
		// The entity could not be marked as errored; recovery still runs.
		ec.logger.Warn("error status transition failed",
			slog.String("entity_kind", string(kind)),
			slog.String("entity_id", entityID),
			slog.String("error", transitionErr.Error()),
		)
	}

	result := ec.engine.Handle(ctx, structured, component)

	ec.mu.Lock()
	ec.attempts++
	if result.Success {
		ec.successes++
	}
	ec.mu.Unlock()

	if result.Success {
		if ec.logger != nil {
			ec.logger.Info("error recovered",
				slog.String("entity_kind", string(kind)),
				slog.String("entity_id", entityID),
				slog.String("strategy", string(result.Strategy)),
				slog.Int("attempts", result.Attempts),
			)
		}
		return nil
	}

	if ec.logger != nil {
		ec.logger.Error("error recovery failed",
			slog.String("entity_kind", string(kind)),
			slog.String("entity_id", entityID),
			slog.String("strategy", string(result.Strategy)),
			slog.String("error", structured.Error()),
		)
	}
	if result.Err != nil {
		return result.Err
	}
	return structured
}

// Stats returns the recovery outcome counters.
func (ec *ErrorCoordinator) Stats() RecoveryStats {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	stats := RecoveryStats{
		Attempts:  ec.attempts,
		Successes: ec.successes,
	}
	if ec.attempts > 0 {
		stats.SuccessRate = float64(ec.successes) / float64(ec.attempts)
	}
	return stats
}
