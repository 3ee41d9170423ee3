// Package status implements the generic status coordinator: a
// finite-state machine keyed by entity kind that drives validation,
// event construction, metric emission, and subscriber notification for
// every status transition.
//
// The coordinator does not hardcode legal transitions. It defers
// entirely to a pluggable Validator; TableValidator provides a
// rule-table implementation for the common case.
package status

import (
	"time"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/observability"
)

// TransitionContext describes one proposed status change plus the
// metadata used for validation, metrics, and events.
//
// EntityID, Operation, and StartTime are mandatory; their absence fails
// a transition before any validator runs.
type TransitionContext struct {
	EntityKind    entity.Kind
	EntityID      string
	CurrentStatus entity.Status
	TargetStatus  entity.Status
	Operation     string
	Phase         string
	StartTime     time.Time
	Duration      time.Duration
	Metadata      map[string]string

	// ErrorContext carries the normalized error when the transition is
	// driven by a failure.
	ErrorContext *sferrors.StructuredError

	// Snapshots captured at transition time, when available.
	ResourceSnapshot    *observability.ResourceSnapshot
	PerformanceSnapshot *observability.PerformanceSnapshot
}

// Validate checks the structural invariants of the context.
func (tc *TransitionContext) Validate() error {
	if !tc.EntityKind.Valid() {
		return sferrors.NewValidation("entityKind", "unknown entity kind "+string(tc.EntityKind))
	}
	if tc.EntityID == "" {
		return sferrors.NewValidation("entityId", "entity ID is required")
	}
	if tc.Operation == "" {
		return sferrors.NewValidation("operation", "operation is required")
	}
	if tc.StartTime.IsZero() {
		return sferrors.NewValidation("startTime", "start time is required")
	}
	if tc.TargetStatus == "" {
		return sferrors.NewValidation("targetStatus", "target status is required")
	}
	return nil
}
