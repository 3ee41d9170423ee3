// Package event provides the typed publish/subscribe dispatcher used to
// fan status change events out to handlers.
//
// Delivery follows a two-phase validate-then-handle protocol: every
// registered handler must approve an event before any handler is allowed
// to act on it. The protocol trades all-or-nothing delivery for the
// inability to partially validate: one rejecting handler blocks the
// event instance for all handlers of that type.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
)

// Event is the minimal contract the dispatcher routes on.
// Events are immutable once created.
type Event interface {
	// ID uniquely identifies the event.
	ID() string

	// Type is the dispatch key (e.g., "status.task.changed").
	Type() string

	// Timestamp is when the event occurred.
	Timestamp() time.Time

	// Data returns the event payload.
	Data() any
}

// ValidationResult is the outcome of a validation pass.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// OK is a passing validation result.
func OK() ValidationResult {
	return ValidationResult{Valid: true}
}

// Invalid creates a failing validation result with the given errors.
func Invalid(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// Merge folds another result into this one. The merged result is valid
// only if both inputs are.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	return ValidationResult{
		Valid:    r.Valid && other.Valid,
		Errors:   append(append([]string(nil), r.Errors...), other.Errors...),
		Warnings: append(append([]string(nil), r.Warnings...), other.Warnings...),
	}
}

// StatusChangeEvent records one successful status transition.
// Exactly one is produced per successful transition.
type StatusChangeEvent struct {
	EventID       string            `json:"id"`
	OccurredAt    time.Time         `json:"timestamp"`
	EntityKind    entity.Kind       `json:"entity_kind"`
	EntityID      string            `json:"entity_id"`
	From          entity.Status     `json:"from"`
	To            entity.Status     `json:"to"`
	Validation    ValidationResult  `json:"validation"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewStatusChange creates a status change event. The ID is derived
// deterministically from the kind, entity ID, and timestamp so that the
// same transition always yields the same event identity.
func NewStatusChange(
	kind entity.Kind,
	entityID string,
	from, to entity.Status,
	validation ValidationResult,
	metadata map[string]string,
) *StatusChangeEvent {
	now := time.Now().UTC()
	return &StatusChangeEvent{
		EventID:       StatusChangeID(kind, entityID, now),
		OccurredAt:    now,
		EntityKind:    kind,
		EntityID:      entityID,
		From:          from,
		To:            to,
		Validation:    validation,
		CorrelationID: uuid.New().String(),
		Metadata:      metadata,
	}
}

// StatusChangeID derives the deterministic event ID for a transition.
func StatusChangeID(kind entity.Kind, entityID string, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%d", kind, entityID, ts.UnixNano())
}

// StatusChangeType returns the dispatch key for a kind's transitions.
func StatusChangeType(kind entity.Kind) string {
	return "status." + string(kind) + ".changed"
}

// ID implements Event.
func (e *StatusChangeEvent) ID() string {
	return e.EventID
}

// Type implements Event.
func (e *StatusChangeEvent) Type() string {
	return StatusChangeType(e.EntityKind)
}

// Timestamp implements Event.
func (e *StatusChangeEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Data implements Event. The event itself is the payload.
func (e *StatusChangeEvent) Data() any {
	return e
}
