package status

import (
	"context"
	"fmt"
	"sync"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
)

// Validator decides whether a proposed transition is permitted.
// Implementations are supplied by the owning subsystem and may perform
// I/O; the coordinator bounds the call with its validation timeout.
type Validator interface {
	ValidateTransition(ctx context.Context, tc *TransitionContext) (event.ValidationResult, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, tc *TransitionContext) (event.ValidationResult, error)

// ValidateTransition implements Validator.
func (f ValidatorFunc) ValidateTransition(ctx context.Context, tc *TransitionContext) (event.ValidationResult, error) {
	return f(ctx, tc)
}

// AllowAll approves every transition. Useful for tests and for callers
// that enforce rules elsewhere.
func AllowAll() Validator {
	return ValidatorFunc(func(context.Context, *TransitionContext) (event.ValidationResult, error) {
		return event.OK(), nil
	})
}

// Rule names one permitted transition for a kind.
type Rule struct {
	Kind entity.Kind   `json:"kind" yaml:"kind"`
	From entity.Status `json:"from" yaml:"from"`
	To   entity.Status `json:"to" yaml:"to"`
}

// TableValidator permits exactly the transitions listed in its rule
// table. Statuses outside the kind's enumeration are always rejected,
// and a status with no outgoing rules is effectively terminal.
type TableValidator struct {
	mu    sync.RWMutex
	rules map[entity.Kind]map[entity.Status]map[entity.Status]struct{}
}

// NewTableValidator creates a validator from a rule list.
// Rules naming unknown kinds or statuses are rejected.
func NewTableValidator(rules []Rule) (*TableValidator, error) {
	v := &TableValidator{
		rules: make(map[entity.Kind]map[entity.Status]map[entity.Status]struct{}),
	}
	for _, r := range rules {
		if err := v.Add(r); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Add appends one rule to the table.
func (v *TableValidator) Add(r Rule) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("rule references unknown kind %q", r.Kind)
	}
	if !r.Kind.Has(r.From) {
		return fmt.Errorf("rule references unknown %s status %q", r.Kind, r.From)
	}
	if !r.Kind.Has(r.To) {
		return fmt.Errorf("rule references unknown %s status %q", r.Kind, r.To)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.rules[r.Kind] == nil {
		v.rules[r.Kind] = make(map[entity.Status]map[entity.Status]struct{})
	}
	if v.rules[r.Kind][r.From] == nil {
		v.rules[r.Kind][r.From] = make(map[entity.Status]struct{})
	}
	v.rules[r.Kind][r.From][r.To] = struct{}{}
	return nil
}

// ValidateTransition implements Validator.
func (v *TableValidator) ValidateTransition(_ context.Context, tc *TransitionContext) (event.ValidationResult, error) {
	if !tc.EntityKind.Has(tc.TargetStatus) {
		return event.Invalid(fmt.Sprintf(
			"%q is not a %s status", tc.TargetStatus, tc.EntityKind)), nil
	}
	if tc.CurrentStatus != "" && !tc.EntityKind.Has(tc.CurrentStatus) {
		return event.Invalid(fmt.Sprintf(
			"%q is not a %s status", tc.CurrentStatus, tc.EntityKind)), nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	from := tc.CurrentStatus
	if from == "" {
		from = tc.EntityKind.InitialStatus()
	}
	if _, ok := v.rules[tc.EntityKind][from][tc.TargetStatus]; !ok {
		return event.Invalid(fmt.Sprintf(
			"transition %s -> %s is not permitted for %s",
			from, tc.TargetStatus, tc.EntityKind)), nil
	}
	return event.OK(), nil
}
