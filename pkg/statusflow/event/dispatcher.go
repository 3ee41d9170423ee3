package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
)

// Handler receives events from the dispatcher. Both phases run for
// every handler registered under the event's type: Validate on all
// handlers first, then Handle on all handlers only if every validation
// passed.
type Handler interface {
	// Validate inspects an event without acting on it. A returned error
	// counts as an invalid result.
	Validate(ctx context.Context, evt Event) (ValidationResult, error)

	// Handle processes an event that every handler has approved.
	Handle(ctx context.Context, evt Event) error
}

// HandlerFuncs adapts a pair of functions to the Handler interface.
// A nil OnValidate approves every event.
type HandlerFuncs struct {
	OnValidate func(ctx context.Context, evt Event) (ValidationResult, error)
	OnHandle   func(ctx context.Context, evt Event) error
}

// Validate implements Handler.
func (h *HandlerFuncs) Validate(ctx context.Context, evt Event) (ValidationResult, error) {
	if h.OnValidate == nil {
		return OK(), nil
	}
	return h.OnValidate(ctx, evt)
}

// Handle implements Handler.
func (h *HandlerFuncs) Handle(ctx context.Context, evt Event) error {
	if h.OnHandle == nil {
		return nil
	}
	return h.OnHandle(ctx, evt)
}

// EmitObserver is notified after each Emit, for metrics hooks.
type EmitObserver func(ctx context.Context, eventType string, handlers int, duration time.Duration, err error)

// Dispatcher is a typed publish/subscribe bus with two-phase delivery.
// The zero value is not usable; create one with NewDispatcher.
type Dispatcher struct {
	logger   *slog.Logger
	observer EmitObserver

	mu       sync.RWMutex
	handlers map[string][]Handler
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the dispatcher's logger. Nil is tolerated.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithEmitObserver registers a hook called after every Emit.
func WithEmitObserver(fn EmitObserver) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// On registers a handler for an event type. Registering the identical
// handler twice for the same type is a no-op. Identity is only defined
// for handlers with a comparable dynamic type (pointers, funcs adapted
// via HandlerFuncs); value handlers carrying slices or maps always
// register as distinct.
func (d *Dispatcher) On(eventType string, handler Handler) {
	if eventType == "" || handler == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if reflect.TypeOf(handler).Comparable() {
		for _, existing := range d.handlers[eventType] {
			if existing == handler {
				return
			}
		}
	}
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Off removes a handler for an event type. It is safe to call for
// handlers that were never registered, and it removes the empty set
// when the last handler for a type leaves. A handler without a
// comparable dynamic type has no identity to match on, so Off is a
// no-op for it.
func (d *Dispatcher) Off(eventType string, handler Handler) {
	if handler == nil || !reflect.TypeOf(handler).Comparable() {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entries := d.handlers[eventType]
	for i, existing := range entries {
		if existing == handler {
			d.handlers[eventType] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(d.handlers[eventType]) == 0 {
		delete(d.handlers, eventType)
	}
}

// HandlerCount returns the number of handlers registered for a type.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType])
}

// Emit delivers an event through the two-phase protocol.
//
// With no handlers registered for the event's type, Emit logs a warning
// and returns nil: emission to an unobserved type is not an error.
// Otherwise every handler's Validate runs concurrently; if any reports
// invalid, all error and warning strings are aggregated into a single
// ValidationError and no handler's Handle runs. If all validations
// pass, every handler's Handle runs concurrently; any failure makes the
// whole Emit fail, but handlers that already completed are not rolled
// back.
func (d *Dispatcher) Emit(ctx context.Context, evt Event) error {
	start := time.Now()

	d.mu.RLock()
	entries := make([]Handler, len(d.handlers[evt.Type()]))
	copy(entries, d.handlers[evt.Type()])
	d.mu.RUnlock()

	if len(entries) == 0 {
		if d.logger != nil {
			d.logger.Warn("event emitted with no handlers",
				slog.String("event_type", evt.Type()),
				slog.String("event_id", evt.ID()),
			)
		}
		d.observe(ctx, evt.Type(), 0, time.Since(start), nil)
		return nil
	}

	if err := d.validateAll(ctx, evt, entries); err != nil {
		d.observe(ctx, evt.Type(), len(entries), time.Since(start), err)
		return err
	}

	err := d.handleAll(ctx, evt, entries)
	d.observe(ctx, evt.Type(), len(entries), time.Since(start), err)
	return err
}

// validateAll runs the validation phase across all handlers.
func (d *Dispatcher) validateAll(ctx context.Context, evt Event, entries []Handler) error {
	results := make([]ValidationResult, len(entries))

	var wg sync.WaitGroup
	for i, h := range entries {
		wg.Add(1)
		go func(i int, h Handler) {
			defer wg.Done()
			res, err := h.Validate(ctx, evt)
			if err != nil {
				res = res.Merge(Invalid(fmt.Sprintf("%T: %v", h, err)))
			}
			results[i] = res
		}(i, h)
	}
	wg.Wait()

	merged := OK()
	for _, res := range results {
		merged = merged.Merge(res)
	}
	if merged.Valid {
		return nil
	}

	if d.logger != nil {
		d.logger.Debug("event rejected in validation phase",
			slog.String("event_type", evt.Type()),
			slog.String("event_id", evt.ID()),
			slog.Int("errors", len(merged.Errors)),
		)
	}
	return &sferrors.ValidationError{
		Errors:   merged.Errors,
		Warnings: merged.Warnings,
	}
}

// handleAll runs the processing phase across all handlers.
func (d *Dispatcher) handleAll(ctx context.Context, evt Event, entries []Handler) error {
	errs := make([]error, len(entries))

	var wg sync.WaitGroup
	for i, h := range entries {
		wg.Add(1)
		go func(i int, h Handler) {
			defer wg.Done()
			if err := h.Handle(ctx, evt); err != nil {
				errs[i] = &sferrors.ExecutionError{
					Handler: fmt.Sprintf("%T", h),
					Err:     err,
				}
			}
		}(i, h)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return &EventError{
			Event:   evt,
			Message: "handler processing failed",
			Err:     err,
		}
	}
	return nil
}

func (d *Dispatcher) observe(ctx context.Context, eventType string, handlers int, duration time.Duration, err error) {
	if d.observer != nil {
		d.observer(ctx, eventType, handlers, duration, err)
	}
}
