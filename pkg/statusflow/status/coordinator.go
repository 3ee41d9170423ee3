package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/observability"
)

// ReportSink receives every status change event for persistence or
// analytics. Delivery is fire-and-forget: sink failures are logged by
// the coordinator and never fail a transition.
type ReportSink interface {
	HandleStatusChange(ctx context.Context, evt *event.StatusChangeEvent) error
}

// Subscriber is invoked once per successful transition of the kind it
// subscribed to. Subscribers for one event run concurrently.
type Subscriber func(ctx context.Context, evt *event.StatusChangeEvent) error

// OnChangeFunc is the single synchronous callback invoked at the end of
// each fully successful transition.
type OnChangeFunc func(evt *event.StatusChangeEvent)

// statusKey identifies one entity instance.
type statusKey struct {
	kind entity.Kind
	id   string
}

// Coordinator drives status transitions for all entity kinds.
// Construct one per process and share it; all methods are safe for
// concurrent use.
type Coordinator struct {
	cfg        Config
	validator  Validator
	dispatcher *event.Dispatcher

	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	reporter ReportSink
	onChange OnChangeFunc

	mu          sync.Mutex
	statuses    map[statusKey]entity.Status
	history     map[statusKey][]*event.StatusChangeEvent
	subscribers map[entity.Kind]map[int]Subscriber
	nextSubID   int
	entityLocks map[statusKey]*sync.Mutex
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithSpanManager sets the tracing sink. Default: no-op.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *Coordinator) {
		c.spans = s
	}
}

// WithReportSink sets the fire-and-forget report sink.
func WithReportSink(r ReportSink) Option {
	return func(c *Coordinator) {
		c.reporter = r
	}
}

// WithOnChange sets the synchronous change callback.
func WithOnChange(fn OnChangeFunc) Option {
	return func(c *Coordinator) {
		c.onChange = fn
	}
}

// NewCoordinator creates a coordinator with the given validator,
// dispatcher, and configuration. The validator and dispatcher are
// required.
func NewCoordinator(validator Validator, dispatcher *event.Dispatcher, cfg Config, opts ...Option) (*Coordinator, error) {
	if validator == nil {
		return nil, errors.New("validator is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coordinator config: %w", err)
	}

	c := &Coordinator{
		cfg:         cfg,
		validator:   validator,
		dispatcher:  dispatcher,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
		statuses:    make(map[statusKey]entity.Status),
		history:     make(map[statusKey][]*event.StatusChangeEvent),
		subscribers: make(map[entity.Kind]map[int]Subscriber),
		entityLocks: make(map[statusKey]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Transition validates and applies one status change.
//
// Within one call, structural validation strictly precedes the
// validator, which strictly precedes event construction, which strictly
// precedes metric emission, which strictly precedes subscriber
// notification. A subscriber failure surfaces to the caller, but the
// transition has already happened: the event was published and the
// stored status updated.
func (c *Coordinator) Transition(ctx context.Context, tc *TransitionContext) error {
	if err := tc.Validate(); err != nil {
		return err
	}

	key := statusKey{kind: tc.EntityKind, id: tc.EntityID}
	if !c.cfg.AllowConcurrentTransitions {
		lock := c.entityLock(key)
		lock.Lock()
		defer lock.Unlock()
	}

	if tc.CurrentStatus == "" {
		tc.CurrentStatus = c.currentOrInitial(key)
	}

	spanCtx, span := c.spans.StartTransitionSpan(ctx, string(tc.EntityKind), tc.EntityID, string(tc.TargetStatus))
	ctx = spanCtx

	err := c.transition(ctx, key, tc)
	c.spans.EndSpanWithError(span, err)
	return err
}

func (c *Coordinator) transition(ctx context.Context, key statusKey, tc *TransitionContext) error {
	start := time.Now()
	observability.LogTransitionStart(c.logger, string(tc.EntityKind), tc.EntityID,
		string(tc.CurrentStatus), string(tc.TargetStatus), tc.Operation)

	result, err := c.ValidateTransition(ctx, tc)
	if err != nil {
		c.metrics.RecordTransitionError(ctx, string(tc.EntityKind), tc.Operation)
		observability.LogTransitionError(c.logger, string(tc.EntityKind), tc.EntityID, tc.Operation, err)
		return err
	}

	// Exactly one event per successful validation.
	evt := event.NewStatusChange(tc.EntityKind, tc.EntityID,
		tc.CurrentStatus, tc.TargetStatus, result, tc.Metadata)

	if err := c.dispatcher.Emit(ctx, evt); err != nil {
		c.metrics.RecordTransitionError(ctx, string(tc.EntityKind), tc.Operation)
		observability.LogTransitionError(c.logger, string(tc.EntityKind), tc.EntityID, tc.Operation, err)
		return err
	}

	// The event is published: from here the transition has happened.
	c.record(key, evt)

	duration := tc.Duration
	if duration == 0 {
		duration = time.Since(tc.StartTime)
	}
	c.metrics.RecordTransition(ctx, string(tc.EntityKind), tc.EntityID,
		string(tc.CurrentStatus), string(tc.TargetStatus), duration)

	if c.reporter != nil {
		if reportErr := c.reporter.HandleStatusChange(ctx, evt); reportErr != nil {
			observability.LogReportSinkError(c.logger, evt.EventID, reportErr)
		}
	}

	if err := c.notify(ctx, evt); err != nil {
		c.metrics.RecordTransitionError(ctx, string(tc.EntityKind), tc.Operation)
		observability.LogTransitionError(c.logger, string(tc.EntityKind), tc.EntityID, tc.Operation, err)
		return err
	}

	if c.onChange != nil {
		c.onChange(evt)
	}

	observability.LogTransitionComplete(c.logger, string(tc.EntityKind), tc.EntityID,
		string(tc.CurrentStatus), string(tc.TargetStatus), time.Since(start))
	return nil
}

// ValidateTransition races the validator against the configured
// timeout. The timer branch always yields a TimeoutError; it never
// resolves successfully. A slow validator is abandoned via context
// cancellation, not killed, so its side effects may still land after
// the timeout has already surfaced.
func (c *Coordinator) ValidateTransition(ctx context.Context, tc *TransitionContext) (event.ValidationResult, error) {
	if err := tc.Validate(); err != nil {
		return event.ValidationResult{}, err
	}

	vctx, cancel := context.WithTimeout(ctx, c.cfg.ValidationTimeout)
	defer cancel()

	type outcome struct {
		result event.ValidationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.validator.ValidateTransition(vctx, tc)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return event.ValidationResult{}, out.err
		}
		if !out.result.Valid {
			return out.result, &sferrors.ValidationError{
				Errors:   out.result.Errors,
				Warnings: out.result.Warnings,
			}
		}
		return out.result, nil
	case <-vctx.Done():
		if ctx.Err() != nil {
			return event.ValidationResult{}, ctx.Err()
		}
		return event.ValidationResult{}, &sferrors.TimeoutError{
			Op:     "validate transition " + tc.Operation,
			Budget: c.cfg.ValidationTimeout,
		}
	}
}

// SyncStatus is the idempotent convenience wrapper around Transition.
// If the stored status for (kind, id) already equals status, it returns
// immediately without constructing a context or publishing an event.
// Otherwise the stored value is updated first, then a transition with
// operation "sync" runs against the previous value.
func (c *Coordinator) SyncStatus(
	ctx context.Context,
	kind entity.Kind,
	id string,
	st entity.Status,
	errCtx *sferrors.StructuredError,
	metadata map[string]string,
) error {
	key := statusKey{kind: kind, id: id}

	c.mu.Lock()
	previous, tracked := c.statuses[key]
	if tracked && previous == st {
		c.mu.Unlock()
		return nil
	}
	c.statuses[key] = st
	c.mu.Unlock()

	if !tracked {
		previous = kind.InitialStatus()
	}

	return c.Transition(ctx, &TransitionContext{
		EntityKind:    kind,
		EntityID:      id,
		CurrentStatus: previous,
		TargetStatus:  st,
		Operation:     "sync",
		StartTime:     time.Now(),
		Metadata:      metadata,
		ErrorContext:  errCtx,
	})
}

// Subscribe registers a callback for every successful transition of the
// kind. The returned function unsubscribes; it is safe to call multiple
// times and removes the empty set when the last subscriber leaves.
func (c *Coordinator) Subscribe(kind entity.Kind, fn Subscriber) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscribers[kind] == nil {
		c.subscribers[kind] = make(map[int]Subscriber)
	}
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[kind][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers[kind], id)
		if len(c.subscribers[kind]) == 0 {
			delete(c.subscribers, kind)
		}
	}
}

// Status returns the last known status for an entity.
func (c *Coordinator) Status(kind entity.Kind, id string) (entity.Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.statuses[statusKey{kind: kind, id: id}]
	return st, ok
}

// History returns a copy of the bounded transition history for an
// entity. It is empty when history is disabled.
func (c *Coordinator) History(kind entity.Kind, id string) []*event.StatusChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.history[statusKey{kind: kind, id: id}]
	out := make([]*event.StatusChangeEvent, len(events))
	copy(out, events)
	return out
}

// notify fans a published event out to all subscribers of its kind
// concurrently and waits for all of them to settle.
func (c *Coordinator) notify(ctx context.Context, evt *event.StatusChangeEvent) error {
	c.mu.Lock()
	subs := make([]Subscriber, 0, len(c.subscribers[evt.EntityKind]))
	for _, fn := range c.subscribers[evt.EntityKind] {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	if len(subs) == 0 {
		return nil
	}

	errs := make([]error, len(subs))
	var wg sync.WaitGroup
	for i, fn := range subs {
		wg.Add(1)
		go func(i int, fn Subscriber) {
			defer wg.Done()
			errs[i] = fn(ctx, evt)
		}(i, fn)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return &sferrors.ExecutionError{Handler: "subscriber", Err: err}
	}
	return nil
}

// record updates the stored status and bounded history under the map
// lock.
func (c *Coordinator) record(key statusKey, evt *event.StatusChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statuses[key] = evt.To

	if !c.cfg.EnableHistory {
		return
	}
	events := append(c.history[key], evt)
	if overflow := len(events) - c.cfg.MaxHistoryLength; overflow > 0 {
		events = events[overflow:]
	}
	c.history[key] = events
}

// currentOrInitial returns the stored status for an entity, falling
// back to the kind's initial status for entities never seen before.
func (c *Coordinator) currentOrInitial(key statusKey) entity.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.statuses[key]; ok {
		return st
	}
	return key.kind.InitialStatus()
}

// entityLock returns the mutex serializing transitions for one entity.
func (c *Coordinator) entityLock(key statusKey) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.entityLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.entityLocks[key] = lock
	}
	return lock
}
