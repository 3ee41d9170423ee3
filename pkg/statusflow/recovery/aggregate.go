package recovery

import (
	"time"

	sferrors "github.com/kaiban-ai/statusflow/pkg/statusflow/errors"
)

// ImpactLevel grades how widely an error kind is hurting the system.
type ImpactLevel string

// Impact levels.
const (
	ImpactLow    ImpactLevel = "low"
	ImpactMedium ImpactLevel = "medium"
	ImpactHigh   ImpactLevel = "high"
)

// TrendRecord tracks the frequency trend of one error kind.
type TrendRecord struct {
	Count              uint64
	FirstOccurrence    time.Time
	LastOccurrence     time.Time
	Frequency          float64 // occurrences per minute
	Impact             ImpactLevel
	AffectedComponents map[string]struct{}
}

// ImpactRecord summarizes the blast radius of one error kind.
type ImpactRecord struct {
	Level      ImpactLevel
	Components int
	UpdatedAt  time.Time
}

// Aggregation is the process-wide error accumulator. It is initialized
// empty, mutated on every error handled, and never persisted by this
// package.
type Aggregation struct {
	TotalErrors       uint64
	ErrorsByType      map[sferrors.Kind]uint64
	ErrorsByComponent map[string]uint64
	Trends            map[sferrors.Kind]TrendRecord
	Impacts           map[sferrors.Kind]ImpactRecord
}

func newAggregation() *Aggregation {
	return &Aggregation{
		ErrorsByType:      make(map[sferrors.Kind]uint64),
		ErrorsByComponent: make(map[string]uint64),
		Trends:            make(map[sferrors.Kind]TrendRecord),
		Impacts:           make(map[sferrors.Kind]ImpactRecord),
	}
}

// aggregate folds one handled error into the accumulator.
func (e *Engine) aggregate(kind sferrors.Kind, component string, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	agg := e.aggregation
	agg.TotalErrors++
	agg.ErrorsByType[kind]++
	if component != "" {
		agg.ErrorsByComponent[component]++
	}

	trend, ok := agg.Trends[kind]
	if !ok {
		trend = TrendRecord{
			FirstOccurrence:    now,
			AffectedComponents: make(map[string]struct{}),
		}
	}
	trend.Count++
	trend.LastOccurrence = now
	if component != "" {
		trend.AffectedComponents[component] = struct{}{}
	}

	minutes := now.Sub(trend.FirstOccurrence).Minutes()
	if minutes < 1 {
		// Sub-minute windows would inflate the rate; use the raw count.
		trend.Frequency = float64(trend.Count)
	} else {
		trend.Frequency = float64(trend.Count) / minutes
	}
	trend.Impact = impactFor(trend.Frequency, len(trend.AffectedComponents))
	agg.Trends[kind] = trend

	agg.Impacts[kind] = ImpactRecord{
		Level:      trend.Impact,
		Components: len(trend.AffectedComponents),
		UpdatedAt:  now,
	}
}

// impactFor grades a trend: high when the error fires more than ten
// times a minute or spans more than three components, medium above five
// per minute or more than one component, low otherwise.
func impactFor(frequency float64, components int) ImpactLevel {
	switch {
	case frequency > 10 || components > 3:
		return ImpactHigh
	case frequency > 5 || components > 1:
		return ImpactMedium
	default:
		return ImpactLow
	}
}

// ErrorTrends returns a copy of the per-kind trend records.
func (e *Engine) ErrorTrends() map[sferrors.Kind]TrendRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[sferrors.Kind]TrendRecord, len(e.aggregation.Trends))
	for kind, trend := range e.aggregation.Trends {
		components := make(map[string]struct{}, len(trend.AffectedComponents))
		for comp := range trend.AffectedComponents {
			components[comp] = struct{}{}
		}
		trend.AffectedComponents = components
		out[kind] = trend
	}
	return out
}

// ErrorImpacts returns a copy of the per-kind impact records.
func (e *Engine) ErrorImpacts() map[sferrors.Kind]ImpactRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[sferrors.Kind]ImpactRecord, len(e.aggregation.Impacts))
	for kind, impact := range e.aggregation.Impacts {
		out[kind] = impact
	}
	return out
}

// ErrorAggregation returns a copy of the full accumulator.
func (e *Engine) ErrorAggregation() Aggregation {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Aggregation{
		TotalErrors:       e.aggregation.TotalErrors,
		ErrorsByType:      make(map[sferrors.Kind]uint64, len(e.aggregation.ErrorsByType)),
		ErrorsByComponent: make(map[string]uint64, len(e.aggregation.ErrorsByComponent)),
		Trends:            make(map[sferrors.Kind]TrendRecord, len(e.aggregation.Trends)),
		Impacts:           make(map[sferrors.Kind]ImpactRecord, len(e.aggregation.Impacts)),
	}
	for kind, n := range e.aggregation.ErrorsByType {
		out.ErrorsByType[kind] = n
	}
	for comp, n := range e.aggregation.ErrorsByComponent {
		out.ErrorsByComponent[comp] = n
	}
	for kind, trend := range e.aggregation.Trends {
		components := make(map[string]struct{}, len(trend.AffectedComponents))
		for comp := range trend.AffectedComponents {
			components[comp] = struct{}{}
		}
		trend.AffectedComponents = components
		out.Trends[kind] = trend
	}
	for kind, impact := range e.aggregation.Impacts {
		out.Impacts[kind] = impact
	}
	return out
}
