package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "planwright"

// Metrics holds all Planwright metric instruments.
type Metrics struct {
	PlansCreated       metric.Int64Counter
	SchedulesComputed  metric.Int64Counter
	GenerationFallback metric.Int64Counter
	ScheduleDuration   metric.Float64Histogram
	PlanTotalDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PlansCreated, err = meter.Int64Counter("planwright.plans.created",
		metric.WithDescription("Number of plans created"))
	if err != nil {
		return nil, err
	}

	m.SchedulesComputed, err = meter.Int64Counter("planwright.schedules.computed",
		metric.WithDescription("Number of schedule computations"))
	if err != nil {
		return nil, err
	}

	m.GenerationFallback, err = meter.Int64Counter("planwright.generation.fallbacks",
		metric.WithDescription("Number of generations that fell back to templates"))
	if err != nil {
		return nil, err
	}

	m.ScheduleDuration, err = meter.Float64Histogram("planwright.schedule.duration_seconds",
		metric.WithDescription("Schedule computation wall time in seconds"))
	if err != nil {
		return nil, err
	}

	m.PlanTotalDuration, err = meter.Float64Histogram("planwright.plan.total_duration_days",
		metric.WithDescription("Computed plan duration in days"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
