package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "planwright"

// StartGenerationSpan starts a span for a model-backed task generation.
func StartGenerationSpan(ctx context.Context, goal string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generation",
		trace.WithAttributes(
			attribute.Int("generation.goal_length", len(goal)),
		),
	)
}

// StartScheduleSpan starts a span for a schedule computation.
func StartScheduleSpan(ctx context.Context, planID string, taskCount int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "schedule",
		trace.WithAttributes(
			attribute.String("plan.id", planID),
			attribute.Int("plan.task_count", taskCount),
		),
	)
}
