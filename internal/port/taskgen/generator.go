// Package taskgen defines the task generation port (interface).
package taskgen

import (
	"context"
	"time"

	"github.com/planwright/planwright/internal/domain/task"
)

// Generator is the port interface for model-backed task generation.
// Implementations must always return a usable draft list: when the
// model is unreachable or produces garbage they fall back to template
// drafts rather than failing the request.
type Generator interface {
	// GenerateTasks produces draft tasks for a fresh goal. A non-nil
	// deadline is passed to the model as a scheduling hint.
	GenerateTasks(ctx context.Context, goal string, deadline *time.Time) ([]task.Draft, error)

	// RefinePlan adjusts an existing draft list based on user feedback.
	// On model failure the current drafts are returned unchanged.
	RefinePlan(ctx context.Context, goal string, current []task.Draft, feedback string) ([]task.Draft, error)

	// Health reports whether the model runtime is reachable.
	Health(ctx context.Context) error
}
