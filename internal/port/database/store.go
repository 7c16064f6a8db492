// Package database defines the database store port (interface).
package database

import (
	"context"

	"github.com/planwright/planwright/internal/domain/plan"
)

// Store is the port interface for plan persistence.
type Store interface {
	// CreatePlan persists a new plan with its tasks and returns the stored copy.
	CreatePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error)

	// GetPlan loads a plan with all its tasks.
	// Returns domain.ErrNotFound if no plan exists with the given ID.
	GetPlan(ctx context.Context, id string) (*plan.Plan, error)

	// ListPlans returns summaries of all plans, newest first.
	ListPlans(ctx context.Context) ([]plan.Summary, error)

	// SavePlan replaces a plan's tasks and schedule, bumping its version.
	// Returns domain.ErrConflict if the stored version differs from p.Version.
	SavePlan(ctx context.Context, p *plan.Plan) (*plan.Plan, error)

	// DeletePlan removes a plan and its tasks.
	// Returns domain.ErrNotFound if no plan exists with the given ID.
	DeletePlan(ctx context.Context, id string) error
}
