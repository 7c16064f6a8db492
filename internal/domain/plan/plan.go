// Package plan defines the Plan aggregate and its request types.
package plan

import (
	"time"

	"github.com/planwright/planwright/internal/domain/task"
)

// Plan is a project plan: a goal, an optional deadline, and the ordered task
// sequence with its computed schedule. TotalDuration and CriticalPath are
// derived by the scheduler and rewritten on every recompute.
type Plan struct {
	ID            string      `json:"id"`
	Goal          string      `json:"goal"`
	Deadline      *time.Time  `json:"deadline,omitempty"`
	TotalDuration float64     `json:"total_duration"`
	CriticalPath  []int       `json:"critical_path"`
	Tasks         []task.Task `json:"tasks"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Summary is the listing view of a plan, without task details.
type Summary struct {
	ID            string     `json:"id"`
	Goal          string     `json:"goal"`
	CreatedAt     time.Time  `json:"created_at"`
	TotalDuration float64    `json:"total_duration"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	TaskCount     int        `json:"task_count"`
}

// CreateRequest holds the fields for creating a new plan.
type CreateRequest struct {
	Goal     string     `json:"goal"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// TaskUpdate is a partial edit of one task, addressed by its position in the
// plan's task sequence. Nil fields are left unchanged.
type TaskUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Optimistic   *float64 `json:"optimistic_duration,omitempty"`
	MostLikely   *float64 `json:"most_likely_duration,omitempty"`
	Pessimistic  *float64 `json:"pessimistic_duration,omitempty"`
	Dependencies *[]int   `json:"dependencies,omitempty"`
	IsComplete   *bool    `json:"is_complete,omitempty"`
}

// UpdateRequest edits a plan's tasks in place; entry i applies to task i.
type UpdateRequest struct {
	Tasks []TaskUpdate `json:"tasks"`
}

// FeedbackRequest asks the generator to refine the plan from user feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}

// InstructionRequest applies a natural-language instruction to the plan.
type InstructionRequest struct {
	Instruction string `json:"instruction"`
}
