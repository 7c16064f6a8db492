// Package task defines the Task domain entity.
package task

import "time"

// Task is a unit of work within a plan, carrying three-point duration
// estimates and the schedule fields derived from them. A task is identified
// by its position in the plan's task sequence; Dependencies holds positions
// of prerequisite tasks in that same sequence.
type Task struct {
	ID          string  `json:"id"`
	PlanID      string  `json:"plan_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Optimistic  float64 `json:"optimistic_duration"`
	MostLikely  float64 `json:"most_likely_duration"`
	Pessimistic float64 `json:"pessimistic_duration"`
	Dependencies []int  `json:"dependencies"`
	IsComplete   bool   `json:"is_complete"`

	// Derived scheduling output, fully recomputed on every schedule run.
	Expected       float64   `json:"expected_duration"`
	EarliestStart  float64   `json:"earliest_start"`
	EarliestFinish float64   `json:"earliest_finish"`
	LatestStart    float64   `json:"latest_start"`
	LatestFinish   float64   `json:"latest_finish"`
	Slack          float64   `json:"slack"`
	OnCriticalPath bool      `json:"is_on_critical_path"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is a candidate task produced by the task generator before it is
// attached to a plan. Field names match the JSON contract the generator is
// prompted to produce.
type Draft struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Optimistic   float64 `json:"optimistic_duration"`
	MostLikely   float64 `json:"most_likely_duration"`
	Pessimistic  float64 `json:"pessimistic_duration"`
	Dependencies []int   `json:"dependencies"`
}
