package messagequeue

// PlanEventPayload is the schema for plans.* messages.
type PlanEventPayload struct {
	PlanID        string  `json:"plan_id"`
	Goal          string  `json:"goal"`
	Version       int     `json:"version"`
	TaskCount     int     `json:"task_count"`
	TotalDuration float64 `json:"total_duration"`
}
