package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventPlanCreated = "plan.created"
	EventPlanUpdated = "plan.updated"
	EventPlanDeleted = "plan.deleted"
)

// PlanEvent is broadcast when a plan is created, rescheduled, or deleted.
type PlanEvent struct {
	PlanID        string  `json:"plan_id"`
	Goal          string  `json:"goal"`
	Version       int     `json:"version"`
	TaskCount     int     `json:"task_count"`
	TotalDuration float64 `json:"total_duration"`
}

// planFrame is the wire envelope: an event type tag and its payload.
type planFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// BroadcastEvent wraps the payload in a typed frame and sends it to every
// connected client.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	frame, err := json.Marshal(planFrame{Type: eventType, Payload: payload})
	if err != nil {
		slog.Error("marshal ws event frame", "type", eventType, "error", err)
		return
	}

	h.broadcast(ctx, frame)
}
