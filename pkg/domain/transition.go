package domain

import "time"

// Actor identifies who requested a lifecycle transition.
type Actor string

const (
	ActorSystem Actor = "system"
	ActorUser   Actor = "user"
)

// StateTransition is one immutable entry of the task audit trail.
// From is nil for the initial transition into StateCreated.
type StateTransition struct {
	TaskID  string         `json:"task_id"`
	From    *TaskState     `json:"from_state,omitempty"`
	To      TaskState      `json:"to_state"`
	At      time.Time      `json:"transitioned_at"`
	By      Actor          `json:"transitioned_by"`
	Context map[string]any `json:"context,omitempty"`
}
