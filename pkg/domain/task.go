package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskState defines the lifecycle position of an administrative task.
type TaskState string

const (
	StateCreated           TaskState = "created"
	StatePending           TaskState = "pending"
	StateInProgress        TaskState = "in_progress"
	StateAwaitingDocuments TaskState = "awaiting_documents"
	StateUnderReview       TaskState = "under_review"
	StateCompleted         TaskState = "completed"
	StateFailed            TaskState = "failed"
	StateCancelled         TaskState = "cancelled"
)

// IsTerminal reports whether the state has no outgoing transitions.
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Priority ranks tasks for scheduling and listing.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps a priority to a sortable weight (urgent first).
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

// PriorityForDeadline derives a priority from the time remaining until the
// deadline: overdue is urgent, within a week is high, within a month is medium.
// A nil deadline keeps the default medium.
func PriorityForDeadline(now time.Time, deadline *time.Time) Priority {
	if deadline == nil {
		return PriorityMedium
	}
	remaining := deadline.Sub(now)
	switch {
	case remaining < 0:
		return PriorityUrgent
	case remaining <= 7*24*time.Hour:
		return PriorityHigh
	case remaining <= 30*24*time.Hour:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// AgentType identifies the administrative domain a task belongs to.
// The set is closed: agents are resolved by enum value, never by reflection.
type AgentType string

const (
	AgentFiscal     AgentType = "fiscal"
	AgentHealth     AgentType = "health"
	AgentMobility   AgentType = "mobility"
	AgentHousing    AgentType = "housing"
	AgentEmployment AgentType = "employment"
)

// AgentTypes lists every known agent type.
func AgentTypes() []AgentType {
	return []AgentType{AgentFiscal, AgentHealth, AgentMobility, AgentHousing, AgentEmployment}
}

// ParseAgentType validates a raw string against the closed enum.
func ParseAgentType(raw string) (AgentType, error) {
	for _, t := range AgentTypes() {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", &ValidationError{Key: "agent_type", Reason: "unknown agent type", Value: raw}
}

// Task is a unit of administrative work tracked through a fixed lifecycle.
// State only moves along the edges the state machine validates; mutation goes
// through the orchestrator.
type Task struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AgentType   AgentType `json:"agent_type"`
	State       TaskState `json:"state"`
	Priority    Priority  `json:"priority"`

	// Progress is 0-100 and never decreases; it freezes when the task
	// reaches failed or cancelled.
	Progress int `json:"progress"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	RequiredDocuments  []DocumentKind `json:"required_documents,omitempty"`
	SubmittedDocuments []DocumentRef  `json:"submitted_documents,omitempty"`

	// Metadata is owned by the agent handling the task; the orchestrator
	// treats it as opaque.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// AdvanceProgress raises progress toward p, clamped to [0,100].
// Regressions are ignored and terminal tasks are frozen.
func (t *Task) AdvanceProgress(p int) {
	if t.State.IsTerminal() && t.State != StateCompleted {
		return
	}
	if p > 100 {
		p = 100
	}
	if p > t.Progress {
		t.Progress = p
	}
}

// MissingDocuments returns the required kinds with no submitted reference.
func (t *Task) MissingDocuments() []DocumentKind {
	submitted := make(map[DocumentKind]bool, len(t.SubmittedDocuments))
	for _, ref := range t.SubmittedDocuments {
		submitted[ref.Kind] = true
	}
	var missing []DocumentKind
	for _, kind := range t.RequiredDocuments {
		if !submitted[kind] {
			missing = append(missing, kind)
		}
	}
	return missing
}

// HasAllDocuments reports whether every required document kind is covered.
func (t *Task) HasAllDocuments() bool {
	return len(t.MissingDocuments()) == 0
}

// RequiresDocument reports whether a kind is part of the task's requirements.
func (t *Task) RequiresDocument(kind DocumentKind) bool {
	for _, k := range t.RequiredDocuments {
		if k == kind {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores and callers cannot mutate each other's
// view of the task through shared slices or maps.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	if t.RequiredDocuments != nil {
		c.RequiredDocuments = append([]DocumentKind(nil), t.RequiredDocuments...)
	}
	if t.SubmittedDocuments != nil {
		c.SubmittedDocuments = append([]DocumentRef(nil), t.SubmittedDocuments...)
	}
	if t.Metadata != nil {
		c.Metadata = make(map[string]any, len(t.Metadata))
		for k, v := range t.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
