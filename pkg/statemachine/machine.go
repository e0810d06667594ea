// Package statemachine holds the pure transition logic for the task
// lifecycle. It performs no I/O: persistence and auditing are the
// orchestrator's concern.
package statemachine

import (
	"time"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// allowed is the closed edge relation of the lifecycle.
// Terminal states (completed, failed, cancelled) have no outgoing edges.
var allowed = map[domain.TaskState][]domain.TaskState{
	domain.StateCreated: {
		domain.StatePending,
		domain.StateCancelled,
	},
	domain.StatePending: {
		domain.StateInProgress,
		domain.StateAwaitingDocuments,
		domain.StateFailed,
		domain.StateCancelled,
	},
	domain.StateAwaitingDocuments: {
		domain.StateInProgress,
		domain.StateCancelled,
	},
	domain.StateInProgress: {
		domain.StateUnderReview,
		domain.StateAwaitingDocuments,
		domain.StateFailed,
		domain.StateCancelled,
	},
	domain.StateUnderReview: {
		domain.StateCompleted,
		domain.StateFailed,
		domain.StateInProgress,
	},
	domain.StateCompleted: {},
	domain.StateFailed:    {},
	domain.StateCancelled: {},
}

// Machine validates and applies lifecycle transitions.
// The zero value is ready to use.
type Machine struct {
	// Now is the clock used for transition timestamps. Nil means time.Now.
	Now func() time.Time
}

func (m Machine) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// ValidateTransition reports whether the edge from -> to exists.
// It never mutates anything.
func (m Machine) ValidateTransition(from, to domain.TaskState) bool {
	for _, t := range allowed[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Apply moves the task to target after checking the edge and the document
// completeness invariant, stamps the bookkeeping fields, and returns the
// audit record for the transition.
//
// Leaving awaiting_documents requires every required document kind to have a
// submitted reference, except toward cancelled: cancellation is permitted
// from any non-terminal state regardless of paperwork.
func (m Machine) Apply(task *domain.Task, target domain.TaskState, actor domain.Actor, context map[string]any) (*domain.StateTransition, error) {
	if !m.ValidateTransition(task.State, target) {
		return nil, &domain.InvalidTransitionError{From: task.State, To: target}
	}

	if task.State == domain.StateAwaitingDocuments && target != domain.StateCancelled {
		if missing := task.MissingDocuments(); len(missing) > 0 {
			return nil, &domain.DocumentsMissingError{Missing: missing}
		}
	}

	now := m.now()
	from := task.State
	task.State = target
	task.UpdatedAt = now
	if target == domain.StateCompleted {
		task.CompletedAt = &now
		task.Progress = 100
	}

	return &domain.StateTransition{
		TaskID:  task.ID,
		From:    &from,
		To:      target,
		At:      now,
		By:      actor,
		Context: context,
	}, nil
}

// Initial stamps a freshly built task into the created state and returns the
// initial audit record (nil from-state).
func (m Machine) Initial(task *domain.Task, actor domain.Actor) *domain.StateTransition {
	now := m.now()
	task.State = domain.StateCreated
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	return &domain.StateTransition{
		TaskID: task.ID,
		To:     domain.StateCreated,
		At:     now,
		By:     actor,
	}
}
