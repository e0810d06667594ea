package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guichet-dev/guichet/pkg/domain"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 4, 15, 9, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestValidateTransition(t *testing.T) {
	m := Machine{}

	valid := []struct{ from, to domain.TaskState }{
		{domain.StateCreated, domain.StatePending},
		{domain.StateCreated, domain.StateCancelled},
		{domain.StatePending, domain.StateInProgress},
		{domain.StatePending, domain.StateAwaitingDocuments},
		{domain.StatePending, domain.StateFailed},
		{domain.StatePending, domain.StateCancelled},
		{domain.StateAwaitingDocuments, domain.StateInProgress},
		{domain.StateAwaitingDocuments, domain.StateCancelled},
		{domain.StateInProgress, domain.StateUnderReview},
		{domain.StateInProgress, domain.StateAwaitingDocuments},
		{domain.StateInProgress, domain.StateFailed},
		{domain.StateInProgress, domain.StateCancelled},
		{domain.StateUnderReview, domain.StateCompleted},
		{domain.StateUnderReview, domain.StateFailed},
		{domain.StateUnderReview, domain.StateInProgress},
	}
	for _, tt := range valid {
		assert.True(t, m.ValidateTransition(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	invalid := []struct{ from, to domain.TaskState }{
		{domain.StateCreated, domain.StateInProgress},
		{domain.StateCreated, domain.StateCompleted},
		{domain.StatePending, domain.StateCompleted},
		{domain.StatePending, domain.StateUnderReview},
		{domain.StateAwaitingDocuments, domain.StateFailed},
		{domain.StateAwaitingDocuments, domain.StateUnderReview},
		{domain.StateInProgress, domain.StateCompleted},
		{domain.StateUnderReview, domain.StateCancelled},
		{domain.StateUnderReview, domain.StateAwaitingDocuments},
	}
	for _, tt := range invalid {
		assert.False(t, m.ValidateTransition(tt.from, tt.to), "%s -> %s should be rejected", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	m := Machine{}
	terminal := []domain.TaskState{domain.StateCompleted, domain.StateFailed, domain.StateCancelled}
	all := []domain.TaskState{
		domain.StateCreated, domain.StatePending, domain.StateInProgress,
		domain.StateAwaitingDocuments, domain.StateUnderReview,
		domain.StateCompleted, domain.StateFailed, domain.StateCancelled,
	}
	for _, from := range terminal {
		for _, to := range all {
			assert.False(t, m.ValidateTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApplyRejectsInvalidEdge(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{ID: "t-1", State: domain.StateCreated}

	_, err := m.Apply(task, domain.StateCompleted, domain.ActorSystem, nil)
	var invalid *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.StateCreated, invalid.From)
	assert.Equal(t, domain.StateCompleted, invalid.To)

	// A rejected transition leaves the task untouched.
	assert.Equal(t, domain.StateCreated, task.State)
}

func TestApplyStampsTransitionRecord(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{ID: "t-1", State: domain.StatePending}

	record, err := m.Apply(task, domain.StateInProgress, domain.ActorSystem, map[string]any{"step": "processing"})
	require.NoError(t, err)

	assert.Equal(t, domain.StateInProgress, task.State)
	assert.Equal(t, fixedClock()(), task.UpdatedAt)

	require.NotNil(t, record.From)
	assert.Equal(t, domain.StatePending, *record.From)
	assert.Equal(t, domain.StateInProgress, record.To)
	assert.Equal(t, domain.ActorSystem, record.By)
	assert.Equal(t, "processing", record.Context["step"])
}

func TestApplyCompletionStampsTask(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{ID: "t-1", State: domain.StateUnderReview, Progress: 90}

	_, err := m.Apply(task, domain.StateCompleted, domain.ActorSystem, nil)
	require.NoError(t, err)

	assert.Equal(t, 100, task.Progress)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, fixedClock()(), *task.CompletedAt)
}

func TestApplyBlocksLeavingAwaitingDocumentsWithMissingDocs(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{
		ID:                "t-1",
		State:             domain.StateAwaitingDocuments,
		RequiredDocuments: []domain.DocumentKind{domain.DocTaxNotice, domain.DocIdentityCard},
		SubmittedDocuments: []domain.DocumentRef{
			{Kind: domain.DocTaxNotice, DocumentID: "doc-1"},
		},
	}

	_, err := m.Apply(task, domain.StateInProgress, domain.ActorSystem, nil)
	var missing *domain.DocumentsMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []domain.DocumentKind{domain.DocIdentityCard}, missing.Missing)
	assert.Equal(t, domain.StateAwaitingDocuments, task.State)

	// Cancellation is exempt from the completeness check.
	_, err = m.Apply(task, domain.StateCancelled, domain.ActorUser, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, task.State)
}

func TestApplyLeavesAwaitingDocumentsWhenComplete(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{
		ID:                "t-1",
		State:             domain.StateAwaitingDocuments,
		RequiredDocuments: []domain.DocumentKind{domain.DocTaxNotice},
		SubmittedDocuments: []domain.DocumentRef{
			{Kind: domain.DocTaxNotice, DocumentID: "doc-1"},
		},
	}

	_, err := m.Apply(task, domain.StateInProgress, domain.ActorSystem, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInProgress, task.State)
}

func TestInitial(t *testing.T) {
	m := Machine{Now: fixedClock()}
	task := &domain.Task{ID: "t-1"}

	record := m.Initial(task, domain.ActorUser)

	assert.Equal(t, domain.StateCreated, task.State)
	assert.Equal(t, fixedClock()(), task.CreatedAt)
	assert.Nil(t, record.From)
	assert.Equal(t, domain.StateCreated, record.To)
	assert.Equal(t, domain.ActorUser, record.By)
}
