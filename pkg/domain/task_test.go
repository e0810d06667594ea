package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityForDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := func(d time.Duration) *time.Time {
		dl := now.Add(d)
		return &dl
	}

	tests := []struct {
		name     string
		deadline *time.Time
		want     Priority
	}{
		{"nil deadline", nil, PriorityMedium},
		{"overdue", in(-time.Hour), PriorityUrgent},
		{"due tomorrow", in(24 * time.Hour), PriorityHigh},
		{"due in exactly a week", in(7 * 24 * time.Hour), PriorityHigh},
		{"due in two weeks", in(14 * 24 * time.Hour), PriorityMedium},
		{"due in exactly a month", in(30 * 24 * time.Hour), PriorityMedium},
		{"due far out", in(90 * 24 * time.Hour), PriorityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityForDeadline(now, tt.deadline))
		})
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Less(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, Priority("").Rank(), PriorityLow.Rank())
}

func TestAdvanceProgress(t *testing.T) {
	task := &Task{State: StateInProgress, Progress: 30}

	task.AdvanceProgress(50)
	assert.Equal(t, 50, task.Progress)

	// Regressions are ignored.
	task.AdvanceProgress(10)
	assert.Equal(t, 50, task.Progress)

	// Clamped to 100.
	task.AdvanceProgress(250)
	assert.Equal(t, 100, task.Progress)
}

func TestAdvanceProgressFrozenOnFailure(t *testing.T) {
	task := &Task{State: StateFailed, Progress: 70}
	task.AdvanceProgress(90)
	assert.Equal(t, 70, task.Progress)

	task = &Task{State: StateCancelled, Progress: 30}
	task.AdvanceProgress(90)
	assert.Equal(t, 30, task.Progress)
}

func TestMissingDocuments(t *testing.T) {
	task := &Task{
		RequiredDocuments: []DocumentKind{DocTaxNotice, DocIdentityCard},
	}
	assert.Equal(t, []DocumentKind{DocTaxNotice, DocIdentityCard}, task.MissingDocuments())
	assert.False(t, task.HasAllDocuments())

	task.SubmittedDocuments = append(task.SubmittedDocuments, DocumentRef{
		Kind:       DocTaxNotice,
		DocumentID: "doc-1",
	})
	assert.Equal(t, []DocumentKind{DocIdentityCard}, task.MissingDocuments())

	task.SubmittedDocuments = append(task.SubmittedDocuments, DocumentRef{
		Kind:       DocIdentityCard,
		DocumentID: "doc-2",
	})
	assert.True(t, task.HasAllDocuments())
}

func TestRequiresDocument(t *testing.T) {
	task := &Task{RequiredDocuments: []DocumentKind{DocPayslip}}
	assert.True(t, task.RequiresDocument(DocPayslip))
	assert.False(t, task.RequiresDocument(DocCareSheet))
}

func TestParseAgentType(t *testing.T) {
	for _, at := range AgentTypes() {
		got, err := ParseAgentType(string(at))
		require.NoError(t, err)
		assert.Equal(t, at, got)
	}

	_, err := ParseAgentType("notarial")
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "agent_type", vErr.Key)
}

func TestTaskCloneIsolation(t *testing.T) {
	deadline := time.Now().UTC().Add(48 * time.Hour)
	task := &Task{
		ID:                "t-1",
		OwnerID:           "owner-a",
		State:             StatePending,
		Deadline:          &deadline,
		RequiredDocuments: []DocumentKind{DocTaxNotice},
		SubmittedDocuments: []DocumentRef{
			{Kind: DocTaxNotice, DocumentID: "doc-1"},
		},
		Metadata: map[string]any{"year": "2025"},
	}

	clone := task.Clone()
	clone.Metadata["year"] = "1999"
	clone.RequiredDocuments[0] = DocCareSheet
	clone.SubmittedDocuments[0].DocumentID = "doc-x"
	*clone.Deadline = clone.Deadline.Add(time.Hour)

	assert.Equal(t, "2025", task.Metadata["year"])
	assert.Equal(t, DocTaxNotice, task.RequiredDocuments[0])
	assert.Equal(t, "doc-1", task.SubmittedDocuments[0].DocumentID)
	assert.Equal(t, deadline, *task.Deadline)
}

func TestIsTerminal(t *testing.T) {
	terminal := []TaskState{StateCompleted, StateFailed, StateCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), string(s))
	}
	open := []TaskState{StateCreated, StatePending, StateInProgress, StateAwaitingDocuments, StateUnderReview}
	for _, s := range open {
		assert.False(t, s.IsTerminal(), string(s))
	}
}
