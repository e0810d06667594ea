package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionErrorClassification(t *testing.T) {
	cause := errors.New("connection reset")

	transient := NewTransientSubmissionError("portal submit", cause)
	assert.True(t, IsTransientSubmission(transient))
	assert.ErrorIs(t, transient, cause)
	assert.Contains(t, transient.Error(), "transient")

	permanent := NewPermanentSubmissionError("portal review", cause)
	assert.False(t, IsTransientSubmission(permanent))
	assert.Contains(t, permanent.Error(), "permanent")

	// Classification survives wrapping.
	wrapped := fmt.Errorf("dispatch: %w", transient)
	assert.True(t, IsTransientSubmission(wrapped))
	assert.False(t, IsTransientSubmission(errors.New("plain")))
}

func TestAggregateError(t *testing.T) {
	single := &AggregateError{Errors: []error{
		&ValidationError{Key: "title", Reason: "must not be empty"},
	}}
	assert.Equal(t, `field "title": must not be empty`, single.Error())

	multi := &AggregateError{Errors: []error{
		&ValidationError{Key: "title", Reason: "must not be empty"},
		&ValidationError{Key: "agent_type", Reason: "unknown agent type", Value: "x"},
	}}
	assert.Contains(t, multi.Error(), "2 validation errors")

	errs := ValidationErrors(fmt.Errorf("create: %w", multi))
	require.Len(t, errs, 2)
	assert.Nil(t, ValidationErrors(errors.New("plain")))
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: StateCompleted, To: StatePending}
	assert.Equal(t, "invalid transition: completed -> pending", err.Error())
}

func TestDocumentsMissingError(t *testing.T) {
	err := &DocumentsMissingError{Missing: []DocumentKind{DocTaxNotice, DocPayslip}}
	assert.Equal(t, "required documents missing: avis_imposition, bulletin_salaire", err.Error())
}
