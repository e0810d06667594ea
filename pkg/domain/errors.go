package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTaskNotFound is returned when a task ID cannot be found in the repository.
var ErrTaskNotFound = errors.New("task not found")

// ErrRecordNotFound is returned when a vault record ID does not exist.
var ErrRecordNotFound = errors.New("vault record not found")

// ErrAgentNotFound is returned when no agent is registered for a task's type.
// It is a configuration error and fatal for the task.
var ErrAgentNotFound = errors.New("no agent registered for agent type")

// ErrDuplicateAgent is returned when registering a type that already has an
// agent without the explicit replace override.
var ErrDuplicateAgent = errors.New("agent already registered for agent type")

// ErrDispatchInProgress rejects a dispatch while another one holds the
// per-task lock. Callers should not retry immediately; the owner of the
// in-flight dispatch is responsible for driving the task forward.
var ErrDispatchInProgress = errors.New("dispatch already in progress for task")

// ErrAccessDenied is returned by the vault when the requester does not own
// the record. No decryption is attempted.
var ErrAccessDenied = errors.New("access denied")

// ErrEncryption is returned on authentication-tag mismatch during decryption.
// It signals tampered or corrupted ciphertext and is never retriable.
var ErrEncryption = errors.New("ciphertext integrity check failed")

// InvalidTransitionError reports an attempt to move along a lifecycle edge
// that does not exist.
type InvalidTransitionError struct {
	From TaskState
	To   TaskState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}

// DocumentsMissingError reports a transition blocked by unmet document
// requirements.
type DocumentsMissingError struct {
	Missing []DocumentKind
}

func (e *DocumentsMissingError) Error() string {
	kinds := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		kinds[i] = string(k)
	}
	return fmt.Sprintf("required documents missing: %s", strings.Join(kinds, ", "))
}

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Key    string // Field name
	Reason string // Human-readable reason for failure
	Value  any    // The value that failed validation
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Key, e.Reason, e.Value)
}

// AggregateError collects multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %s", i+1, err.Error())
	}
	return b.String()
}

// ValidationErrors returns the individual failures if err is an
// AggregateError, otherwise nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// SubmissionError wraps a failure from an external portal call, classified as
// transient (retriable: network, timeout, backpressure) or permanent
// (the portal rejected the request).
type SubmissionError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *SubmissionError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s submission failure during %s: %v", kind, e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// NewTransientSubmissionError wraps err as a retriable submission failure.
func NewTransientSubmissionError(op string, err error) error {
	return &SubmissionError{Op: op, Transient: true, Err: err}
}

// NewPermanentSubmissionError wraps err as a non-retriable submission failure.
func NewPermanentSubmissionError(op string, err error) error {
	return &SubmissionError{Op: op, Transient: false, Err: err}
}

// IsTransientSubmission reports whether err should be retried under the
// backoff policy.
func IsTransientSubmission(err error) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}
