package memory

import (
	"context"
	"sync"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// AuditSink implements ports.AuditSink as an append-only in-memory log.
//
// FailNext injects a transient failure on the next Append, which tests use
// to exercise the orchestrator's backpressure retry path.
type AuditSink struct {
	mu       sync.Mutex
	entries  []*domain.StateTransition
	failNext int
}

// NewAuditSink creates an empty sink.
func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

// Append records a transition.
func (s *AuditSink) Append(ctx context.Context, transition *domain.StateTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext > 0 {
		s.failNext--
		return domain.NewTransientSubmissionError("audit append", context.DeadlineExceeded)
	}

	copied := *transition
	s.entries = append(s.entries, &copied)
	return nil
}

// Entries returns a snapshot of the recorded transitions in append order.
func (s *AuditSink) Entries() []*domain.StateTransition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*domain.StateTransition(nil), s.entries...)
}

// FailNext makes the next n Append calls fail with a transient error.
func (s *AuditSink) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}
