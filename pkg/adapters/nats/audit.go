// Package nats provides a NATS-backed audit sink, for deployments where the
// transition trail feeds a message bus instead of a database.
package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// AuditSink implements ports.AuditSink by publishing transitions as JSON to
// a per-task subject under a configurable prefix
// (e.g. guichet.audit.task.<id>). Publish failures and flush errors surface
// as transient submission errors so the orchestrator retries the append.
type AuditSink struct {
	conn    *nats.Conn
	subject string
}

// NewAuditSink creates a sink over an established connection.
// subjectPrefix defaults to "guichet.audit.task" when empty.
func NewAuditSink(conn *nats.Conn, subjectPrefix string) *AuditSink {
	if subjectPrefix == "" {
		subjectPrefix = "guichet.audit.task"
	}
	return &AuditSink{conn: conn, subject: subjectPrefix}
}

// Append publishes a transition and flushes the connection, so a nil return
// means the server accepted the entry rather than it sitting in a local
// buffer that could be dropped.
func (s *AuditSink) Append(ctx context.Context, transition *domain.StateTransition) error {
	payload, err := json.Marshal(transition)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", s.subject, transition.TaskID)
	if err := s.conn.Publish(subject, payload); err != nil {
		return domain.NewTransientSubmissionError("audit publish", err)
	}
	if err := s.conn.FlushWithContext(ctx); err != nil {
		return domain.NewTransientSubmissionError("audit flush", err)
	}
	return nil
}
