package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// AuditSink implements ports.AuditSink on a Redis stream.
// Entries are appended with XADD; connection failures surface as transient
// submission errors so the orchestrator retries the append instead of
// dropping it.
type AuditSink struct {
	client *backend.Client
	stream string
	maxLen int64
}

// AuditSinkOption configures the AuditSink.
type AuditSinkOption func(*AuditSink)

// WithStream overrides the stream key.
func WithStream(stream string) AuditSinkOption {
	return func(s *AuditSink) {
		s.stream = stream
	}
}

// WithMaxLen caps the stream length (approximate trimming). Zero means
// unbounded.
func WithMaxLen(maxLen int64) AuditSinkOption {
	return func(s *AuditSink) {
		s.maxLen = maxLen
	}
}

// NewAuditSinkFromClient creates an AuditSink from an existing client.
func NewAuditSinkFromClient(client *backend.Client, opts ...AuditSinkOption) *AuditSink {
	s := &AuditSink{
		client: client,
		stream: "guichet:audit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append records a transition on the stream.
func (s *AuditSink) Append(ctx context.Context, transition *domain.StateTransition) error {
	payload, err := json.Marshal(transition)
	if err != nil {
		return fmt.Errorf("failed to marshal transition: %w", err)
	}

	args := &backend.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"task_id":    transition.TaskID,
			"to_state":   string(transition.To),
			"transition": payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return domain.NewTransientSubmissionError("audit append", err)
	}
	return nil
}
