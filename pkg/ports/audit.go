package ports

import (
	"context"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// AuditSink receives the append-only trail of lifecycle transitions.
// Implementations must not silently drop entries: backpressure surfaces as a
// transient submission error so the orchestrator can retry the append within
// the dispatch retry budget.
type AuditSink interface {
	Append(ctx context.Context, transition *domain.StateTransition) error
}
