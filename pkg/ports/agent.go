package ports

import (
	"context"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// Agent is a domain-specialized handler for one administrative category.
// Every method may suspend on external I/O; the orchestrator wraps each call
// in a timeout.
type Agent interface {
	// ValidateDocuments checks that the task's submitted documents satisfy
	// its requirements, including content-level checks the agent performs
	// through its connector. Returning false (with nil error) parks the
	// task in awaiting_documents.
	ValidateDocuments(ctx context.Context, task *domain.Task) (bool, error)

	// ProcessTask performs the domain work and returns the updated task
	// (progress, metadata). It must not transition state itself.
	ProcessTask(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// SubmitToPortal files the request with the external administration.
	// Implementations must be idempotent under retry: the same task id and
	// the same idempotency token yield the same external effect, never a
	// duplicate submission. The orchestrator guarantees the token is stable
	// across retries and re-dispatches.
	SubmitToPortal(ctx context.Context, task *domain.Task, idempotencyToken string) (*domain.SubmissionResult, error)
}

// Connector is the portal-facing surface an agent calls internally.
// Concrete connectors speak to one administration's API and are opaque to
// the orchestration core.
type Connector interface {
	// Authenticate establishes or refreshes a session with the portal.
	Authenticate(ctx context.Context) error

	// Submit files a prepared form and returns the portal's result.
	// The idempotency token must be forwarded so the portal can deduplicate.
	Submit(ctx context.Context, form map[string]any, idempotencyToken string) (*domain.SubmissionResult, error)

	// FetchRecord reads a domain-specific record (e.g. a government file)
	// referenced by id. The shape of the result is connector-specific.
	FetchRecord(ctx context.Context, recordID string) (map[string]any, error)
}
