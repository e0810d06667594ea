package ports

import (
	"context"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// TaskRepository persists tasks. Implementations must provide strong
// read-after-write consistency for a single task id: a Get following a
// successful Create or Update observes that write.
type TaskRepository interface {
	// Create persists a new task. The task is only visible to readers once
	// Create returns nil.
	Create(ctx context.Context, task *domain.Task) error

	// Update replaces the stored task.
	Update(ctx context.Context, task *domain.Task) error

	// Get retrieves a task by id.
	// Returns domain.ErrTaskNotFound if the id does not exist.
	Get(ctx context.Context, id string) (*domain.Task, error)

	// ListByOwner returns every task belonging to an owner, in no
	// particular order. Callers sort.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error)
}
