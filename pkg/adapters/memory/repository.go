// Package memory provides in-process adapters for the engine's ports.
// They are the default wiring for tests and single-node deployments.
package memory

import (
	"context"
	"sync"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// Repository implements ports.TaskRepository in memory.
// Safe for concurrent use; tasks are copied on write and read so callers
// never share slices or maps with the store.
type Repository struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		tasks: make(map[string]*domain.Task),
	}
}

// Create persists a new task.
func (r *Repository) Create(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task.Clone()
	return nil
}

// Update replaces the stored task.
func (r *Repository) Update(ctx context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task.Clone()
	return nil
}

// Get retrieves a task by id.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task.Clone(), nil
}

// ListByOwner returns every task belonging to an owner.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tasks []*domain.Task
	for _, task := range r.tasks {
		if task.OwnerID == ownerID {
			tasks = append(tasks, task.Clone())
		}
	}
	return tasks, nil
}
