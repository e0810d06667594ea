// Package redis provides Redis-backed adapters for the engine's ports.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// Repository implements ports.TaskRepository using Redis.
// Tasks are stored as JSON; a per-owner ZSET (scored by creation time) backs
// ListByOwner. Reads go through the same client as writes, which gives the
// single-task read-after-write consistency the repository contract requires.
type Repository struct {
	client *backend.Client
	prefix string
}

// RepositoryOption configures the Repository.
type RepositoryOption func(*Repository)

// WithRepositoryPrefix overrides the key prefix.
func WithRepositoryPrefix(prefix string) RepositoryOption {
	return func(r *Repository) {
		r.prefix = prefix
	}
}

// NewRepository creates a Repository connecting to the given address.
func NewRepository(address, password string, db int, opts ...RepositoryOption) *Repository {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRepositoryFromClient(client, opts...)
}

// NewRepositoryFromClient creates a Repository from an existing client.
func NewRepositoryFromClient(client *backend.Client, opts ...RepositoryOption) *Repository {
	r := &Repository{
		client: client,
		prefix: "guichet:task:",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) key(id string) string {
	return r.prefix + id
}

func (r *Repository) ownerKey(ownerID string) string {
	return r.prefix + "owner:" + ownerID
}

func (r *Repository) save(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.key(task.ID), data, 0)
	pipe.ZAdd(ctx, r.ownerKey(task.OwnerID), backend.Z{
		Score:  float64(task.CreatedAt.UnixNano()),
		Member: task.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save task to redis: %w", err)
	}
	return nil
}

// Create persists a new task.
func (r *Repository) Create(ctx context.Context, task *domain.Task) error {
	return r.save(ctx, task)
}

// Update replaces the stored task.
func (r *Repository) Update(ctx context.Context, task *domain.Task) error {
	return r.save(ctx, task)
}

// Get retrieves a task by id.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Task, error) {
	val, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task from redis: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(val), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// ListByOwner returns every task belonging to an owner, oldest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	ids, err := r.client.ZRange(ctx, r.ownerKey(ownerID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list owner tasks: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		task, err := r.Get(ctx, id)
		if err == domain.ErrTaskNotFound {
			// Index entry without a task; prune lazily.
			_ = r.client.ZRem(ctx, r.ownerKey(ownerID), id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Close closes the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}
