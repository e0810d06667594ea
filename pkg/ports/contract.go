package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guichet-dev/guichet/pkg/domain"
)

// RunTaskRepositoryContract verifies that a TaskRepository implementation
// adheres to the interface contract, including read-after-write visibility
// and isolation of returned values.
func RunTaskRepositoryContract(t *testing.T, repo TaskRepository) {
	ctx := context.Background()
	id := "contract-task-" + time.Now().Format("20060102150405.000")

	task := &domain.Task{
		ID:        id,
		OwnerID:   "owner-a",
		Title:     "Declaration de revenus",
		AgentType: domain.AgentFiscal,
		State:     domain.StateCreated,
		Priority:  domain.PriorityMedium,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		RequiredDocuments: []domain.DocumentKind{
			domain.DocTaxNotice,
		},
		Metadata: map[string]any{"year": "2025"},
	}

	t.Run("Create and Get", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, task))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, task.Title, got.Title)
		assert.Equal(t, domain.StateCreated, got.State)
		assert.Equal(t, "2025", got.Metadata["year"])
	})

	t.Run("Update is visible on next Get", func(t *testing.T) {
		task.State = domain.StatePending
		task.Progress = 10
		require.NoError(t, repo.Update(ctx, task))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatePending, got.State)
		assert.Equal(t, 10, got.Progress)
	})

	t.Run("Get returns isolated copies", func(t *testing.T) {
		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		got.Title = "mutated by caller"
		got.Metadata["year"] = "mutated"

		again, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Declaration de revenus", again.Title)
		assert.Equal(t, "2025", again.Metadata["year"])
	})

	t.Run("Get non-existent", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing-"+id)
		assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	})

	t.Run("ListByOwner", func(t *testing.T) {
		other := task.Clone()
		other.ID = id + "-2"
		other.OwnerID = "owner-b"
		require.NoError(t, repo.Create(ctx, other))

		mine, err := repo.ListByOwner(ctx, "owner-a")
		require.NoError(t, err)

		found := false
		for _, tk := range mine {
			assert.Equal(t, "owner-a", tk.OwnerID)
			if tk.ID == id {
				found = true
			}
		}
		assert.True(t, found, "owner listing should contain the created task")
	})
}

// RunBlobStoreContract verifies that a BlobStore implementation adheres to
// the interface contract.
func RunBlobStoreContract(t *testing.T, store BlobStore) {
	ctx := context.Background()
	id := "contract-blob-" + time.Now().Format("20060102150405.000")
	blob := []byte(`{"ciphertext":"b3BhcXVl"}`)

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, id, blob))

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, blob, got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		next := []byte(`{"ciphertext":"djI="}`)
		require.NoError(t, store.Put(ctx, id, next))

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, next, got)
	})

	t.Run("Get non-existent", func(t *testing.T) {
		_, err := store.Get(ctx, "missing-"+id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id))
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)

		// Deleting an absent id is not an error.
		assert.NoError(t, store.Delete(ctx, id))
	})
}

// RunAuditSinkContract verifies that an AuditSink accepts transitions,
// including the initial one with a nil from-state.
func RunAuditSinkContract(t *testing.T, sink AuditSink) {
	ctx := context.Background()

	initial := &domain.StateTransition{
		TaskID: "contract-audit-task",
		To:     domain.StateCreated,
		At:     time.Now().UTC(),
		By:     domain.ActorSystem,
	}
	require.NoError(t, sink.Append(ctx, initial))

	from := domain.StateCreated
	next := &domain.StateTransition{
		TaskID:  "contract-audit-task",
		From:    &from,
		To:      domain.StatePending,
		At:      time.Now().UTC(),
		By:      domain.ActorSystem,
		Context: map[string]any{"reason": "dispatch"},
	}
	require.NoError(t, sink.Append(ctx, next))
}
