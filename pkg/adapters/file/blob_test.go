package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guichet-dev/guichet/pkg/ports"
)

func TestBlobStoreContract(t *testing.T) {
	ports.RunBlobStoreContract(t, New(t.TempDir()))
}

func TestDefaultBasePath(t *testing.T) {
	s := New("")
	assert.Equal(t, filepath.Join(".guichet", "vault"), s.BasePath)
}

func TestPutRejectsEmptyID(t *testing.T) {
	s := New(t.TempDir())
	assert.Error(t, s.Put(context.Background(), "", []byte("x")))
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(dir)

	require.NoError(t, s.Put(ctx, "VLT-1", []byte("one")))
	require.NoError(t, s.Put(ctx, "VLT-1", []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "VLT-1.json", entries[0].Name())

	got, err := s.Get(ctx, "VLT-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, New(dir).Put(ctx, "VLT-2", []byte("persisted")))

	got, err := New(dir).Get(ctx, "VLT-2")
	require.NoError(t, err)
	assert.Equal(t, []byte("persisted"), got)
}
