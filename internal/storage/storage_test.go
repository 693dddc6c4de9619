package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path, err := store.Save(ctx, "ticket_1_log.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ticket_1_log.txt"), path)

	rc, err := store.Open(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(ctx, path))
	_, err = store.Open(ctx, path)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreRejectsNestedNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b", `a\b`} {
		_, err := store.Save(context.Background(), name, strings.NewReader("x"), 1, "")
		assert.Error(t, err, name)
	}
}

func TestLocalStoreOpenOutsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	outside := filepath.Join(dir, "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	_, err = store.Open(context.Background(), outside)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Open(context.Background(), filepath.Join(dir, "uploads", "..", "secret.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk unplugged") }

func TestLocalStoreFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "ticket_1_a.bin", failingReader{}, 10, "")
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestObjectPathRoundTrip(t *testing.T) {
	path := objectPath("attachments", "ticket_3_a.png")
	assert.Equal(t, "s3://attachments/ticket_3_a.png", path)

	name, ok := parseObjectPath("attachments", path)
	assert.True(t, ok)
	assert.Equal(t, "ticket_3_a.png", name)

	_, ok = parseObjectPath("other", path)
	assert.False(t, ok)
	_, ok = parseObjectPath("attachments", "uploads/ticket_3_a.png")
	assert.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{Backend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), config.StorageConfig{Backend: "s3"})
	assert.Error(t, err)
}
