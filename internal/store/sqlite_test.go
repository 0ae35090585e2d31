package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer b.Close()

	_, ok, err := b.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "k", []byte("v1")))
	require.NoError(t, b.Save(ctx, "k", []byte("v2")))

	data, ok, err := b.Load(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, b.Delete(ctx, "k"))
	_, ok, err = b.Load(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	// Given: a snapshot written by one process
	s1, err := Open(Options{Root: "/ws", Path: path, Timeout: time.Minute})
	require.NoError(t, err)
	s1.Files.Set(ctx, []FileEntity{file("a.go", time.Time{})})
	require.NoError(t, s1.Close(ctx))

	// When: a second process opens the same database
	s2, err := Open(Options{Root: "/ws", Path: path, Timeout: time.Minute})
	require.NoError(t, err)
	defer s2.Close(ctx)

	// Then
	got, ok := s2.Files.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, "/ws/a.go", got[0].FullPath)
}

func TestSQLiteBackend_RecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not a sqlite database, just noise"), 0o644))

	b, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Save(context.Background(), "k", []byte("v")))
}

func TestSQLiteBackend_InMemoryAndClosed(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend("")
	require.NoError(t, err)

	require.NoError(t, b.Save(ctx, "k", []byte("v")))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.Error(t, b.Save(ctx, "k", []byte("v")))
	_, _, err = b.Load(ctx, "k")
	assert.Error(t, err)
}
