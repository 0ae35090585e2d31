package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Options configures an IndexStore.
type Options struct {
	// Root is the workspace root both snapshots are bound to.
	Root string
	// Path is the SQLite cache database. Ignored by the memory backend.
	Path string
	// Backend is "sqlite" (default) or "memory".
	Backend string
	Timeout time.Duration
	Logger  *slog.Logger
}

// IndexStore owns the file and route snapshots of one workspace.
// It is constructed once per process and closed on shutdown, which
// flushes any snapshot whose last write failed.
type IndexStore struct {
	Files  *EntityCache[FileEntity]
	Routes *EntityCache[RouteEntity]

	backend Backend
}

// Open creates the backend described by opts and the two caches on top of it.
func Open(opts Options) (*IndexStore, error) {
	var backend Backend
	switch opts.Backend {
	case "", "sqlite":
		b, err := NewSQLiteBackend(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("open cache database: %w", err)
		}
		backend = b
	case "memory":
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	return NewIndexStore(backend, opts), nil
}

// NewIndexStore builds the caches over an existing backend.
func NewIndexStore(backend Backend, opts Options) *IndexStore {
	co := CacheOptions{Root: opts.Root, Timeout: opts.Timeout, Logger: opts.Logger}
	return &IndexStore{
		Files:   NewEntityCache[FileEntity](FileSnapshotKey, backend, co),
		Routes:  NewEntityCache[RouteEntity](RouteSnapshotKey, backend, co),
		backend: backend,
	}
}

// Clear drops both snapshots.
func (s *IndexStore) Clear(ctx context.Context) {
	s.Files.Clear(ctx)
	s.Routes.Clear(ctx)
}

// Close flushes pending snapshots and closes the backend.
func (s *IndexStore) Close(ctx context.Context) error {
	return errors.Join(
		s.Files.Flush(ctx),
		s.Routes.Flush(ctx),
		s.backend.Close(),
	)
}
