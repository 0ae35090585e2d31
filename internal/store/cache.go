package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

// DefaultCacheTimeout is how long a snapshot stays valid after its last
// scan or incremental update.
const DefaultCacheTimeout = 5 * time.Minute

// CacheOptions configures an EntityCache.
type CacheOptions struct {
	// Root is the workspace root the cache belongs to.
	Root    string
	Timeout time.Duration
	Logger  *slog.Logger
	// Now overrides the clock (tests).
	Now func() time.Time
}

// EntityCache is the persisted snapshot of one entity kind plus its
// staleness policy. The in-memory entity arrays live with the caller;
// this type only mirrors them.
//
// Persistence failures never reach the caller. They are logged, and the
// snapshot is kept dirty so that Flush can try again.
type EntityCache[T Entity] struct {
	key     string
	root    string
	timeout time.Duration
	backend Backend
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	snap   *Snapshot[T]
	loaded bool
	dirty  bool
}

// NewEntityCache creates a cache stored under key in backend.
func NewEntityCache[T Entity](key string, backend Backend, opts CacheOptions) *EntityCache[T] {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCacheTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &EntityCache[T]{
		key:     key,
		root:    NormalizeRoot(opts.Root),
		timeout: opts.Timeout,
		backend: backend,
		logger:  opts.Logger.With(slog.String("cache", key)),
		now:     opts.Now,
	}
}

// Get returns a copy of the cached entities when the snapshot is valid:
// it was taken for this root and refreshed within the timeout. Otherwise
// ok is false; a partially valid snapshot is never returned.
func (c *EntityCache[T]) Get(ctx context.Context) (entities []T, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded(ctx)
	if !c.validLocked() {
		return nil, false
	}
	return append([]T(nil), c.snap.Entities...), true
}

// Valid reports whether Get would hit.
func (c *EntityCache[T]) Valid(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded(ctx)
	return c.validLocked()
}

// Set replaces the snapshot with entities and stamps it as freshly scanned.
func (c *EntityCache[T]) Set(ctx context.Context, entities []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	snap := &Snapshot[T]{
		Entities:   append([]T(nil), entities...),
		LastScan:   now,
		OriginRoot: c.root,
		ModTimes:   make(map[string]time.Time, len(entities)),
	}
	for _, e := range entities {
		snap.ModTimes[e.GroupKey()] = stampOf(e, now)
	}

	c.snap = snap
	c.loaded = true
	c.persistLocked(ctx)
}

// Clear drops the snapshot in memory and in the backend.
func (c *EntityCache[T]) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap = nil
	c.loaded = true
	c.dirty = false
	if err := c.backend.Delete(ctx, c.key); err != nil {
		c.logger.Warn("cache_clear_failed", rerrors.LogAttrs(err)...)
	}
}

// RemoveForKey removes every entity in group key.
// It is a no-op when no snapshot is held.
func (c *EntityCache[T]) RemoveForKey(ctx context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded(ctx)
	if c.snap == nil {
		return
	}

	c.snap.Entities = withoutGroup(c.snap.Entities, key)
	delete(c.snap.ModTimes, key)
	c.snap.LastScan = c.now()
	c.persistLocked(ctx)
}

// UpsertForKeyGroup replaces every entity in group key with entities.
// It is a no-op when no snapshot is held.
func (c *EntityCache[T]) UpsertForKeyGroup(ctx context.Context, key string, entities []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded(ctx)
	if c.snap == nil {
		return
	}

	now := c.now()
	c.snap.Entities = append(withoutGroup(c.snap.Entities, key), entities...)
	stamp := now
	for _, e := range entities {
		stamp = stampOf(e, now)
	}
	c.snap.ModTimes[key] = stamp
	c.snap.LastScan = now
	c.persistLocked(ctx)
}

// NeedsUpdate reports whether modTime is newer than the time recorded for
// key. Unknown keys always need an update.
func (c *EntityCache[T]) NeedsUpdate(ctx context.Context, key string, modTime time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ensureLoaded(ctx)
	if c.snap == nil {
		return true
	}
	cached, ok := c.snap.ModTimes[key]
	return !ok || modTime.After(cached)
}

// LastScan returns the snapshot timestamp, or zero when none is held.
func (c *EntityCache[T]) LastScan() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return time.Time{}
	}
	return c.snap.LastScan
}

// Len returns the number of entities held in the snapshot.
func (c *EntityCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return 0
	}
	return len(c.snap.Entities)
}

// Flush rewrites the snapshot if an earlier write failed.
func (c *EntityCache[T]) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.snap == nil {
		return nil
	}
	return c.writeLocked(ctx)
}

func (c *EntityCache[T]) validLocked() bool {
	if c.snap == nil {
		return false
	}
	if c.snap.OriginRoot != c.root {
		return false
	}
	return c.now().Sub(c.snap.LastScan) < c.timeout
}

// ensureLoaded reads the persisted snapshot once per process.
// Unreadable data is treated as a miss and removed.
func (c *EntityCache[T]) ensureLoaded(ctx context.Context) {
	if c.loaded {
		return
	}
	c.loaded = true

	data, ok, err := c.backend.Load(ctx, c.key)
	if err != nil {
		c.logger.Warn("cache_load_failed", rerrors.LogAttrs(err)...)
		return
	}
	if !ok {
		return
	}

	var snap Snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		c.logger.Warn("cache_snapshot_corrupt", rerrors.LogAttrs(rerrors.CacheCorruptError(c.key, err))...)
		_ = c.backend.Delete(ctx, c.key)
		return
	}
	if snap.OriginRoot != c.root {
		c.logger.Debug("cache_root_mismatch",
			slog.String("cached_root", snap.OriginRoot),
			slog.String("root", c.root))
		return
	}
	if snap.ModTimes == nil {
		snap.ModTimes = make(map[string]time.Time)
	}
	c.snap = &snap
}

func (c *EntityCache[T]) persistLocked(ctx context.Context) {
	if err := c.writeLocked(ctx); err != nil {
		c.logger.Warn("cache_persist_failed", rerrors.LogAttrs(err)...)
	}
}

func (c *EntityCache[T]) writeLocked(ctx context.Context) error {
	data, err := json.Marshal(c.snap)
	if err != nil {
		c.dirty = true
		return rerrors.InternalError("encode snapshot", err)
	}
	if err := c.backend.Save(ctx, c.key, data); err != nil {
		c.dirty = true
		return err
	}
	c.dirty = false
	return nil
}

func withoutGroup[T Entity](entities []T, key string) []T {
	out := entities[:0:0]
	for _, e := range entities {
		if e.GroupKey() != key {
			out = append(out, e)
		}
	}
	return out
}

func stampOf[T Entity](e T, now time.Time) time.Time {
	if t := e.ModTime(); !t.IsZero() {
		return t
	}
	return now
}
