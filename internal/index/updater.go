package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/routes"
	"github.com/Aman-CERP/routenav/internal/scanner"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/watcher"
)

// SourceParser is implemented by parsers that accept already loaded
// content, which saves a second read after hashing.
type SourceParser interface {
	ParseSource(ctx context.Context, path string, src []byte) ([]store.RouteEntity, error)
}

// sizeLimited is implemented by parsers that refuse large sources.
type sizeLimited interface {
	MaxFileSize() int64
}

// readSource loads path for parser, refusing it before the read when it
// exceeds the parser's size limit.
func readSource(parser routes.Parser, path string) ([]byte, error) {
	if sl, ok := parser.(sizeLimited); ok {
		info, err := os.Stat(path)
		if err != nil {
			return nil, rerrors.ParseError(path, err)
		}
		if limit := sl.MaxFileSize(); info.Size() > limit {
			return nil, rerrors.ParseError(path, fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), limit))
		}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, rerrors.ParseError(path, err)
	}
	return src, nil
}

// UpdaterConfig contains the collaborators of an Updater.
type UpdaterConfig struct {
	// Scanner stats single paths under the workspace root.
	Scanner *scanner.Scanner

	// Exclude decides which paths are indexed at all.
	Exclude *scanner.ExcludePolicy

	// RouteSources decides which files are handed to Parser.
	RouteSources *scanner.RouteSourcePolicy

	Parser routes.Parser

	// Store receives every delta applied to the live set.
	Store *store.IndexStore

	Logger *slog.Logger

	// OnApplied is called after each change with its outcome (optional).
	OnApplied func(kind watcher.ChangeKind, err error)
}

// Updater applies single-path changes to a Set and the snapshot cache
// without rescanning the tree. Every operation is idempotent.
type Updater struct {
	config UpdaterConfig
	logger *slog.Logger

	mu     sync.Mutex
	hashes map[string]uint64
}

// NewUpdater creates an updater.
func NewUpdater(config UpdaterConfig) *Updater {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		config: config,
		logger: logger,
		hashes: make(map[string]uint64),
	}
}

// IsExcluded reports whether path is outside the workspace or matches the
// exclude policy.
func (u *Updater) IsExcluded(path string) bool {
	rel, ok := u.rel(path)
	if !ok {
		return true
	}
	return u.config.Exclude.Excluded(rel)
}

// Apply applies one change for path to set and the cache. Only invalid
// input is returned as an error; I/O and parse failures degrade to
// removing the affected entities.
func (u *Updater) Apply(ctx context.Context, set *Set, path string, kind watcher.ChangeKind) error {
	err := u.apply(ctx, set, path, kind)
	if u.config.OnApplied != nil {
		u.config.OnApplied(kind, err)
	}
	return err
}

func (u *Updater) apply(ctx context.Context, set *Set, path string, kind watcher.ChangeKind) error {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(u.config.Scanner.Root(), abs)
	}
	abs = filepath.Clean(abs)

	rel, ok := u.rel(abs)
	if !ok {
		return rerrors.New(rerrors.ErrCodeInvalidPath, "path outside workspace", nil).
			WithDetail("path", abs)
	}

	u.logger.Debug("apply_change",
		slog.String("path", rel),
		slog.String("kind", kind.String()))

	switch kind {
	case watcher.Created, watcher.Modified:
		return u.upsert(ctx, set, abs, rel)
	case watcher.Deleted:
		u.remove(ctx, set, abs)
		return nil
	default:
		return rerrors.ValidationError(fmt.Sprintf("unknown change kind %d", kind), nil)
	}
}

func (u *Updater) upsert(ctx context.Context, set *Set, abs, rel string) error {
	if u.config.Exclude.Excluded(rel) {
		return nil
	}

	entity, err := u.config.Scanner.Stat(abs)
	if err != nil {
		if isNotExist(err) {
			// gone again before the drain ran
			u.remove(ctx, set, abs)
			return nil
		}
		if rerrors.GetCode(err) == rerrors.ErrCodeInvalidPath {
			// directories carry no entity of their own
			return nil
		}
		return err
	}

	prev, known := set.File(abs)
	if !known || prev != entity || u.config.Store.Files.NeedsUpdate(ctx, abs, entity.LastModified) {
		set.UpsertFile(entity)
		u.config.Store.Files.UpsertForKeyGroup(ctx, abs, []store.FileEntity{entity})
	}

	if u.config.RouteSources.Accept(rel) {
		u.reparse(ctx, set, abs)
		return nil
	}
	if set.RemoveRoutes(abs) {
		u.config.Store.Routes.RemoveForKey(ctx, abs)
	}
	u.forget(abs)
	return nil
}

// reparse replaces the routes of abs. Unchanged content is not parsed again.
func (u *Updater) reparse(ctx context.Context, set *Set, abs string) {
	src, err := readSource(u.config.Parser, abs)
	if err != nil {
		u.dropRoutes(ctx, set, abs, err)
		return
	}

	sum := xxhash.Sum64(src)
	u.mu.Lock()
	prev, seen := u.hashes[abs]
	u.mu.Unlock()
	if seen && prev == sum {
		u.logger.Debug("route_source_unchanged", slog.String("path", abs))
		return
	}

	var parsed []store.RouteEntity
	if sp, ok := u.config.Parser.(SourceParser); ok {
		parsed, err = sp.ParseSource(ctx, abs, src)
	} else {
		parsed, err = u.config.Parser.Parse(ctx, abs)
	}
	if err != nil {
		u.dropRoutes(ctx, set, abs, err)
		return
	}

	set.ReplaceRoutes(abs, parsed)
	u.config.Store.Routes.UpsertForKeyGroup(ctx, abs, parsed)
	u.remember(abs, sum)
}

func (u *Updater) dropRoutes(ctx context.Context, set *Set, abs string, err error) {
	u.logger.Warn("parse_failed", rerrors.LogAttrs(err)...)
	set.RemoveRoutes(abs)
	u.config.Store.Routes.RemoveForKey(ctx, abs)
	u.forget(abs)
}

// remove drops abs from both kinds. A path that is not a known file is
// treated as a directory and everything below it goes.
func (u *Updater) remove(ctx context.Context, set *Set, abs string) {
	paths := []string{abs}
	if !set.RemoveFile(abs) {
		paths = set.RemoveTree(abs)
		if len(paths) > 0 {
			u.logger.Debug("directory_removed",
				slog.String("path", abs),
				slog.Int("files", len(paths)))
		}
		paths = append(paths, abs)
	}

	for _, p := range paths {
		u.config.Store.Files.RemoveForKey(ctx, p)
		if set.RemoveRoutes(p) {
			u.config.Store.Routes.RemoveForKey(ctx, p)
		}
		u.forget(p)
	}
}

// Remember records the content hash of a file parsed by a full scan.
func (u *Updater) Remember(hashes map[string]uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.hashes = make(map[string]uint64, len(hashes))
	for k, v := range hashes {
		u.hashes[k] = v
	}
}

func (u *Updater) remember(path string, sum uint64) {
	u.mu.Lock()
	u.hashes[path] = sum
	u.mu.Unlock()
}

func (u *Updater) forget(path string) {
	u.mu.Lock()
	delete(u.hashes, path)
	u.mu.Unlock()
}

func (u *Updater) rel(abs string) (string, bool) {
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(u.config.Scanner.Root(), abs)
	}
	return scanner.Rel(u.config.Scanner.Root(), filepath.Clean(abs))
}

// isNotExist reports whether err means the path is gone.
func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist) || rerrors.GetCode(err) == rerrors.ErrCodeFileNotFound
}
