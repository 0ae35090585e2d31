package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
)

// Sink receives raw changes. A Debouncer is the usual sink.
type Sink interface {
	Add(path string, kind ChangeKind)
}

// ExcludeFunc reports whether an absolute path should be ignored.
type ExcludeFunc func(path string) bool

// Directory names and extensions dropped before the exclude policy runs.
var (
	quickExcludeDirs = map[string]struct{}{
		"node_modules": {}, ".git": {}, "target": {}, "build": {},
		"dist": {}, "out": {}, ".idea": {}, ".vscode": {},
	}
	quickExcludeExts = map[string]struct{}{
		".class": {}, ".jar": {}, ".war": {}, ".log": {}, ".tmp": {}, ".bak": {},
	}
)

// QuickExcluded reports whether a relative path lies in a build, VCS or
// dependency directory, or has a binary, log or temp extension.
func QuickExcluded(rel string) bool {
	rel = strings.ReplaceAll(filepath.ToSlash(rel), `\`, "/")
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if _, ok := quickExcludeDirs[seg]; ok {
			return true
		}
	}
	ext := strings.ToLower(filepath.Ext(segments[len(segments)-1]))
	_, ok := quickExcludeExts[ext]
	return ok
}

// Watcher watches a tree recursively with fsnotify and forwards changes
// to a Sink. Directories created later are added as they appear.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	sink      Sink
	excluded  ExcludeFunc
	logger    *slog.Logger

	errors chan error
	stopCh chan struct{}

	mu          sync.RWMutex
	stopped     bool
	watchedDirs atomic.Int64
}

// New creates a watcher for root. excluded may be nil.
func New(root string, sink Sink, excluded ExcludeFunc, opts Options, logger *slog.Logger) (*Watcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, rerrors.New(rerrors.ErrCodeWatcherFailure, "create fsnotify watcher", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		root:      abs,
		sink:      sink,
		excluded:  excluded,
		logger:    logger,
		errors:    make(chan error, opts.ErrorBufferSize),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start adds the tree and forwards events until ctx is cancelled or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		_ = w.Stop()
		return rerrors.New(rerrors.ErrCodeWatcherFailure, "add directories to watcher", err).
			WithDetail("root", w.root)
	}
	w.logger.Info("watcher_started",
		slog.String("root", w.root),
		slog.Int64("directories", w.watchedDirs.Load()))

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
			w.emitError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if isDir {
			// files written before the watch was registered produce no event
			if err := w.addRecursive(event.Name); err != nil {
				w.emitError(err)
			}
			w.announceTree(event.Name)
			return
		}
		w.sink.Add(event.Name, Created)
	case event.Op&fsnotify.Write != 0:
		if !isDir {
			w.sink.Add(event.Name, Modified)
		}
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.sink.Add(event.Name, Deleted)
	}
}

// ignored applies the quick excludes, then the shared exclude policy.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return true
	}
	if QuickExcluded(rel) {
		return true
	}
	return w.excluded != nil && w.excluded(path)
}

// addRecursive adds every non-ignored directory under dir.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.watchedDirs.Add(1)
		return nil
	})
}

// announceTree reports every file below a freshly created directory.
func (w *Watcher) announceTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			w.sink.Add(path, Created)
		}
		return nil
	})
}

func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	err := w.fsWatcher.Close()
	close(w.errors)
	return err
}

// Errors returns non-fatal watcher errors. Closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// WatchedDirs returns the number of directories registered so far.
func (w *Watcher) WatchedDirs() int {
	return int(w.watchedDirs.Load())
}

// Root returns the watched root.
func (w *Watcher) Root() string {
	return w.root
}
