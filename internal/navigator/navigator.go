// Package navigator ties the index, the snapshot cache and the search
// engine together for one workspace. A Navigator owns the live file and
// route sets: every mutation goes through it and is mirrored into the
// cache, every query reads a consistent snapshot of both sets.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/routenav/internal/config"
	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/index"
	"github.com/Aman-CERP/routenav/internal/routes"
	"github.com/Aman-CERP/routenav/internal/scanner"
	"github.com/Aman-CERP/routenav/internal/search"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/telemetry"
	"github.com/Aman-CERP/routenav/internal/ui"
	"github.com/Aman-CERP/routenav/internal/watcher"
)

// Options configures a Navigator.
type Options struct {
	// Root is the workspace root.
	Root string

	// Config supplies policies and ranking knobs. Nil means defaults.
	Config *config.Config

	// Store holds the persisted snapshots. It is owned by the caller,
	// which closes it after the Navigator is done.
	Store *store.IndexStore

	// Parser extracts routes. Nil selects the Spring parser.
	Parser routes.Parser

	Metrics      *telemetry.Metrics
	QueryMetrics *telemetry.QueryMetrics
	Logger       *slog.Logger

	// Workers bounds concurrent route parsing during a full scan.
	Workers int
}

// RefreshStats summarizes one full rescan.
type RefreshStats struct {
	Files    int
	Routes   int
	Sources  int
	Failures int
	Duration time.Duration
}

// Counts is the size of the live sets.
type Counts struct {
	Files      int    `json:"files"`
	Routes     int    `json:"routes"`
	Generation uint64 `json:"generation"`
}

// Status describes the index and its cache for the status surfaces.
type Status struct {
	Root            string    `json:"root"`
	Loaded          bool      `json:"loaded"`
	Files           int       `json:"files"`
	Routes          int       `json:"routes"`
	FileCacheValid  bool      `json:"file_cache_valid"`
	RouteCacheValid bool      `json:"route_cache_valid"`
	FileCacheScan   time.Time `json:"file_cache_scan,omitzero"`
	RouteCacheScan  time.Time `json:"route_cache_scan,omitzero"`
	LastRefresh     time.Time `json:"last_refresh,omitzero"`
}

// Navigator is the composite index and search service of one workspace.
type Navigator struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	metrics *telemetry.Metrics

	store   *store.IndexStore
	set     *index.Set
	updater *index.Updater
	runner  *index.Runner
	engine  *search.Engine

	// mu serializes mutations of set; readers use set's own lock.
	mu          sync.Mutex
	loaded      atomic.Bool
	lastRefresh atomic.Int64

	loads     singleflight.Group
	refreshes singleflight.Group
}

// New creates a Navigator. Nothing is read from disk until the first
// EnsureLoaded, Search or Refresh.
func New(opts Options) (*Navigator, error) {
	if opts.Store == nil {
		return nil, errors.New("navigator: store is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	parser := opts.Parser
	if parser == nil {
		parser = routes.NewJavaParser(routes.DefaultMaxFileSize)
	}

	sc, err := scanner.New(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("navigator: %w", err)
	}
	exclude, err := scanner.NewExcludePolicy(cfg.Paths.Exclude)
	if err != nil {
		return nil, rerrors.ConfigError("invalid paths.exclude", err)
	}
	sources, err := scanner.NewRouteSourcePolicy(cfg.Routes.Include, cfg.Routes.Exclude)
	if err != nil {
		return nil, rerrors.ConfigError("invalid routes globs", err)
	}

	runner, err := index.NewRunner(index.RunnerConfig{
		Scanner:      sc,
		Exclude:      exclude,
		RouteSources: sources,
		Parser:       parser,
		Logger:       logger,
		Workers:      opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("navigator: %w", err)
	}

	n := &Navigator{
		root:    sc.Root(),
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
		store:   opts.Store,
		set:     index.NewSet(),
		runner:  runner,
		engine: search.NewEngine(cfg.Search,
			search.WithLogger(logger),
			search.WithMetrics(opts.Metrics),
			search.WithQueryMetrics(opts.QueryMetrics)),
	}
	n.updater = index.NewUpdater(index.UpdaterConfig{
		Scanner:      sc,
		Exclude:      exclude,
		RouteSources: sources,
		Parser:       parser,
		Store:        opts.Store,
		Logger:       logger,
		OnApplied: func(kind watcher.ChangeKind, err error) {
			n.metrics.ObserveChange(kind.String(), err)
		},
	})
	return n, nil
}

// Root returns the absolute workspace root.
func (n *Navigator) Root() string {
	return n.root
}

// EnsureLoaded populates the live sets once: each set comes from its
// cached snapshot when that is valid, otherwise from a full scan.
func (n *Navigator) EnsureLoaded(ctx context.Context) error {
	if n.loaded.Load() {
		return nil
	}
	_, err, _ := n.loads.Do("load", func() (any, error) {
		if n.loaded.Load() {
			return nil, nil
		}
		return nil, n.load(ctx)
	})
	return err
}

func (n *Navigator) load(ctx context.Context) error {
	files, filesOK := n.store.Files.Get(ctx)
	routes, routesOK := n.store.Routes.Get(ctx)

	n.mu.Lock()
	if filesOK {
		n.set.SetFiles(files)
	}
	if routesOK {
		n.set.SetRoutes(routes)
	}
	n.mu.Unlock()

	if filesOK && routesOK {
		n.loaded.Store(true)
		n.publishCounts()
		n.logger.Info("index_loaded",
			slog.String("source", "cache"),
			slog.Int("files", len(files)),
			slog.Int("routes", len(routes)))
		return nil
	}

	if _, err := n.rescan(ctx, nil, !filesOK, !routesOK); err != nil {
		return err
	}
	n.logger.Info("index_loaded",
		slog.String("source", "scan"),
		slog.Bool("files_cached", filesOK),
		slog.Bool("routes_cached", routesOK))
	return nil
}

// Refresh rescans files and routes in parallel and replaces both sets.
// progress may be nil. A Refresh started while another runs waits for it
// and returns the same result.
func (n *Navigator) Refresh(ctx context.Context, progress ui.Renderer) (*RefreshStats, error) {
	v, err, shared := n.refreshes.Do("refresh", func() (any, error) {
		return n.rescan(ctx, progress, true, true)
	})
	if shared {
		n.logger.Debug("refresh_shared")
	}
	if err != nil {
		return nil, err
	}
	return v.(*RefreshStats), nil
}

func (n *Navigator) rescan(ctx context.Context, progress ui.Renderer, wantFiles, wantRoutes bool) (*RefreshStats, error) {
	start := time.Now()
	runner := n.runner
	if progress != nil {
		runner = runner.WithRenderer(progress)
	}

	var (
		files    []store.FileEntity
		scan     *index.RouteScan
		fileTime time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	if wantFiles {
		g.Go(func() error {
			t := time.Now()
			fs, err := runner.ScanFiles(gctx)
			if err != nil {
				return err
			}
			files, fileTime = fs, time.Since(t)
			n.metrics.ObserveScan("file", fileTime, 0)
			return nil
		})
	}
	if wantRoutes {
		g.Go(func() error {
			s, err := runner.ScanRoutes(gctx)
			if err != nil {
				return err
			}
			scan = s
			n.metrics.ObserveScan("route", s.Duration, s.Failures)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		n.logger.Error("refresh_failed", slog.String("error", err.Error()))
		return nil, rerrors.New(rerrors.ErrCodeRefreshFailed, "full rescan failed", err).
			WithDetail("root", n.root)
	}

	n.mu.Lock()
	if wantFiles {
		n.set.SetFiles(files)
		n.store.Files.Set(ctx, files)
	}
	if wantRoutes {
		n.set.SetRoutes(scan.Routes)
		n.store.Routes.Set(ctx, scan.Routes)
		n.updater.Remember(scan.Hashes)
	}
	n.mu.Unlock()

	n.loaded.Store(true)
	n.lastRefresh.Store(time.Now().UnixNano())
	n.publishCounts()

	fc, rc := n.set.Counts()
	stats := &RefreshStats{Files: fc, Routes: rc, Duration: time.Since(start)}
	var timings ui.StageTimings
	timings.Scan = fileTime
	if scan != nil {
		stats.Sources = scan.Sources
		stats.Failures = scan.Failures
		timings.Parse = scan.Duration
	}

	if progress != nil {
		progress.Complete(ui.CompletionStats{
			Files:    stats.Files,
			Routes:   stats.Routes,
			Sources:  stats.Sources,
			Warnings: stats.Failures,
			Duration: stats.Duration,
			Stages:   timings,
		})
	}
	n.logger.Info("refresh_complete",
		slog.Int("files", stats.Files),
		slog.Int("routes", stats.Routes),
		slog.Int("failures", stats.Failures),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// ApplyChange applies one filesystem change for path. Its signature
// matches watcher.ApplyFunc.
func (n *Navigator) ApplyChange(ctx context.Context, path string, kind watcher.ChangeKind) error {
	if err := n.EnsureLoaded(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	err := n.updater.Apply(ctx, n.set, path, kind)
	n.mu.Unlock()

	n.publishCounts()
	return err
}

// Search ranks the live sets for query.
func (n *Navigator) Search(ctx context.Context, query string, mode search.Mode) ([]search.Result, error) {
	if err := n.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	files, routes, gen := n.set.Snapshot()
	return n.engine.Search(query, mode, search.Corpus{
		Files:      files,
		Routes:     routes,
		Generation: gen,
	}), nil
}

// Counts returns the size of the live sets without loading them.
func (n *Navigator) Counts() Counts {
	fc, rc := n.set.Counts()
	return Counts{Files: fc, Routes: rc, Generation: n.set.Generation()}
}

// Indexed reports whether the absolute path is a file in the live set.
func (n *Navigator) Indexed(path string) bool {
	_, ok := n.set.File(path)
	return ok
}

// IsExcluded reports whether changes to path are ignored.
func (n *Navigator) IsExcluded(path string) bool {
	return n.updater.IsExcluded(path)
}

// Status reports the live counts and the state of both snapshots.
func (n *Navigator) Status(ctx context.Context) Status {
	c := n.Counts()
	s := Status{
		Root:            n.root,
		Loaded:          n.loaded.Load(),
		Files:           c.Files,
		Routes:          c.Routes,
		FileCacheValid:  n.store.Files.Valid(ctx),
		RouteCacheValid: n.store.Routes.Valid(ctx),
		FileCacheScan:   n.store.Files.LastScan(),
		RouteCacheScan:  n.store.Routes.LastScan(),
	}
	if ns := n.lastRefresh.Load(); ns > 0 {
		s.LastRefresh = time.Unix(0, ns)
	}
	return s
}

// ClearCache drops both persisted snapshots and memoized results. The live
// sets are kept.
func (n *Navigator) ClearCache(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.store.Clear(ctx)
	n.engine.Purge()
	n.logger.Info("cache_cleared", slog.String("root", n.root))
}

func (n *Navigator) publishCounts() {
	fc, rc := n.set.Counts()
	n.metrics.SetEntities(fc, rc)
}
