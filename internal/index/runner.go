// Package index keeps the live file and route sets current: the Runner
// builds them with full scans, the Updater patches them per changed path.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/routenav/internal/routes"
	"github.com/Aman-CERP/routenav/internal/scanner"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/ui"
)

// progressEvery is how often the scanners report progress.
const progressEvery = 250

// RunnerConfig configures full scans.
type RunnerConfig struct {
	Scanner      *scanner.Scanner
	Exclude      *scanner.ExcludePolicy
	RouteSources *scanner.RouteSourcePolicy
	Parser       routes.Parser

	// Renderer receives progress (optional).
	Renderer ui.Renderer

	Logger *slog.Logger

	// Workers bounds concurrent route parsing. Defaults to NumCPU.
	Workers int
}

// RouteScan is the outcome of a full route scan.
type RouteScan struct {
	Routes []store.RouteEntity

	// Hashes maps every parsed source to its content hash.
	Hashes map[string]uint64

	// Sources is the number of files handed to the parser.
	Sources int

	// Failures is the number of sources that contributed no routes because
	// they could not be read or parsed.
	Failures int

	Duration time.Duration
}

// Runner performs full scans of the workspace.
type Runner struct {
	config RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	if config.Exclude == nil {
		return nil, fmt.Errorf("exclude policy is required")
	}
	if config.RouteSources == nil {
		return nil, fmt.Errorf("route source policy is required")
	}
	if config.Parser == nil {
		return nil, fmt.Errorf("route parser is required")
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{config: config, logger: logger}, nil
}

// WithRenderer returns a copy of r that reports progress to rd.
func (r *Runner) WithRenderer(rd ui.Renderer) *Runner {
	c := *r
	c.config.Renderer = rd
	return &c
}

// ScanFiles enumerates every non-excluded file in scan order.
func (r *Runner) ScanFiles(ctx context.Context) ([]store.FileEntity, error) {
	start := time.Now()
	r.progress(ui.ProgressEvent{Stage: ui.StageScanning, Message: "scanning files"})

	files, err := r.config.Scanner.Collect(ctx, scanner.ScanOptions{
		Filter:        r.config.Exclude,
		ProgressEvery: progressEvery,
		ProgressFunc: func(n int) {
			r.progress(ui.ProgressEvent{Stage: ui.StageScanning, Current: n})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scan files: %w", err)
	}

	r.logger.Info("file_scan_complete",
		slog.Int("files", len(files)),
		slog.Duration("duration", time.Since(start)))
	return files, nil
}

// ScanRoutes enumerates route sources and parses them concurrently.
// A source that fails contributes zero routes and is counted in Failures.
func (r *Runner) ScanRoutes(ctx context.Context) (*RouteScan, error) {
	start := time.Now()
	sources, err := r.config.Scanner.Collect(ctx, scanner.ScanOptions{
		Filter: r.config.RouteSources,
	})
	if err != nil {
		return nil, fmt.Errorf("scan route sources: %w", err)
	}

	type parsed struct {
		routes []store.RouteEntity
		hash   uint64
		ok     bool
	}
	results := make([]parsed, len(sources))
	var done, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i := range sources {
		path := sources[i].FullPath
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rs, sum, err := r.parseOne(gctx, path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				r.logger.Warn("parse_failed", slog.String("path", path), slog.String("error", err.Error()))
				r.warn(path, err)
			} else {
				results[i] = parsed{routes: rs, hash: sum, ok: true}
			}
			n := int(done.Add(1))
			r.progress(ui.ProgressEvent{
				Stage:       ui.StageParsing,
				Current:     n,
				Total:       len(sources),
				CurrentFile: sources[i].RelativePath,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parse route sources: %w", err)
	}

	scan := &RouteScan{
		Hashes:   make(map[string]uint64, len(sources)),
		Sources:  len(sources),
		Failures: int(failed.Load()),
	}
	for i, res := range results {
		if !res.ok {
			continue
		}
		scan.Routes = append(scan.Routes, res.routes...)
		scan.Hashes[sources[i].FullPath] = res.hash
	}
	scan.Duration = time.Since(start)

	r.logger.Info("route_scan_complete",
		slog.Int("sources", scan.Sources),
		slog.Int("routes", len(scan.Routes)),
		slog.Int("failures", scan.Failures),
		slog.Duration("duration", scan.Duration))
	return scan, nil
}

func (r *Runner) parseOne(ctx context.Context, path string) ([]store.RouteEntity, uint64, error) {
	src, err := readSource(r.config.Parser, path)
	if err != nil {
		return nil, 0, err
	}
	sum := xxhash.Sum64(src)
	if sp, ok := r.config.Parser.(SourceParser); ok {
		rs, err := sp.ParseSource(ctx, path, src)
		return rs, sum, err
	}
	rs, err := r.config.Parser.Parse(ctx, path)
	return rs, sum, err
}

func (r *Runner) progress(event ui.ProgressEvent) {
	if r.config.Renderer != nil {
		r.config.Renderer.UpdateProgress(event)
	}
}

func (r *Runner) warn(path string, err error) {
	if r.config.Renderer != nil {
		r.config.Renderer.AddError(ui.ErrorEvent{File: path, Err: err, IsWarn: true})
	}
}
