package search

import (
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/routenav/internal/config"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/telemetry"
)

// patternCacheSize bounds the compiled wildcard patterns kept around.
const patternCacheSize = 64

// Engine ranks a Corpus. It holds no entities itself; results are memoized
// per corpus generation so a repeated keystroke costs one map lookup.
type Engine struct {
	cfg     config.SearchConfig
	logger  *slog.Logger
	metrics *telemetry.Metrics
	queries *telemetry.QueryMetrics

	results  *lru.Cache[string, []Result]
	patterns *lru.Cache[string, *regexp.Regexp]
	// compilePattern is swapped in tests to exercise the literal fallback.
	compilePattern func(string) (*regexp.Regexp, error)
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for fallback diagnostics.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics exports search latency and cache hits to Prometheus.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithQueryMetrics records every search in an in-process summary.
func WithQueryMetrics(q *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.queries = q
	}
}

// NewEngine creates an engine. Zero limits in cfg take the defaults; zero
// weights are kept and switch that column off.
func NewEngine(cfg config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		cfg:            withDefaults(cfg),
		logger:         slog.Default(),
		compilePattern: WildcardPattern,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.ResultCacheSize > 0 {
		e.results, _ = lru.New[string, []Result](e.cfg.ResultCacheSize)
	}
	e.patterns, _ = lru.New[string, *regexp.Regexp](patternCacheSize)
	return e
}

func withDefaults(cfg config.SearchConfig) config.SearchConfig {
	def := config.NewConfig().Search
	for _, p := range []struct{ v, d *int }{
		{&cfg.NameMatchLimit, &def.NameMatchLimit},
		{&cfg.ShortQueryLimit, &def.ShortQueryLimit},
		{&cfg.FallbackLimit, &def.FallbackLimit},
		{&cfg.MixedRouteLimit, &def.MixedRouteLimit},
		{&cfg.MixedFileLimit, &def.MixedFileLimit},
		{&cfg.MaxResults, &def.MaxResults},
	} {
		if *p.v <= 0 {
			*p.v = *p.d
		}
	}
	return cfg
}

// Config returns the effective ranking configuration.
func (e *Engine) Config() config.SearchConfig {
	return e.cfg
}

// Search ranks the corpus for query in the given mode. The returned slice
// is owned by the caller.
func (e *Engine) Search(query string, mode Mode, c Corpus) []Result {
	start := time.Now()
	key := strconv.FormatUint(c.Generation, 10) + "|" + string(mode) + "|" + query

	if e.results != nil {
		if cached, ok := e.results.Get(key); ok {
			e.observe(query, mode, len(cached), time.Since(start), true)
			return slices.Clone(cached)
		}
	}

	var out []Result
	switch mode {
	case ModeFile:
		out = fileResults(e.searchFiles(query, c.Files))
	case ModeRoute:
		out = routeResults(e.searchRoutes(query, c.Routes))
	default:
		mode = ModeMixed
		routes := capped(e.searchRoutes(query, c.Routes), e.cfg.MixedRouteLimit)
		files := capped(e.searchFiles(query, c.Files), e.cfg.MixedFileLimit)
		out = append(routeResults(routes), fileResults(files)...)
	}
	out = dedupe(out)

	if e.results != nil {
		e.results.Add(key, out)
	}
	e.observe(query, mode, len(out), time.Since(start), false)
	return slices.Clone(out)
}

// Files runs only the file layers and returns the entities.
func (e *Engine) Files(query string, files []store.FileEntity) []store.FileEntity {
	return e.searchFiles(query, files)
}

// Routes runs only the route layers and returns the entities.
func (e *Engine) Routes(query string, routes []store.RouteEntity) []store.RouteEntity {
	return e.searchRoutes(query, routes)
}

// Purge drops every memoized result.
func (e *Engine) Purge() {
	if e.results != nil {
		e.results.Purge()
	}
}

func (e *Engine) compile(q string) (*regexp.Regexp, error) {
	if re, ok := e.patterns.Get(q); ok {
		return re, nil
	}
	re, err := e.compilePattern(q)
	if err != nil {
		return nil, err
	}
	e.patterns.Add(q, re)
	return re, nil
}

func (e *Engine) observe(query string, mode Mode, n int, d time.Duration, hit bool) {
	e.metrics.ObserveSearch(string(mode), d, n, hit)
	e.queries.Record(telemetry.QueryEvent{
		Query:       query,
		Mode:        string(mode),
		ResultCount: n,
		Latency:     d,
		CacheHit:    hit,
		Timestamp:   time.Now(),
	})
}

// dedupe drops repeated hits, keeping the first (best ranked) occurrence.
func dedupe(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		k := string(r.Kind) + "\x00" + r.Path + "\x00" + strconv.Itoa(r.Line) + "\x00" + r.Label
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
