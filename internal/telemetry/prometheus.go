package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routenav"

// Outcome labels for applied changes.
const (
	OutcomeApplied = "applied"
	OutcomeFailed  = "failed"
)

// Metrics holds the Prometheus collectors. Every method is safe on a nil
// receiver so components can take an optional *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	SearchDuration *prometheus.HistogramVec
	SearchResults  *prometheus.HistogramVec
	SearchCacheHit *prometheus.CounterVec

	ScansTotal   *prometheus.CounterVec
	ScanDuration *prometheus.HistogramVec
	ParseFailed  prometheus.Counter

	ChangesTotal  *prometheus.CounterVec
	DrainsTotal   prometheus.Counter
	DrainDuration prometheus.Histogram

	Entities *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on a private registry
// together with the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SearchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_duration_seconds",
				Help:      "Search latency in seconds",
				Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"mode"},
		),
		SearchResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of results returned per search",
				Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
			},
			[]string{"mode"},
		),
		SearchCacheHit: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_cache_hits_total",
				Help:      "Searches answered from the result cache",
			},
			[]string{"mode"},
		),

		ScansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Full scans by entity kind",
			},
			[]string{"kind"},
		),
		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Full scan duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		ParseFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_parse_failures_total",
				Help:      "Route sources that failed to parse",
			},
		),

		ChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_total",
				Help:      "Single-path changes applied to the index",
			},
			[]string{"kind", "outcome"},
		),
		DrainsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "debounce_drains_total",
				Help:      "Debounced change batches drained",
			},
		),
		DrainDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "debounce_drain_duration_seconds",
				Help:      "Time spent applying one drained batch",
				Buckets:   prometheus.DefBuckets,
			},
		),

		Entities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "entities",
				Help:      "Entities currently indexed",
			},
			[]string{"kind"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SearchDuration,
		m.SearchResults,
		m.SearchCacheHit,
		m.ScansTotal,
		m.ScanDuration,
		m.ParseFailed,
		m.ChangesTotal,
		m.DrainsTotal,
		m.DrainDuration,
		m.Entities,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSearch records one search.
func (m *Metrics) ObserveSearch(mode string, d time.Duration, results int, cacheHit bool) {
	if m == nil {
		return
	}
	m.SearchDuration.WithLabelValues(mode).Observe(d.Seconds())
	m.SearchResults.WithLabelValues(mode).Observe(float64(results))
	if cacheHit {
		m.SearchCacheHit.WithLabelValues(mode).Inc()
	}
}

// ObserveScan records one full scan of the given entity kind.
func (m *Metrics) ObserveScan(kind string, d time.Duration, failures int) {
	if m == nil {
		return
	}
	m.ScansTotal.WithLabelValues(kind).Inc()
	m.ScanDuration.WithLabelValues(kind).Observe(d.Seconds())
	if failures > 0 {
		m.ParseFailed.Add(float64(failures))
	}
}

// ObserveChange records one applied single-path change.
func (m *Metrics) ObserveChange(kind string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeApplied
	if err != nil {
		outcome = OutcomeFailed
	}
	m.ChangesTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveDrain records one debouncer drain.
func (m *Metrics) ObserveDrain(d time.Duration) {
	if m == nil {
		return
	}
	m.DrainsTotal.Inc()
	m.DrainDuration.Observe(d.Seconds())
}

// SetEntities publishes the current file and route counts.
func (m *Metrics) SetEntities(files, routes int) {
	if m == nil {
		return
	}
	m.Entities.WithLabelValues("file").Set(float64(files))
	m.Entities.WithLabelValues("route").Set(float64(routes))
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes the metrics handler on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("metrics_listening", slog.String("addr", ln.Addr().String()))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
