package watcher

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// ApplyFunc applies one change for one path.
type ApplyFunc func(ctx context.Context, path string, kind ChangeKind) error

// DrainStats describes one drain.
type DrainStats struct {
	Paths    int
	Changes  int
	Failures int
	Duration time.Duration
}

// kindSet is the set of kinds queued for one path.
type kindSet uint8

func (s kindSet) with(k ChangeKind) kindSet { return s | 1<<uint(k) }
func (s kindSet) has(k ChangeKind) bool     { return s&(1<<uint(k)) != 0 }

// applyOrder is Deleted, Created, Modified: a delete followed by a
// re-create ends with the file present.
var applyOrder = [...]ChangeKind{Deleted, Created, Modified}

// Debouncer accumulates changes per path and applies them once no event
// has arrived for the debounce window. Each Add restarts the window. Only
// one timer exists at a time and drains never overlap.
type Debouncer struct {
	delay      time.Duration
	maxPending int
	apply      ApplyFunc
	logger     *slog.Logger

	// OnDrain is called after every drain (optional).
	OnDrain func(DrainStats)

	mu       sync.Mutex
	pending  map[string]kindSet
	timer    *time.Timer
	stopped  bool
	inflight sync.WaitGroup

	drainMu sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDebouncer creates a debouncer that hands drained changes to apply.
func NewDebouncer(opts Options, apply ApplyFunc, logger *slog.Logger) *Debouncer {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		delay:      opts.Debounce,
		maxPending: opts.MaxPending,
		apply:      apply,
		logger:     logger,
		pending:    make(map[string]kindSet),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Add queues kind for path and restarts the window.
func (d *Debouncer) Add(path string, kind ChangeKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[path] = d.pending[path].with(kind)

	delay := d.delay
	if len(d.pending) >= d.maxPending {
		delay = 0
	}
	d.scheduleLocked(delay)
}

// Pending returns the number of queued paths.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// scheduleLocked cancels the armed timer, if any, and arms a new one.
func (d *Debouncer) scheduleLocked(delay time.Duration) {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	d.Flush(d.ctx)
}

// Flush drains the queue now and applies it. It blocks while another
// drain is running.
func (d *Debouncer) Flush(ctx context.Context) DrainStats {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()

	d.mu.Lock()
	batch := d.pending
	d.pending = make(map[string]kindSet)
	d.mu.Unlock()

	if len(batch) == 0 {
		return DrainStats{}
	}
	start := time.Now()

	paths := make([]string, 0, len(batch))
	for p := range batch {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	stats := DrainStats{Paths: len(paths)}
	for i, path := range paths {
		kinds := batch[path]
		for _, kind := range applyOrder {
			if !kinds.has(kind) {
				continue
			}
			if ctx.Err() != nil {
				d.logger.Debug("drain_cancelled", slog.Int("remaining_paths", len(paths)-i))
				return stats
			}
			stats.Changes++
			if err := d.apply(ctx, path, kind); err != nil {
				stats.Failures++
				d.logger.Warn("apply_change_failed",
					slog.String("path", path),
					slog.String("kind", kind.String()),
					slog.String("error", err.Error()))
			}
		}
	}
	stats.Duration = time.Since(start)

	d.logger.Debug("drain_complete",
		slog.Int("paths", stats.Paths),
		slog.Int("changes", stats.Changes),
		slog.Int("failures", stats.Failures),
		slog.Duration("duration", stats.Duration))
	if d.OnDrain != nil {
		d.OnDrain(stats)
	}
	return stats
}

// Stop cancels the timer, discards queued changes and waits for a running
// drain to finish. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = make(map[string]kindSet)
	d.mu.Unlock()

	d.cancel()
	d.inflight.Wait()
}
