package navigator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Aman-CERP/routenav/internal/watcher"
)

// drainTimeout bounds the final drain when watching stops.
const drainTimeout = 5 * time.Second

// WatchOptions derives watcher options from the loaded configuration.
func (n *Navigator) WatchOptions() watcher.Options {
	return watcher.Options{
		Debounce:   n.cfg.Watch.Debounce,
		MaxPending: n.cfg.Watch.MaxPending,
	}.WithDefaults()
}

// Watch keeps the index current until ctx is cancelled. Filesystem events
// are debounced and applied through ApplyChange; changes still queued at
// shutdown are drained before Watch returns.
func (n *Navigator) Watch(ctx context.Context, opts watcher.Options) error {
	if err := n.EnsureLoaded(ctx); err != nil {
		return err
	}

	d := watcher.NewDebouncer(opts, n.ApplyChange, n.logger)
	d.OnDrain = func(s watcher.DrainStats) {
		n.metrics.ObserveDrain(s.Duration)
	}
	defer d.Stop()

	w, err := watcher.New(n.root, d, n.IsExcluded, opts, n.logger)
	if err != nil {
		return err
	}

	err = w.Start(ctx)

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
	defer cancel()
	if stats := d.Flush(flushCtx); stats.Paths > 0 {
		n.logger.Info("final_drain", slog.Int("paths", stats.Paths))
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
