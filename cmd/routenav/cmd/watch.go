package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/routenav/internal/output"
)

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index current while files change",
		Long: `Load the index and keep it current by applying file changes as they
happen. Bursts of events are coalesced and applied after a quiet period.

When watch.full_refresh_schedule is set a full rescan also runs on that
schedule; when server.metrics_addr is set Prometheus metrics are served
there. Stop with Ctrl-C; queued changes are applied before exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, err := a.openWorkspace(a.cliLogConfig())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			if err := ws.nav.EnsureLoaded(ctx); err != nil {
				return err
			}
			c := ws.nav.Counts()
			out := output.New(cmd.OutOrStdout())
			out.Successf("Watching %s (%d files, %d routes)", ws.root, c.Files, c.Routes)

			g, gctx := errgroup.WithContext(ctx)
			if err := ws.startBackground(gctx, g, debounce); err != nil {
				return err
			}
			if err := g.Wait(); err != nil && !isInterrupt(err) {
				return err
			}
			c = ws.nav.Counts()
			out.Statusf("", "Stopped (%d files, %d routes)", c.Files, c.Routes)
			return nil
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 0, "Quiet period before queued changes are applied (default from config)")

	return cmd
}

// startBackground starts the watcher, the optional scheduled full refresh
// and the optional metrics endpoint on g. All stop when ctx is done.
func (w *workspace) startBackground(ctx context.Context, g *errgroup.Group, debounce time.Duration) error {
	opts := w.nav.WatchOptions()
	if debounce > 0 {
		opts.Debounce = debounce
	}

	// an invalid schedule fails before anything is started
	if spec := w.cfg.Watch.FullRefreshSchedule; spec != "" {
		stopSchedule, err := w.nav.ScheduleRefresh(ctx, spec)
		if err != nil {
			return err
		}
		g.Go(func() error {
			<-ctx.Done()
			stopSchedule()
			return nil
		})
	}

	g.Go(func() error {
		return w.nav.Watch(ctx, opts)
	})

	if addr := w.cfg.Server.MetricsAddr; addr != "" {
		g.Go(func() error {
			if err := w.metrics.Serve(ctx, addr, w.logger); err != nil {
				// metrics are optional; keep watching
				w.logger.Warn("metrics_server_failed",
					slog.String("addr", addr),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	return nil
}
