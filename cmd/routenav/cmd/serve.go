package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/routenav/internal/logging"
	"github.com/Aman-CERP/routenav/internal/mcp"
)

func newServeCmd(a *app) *cobra.Command {
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over MCP on stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the search,
refresh, apply_change, counts and status tools.

stdout carries only protocol messages; logs go to ~/.routenav/logs/.
The index is kept current by a background watcher unless --no-watch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, err := a.openWorkspace(logging.ServerConfig("info"))
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			srv, err := mcp.NewServer(ws.nav, ws.logger)
			if err != nil {
				return err
			}
			srv.SetMetrics(ws.queries)

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)
			if !noWatch {
				if err := ws.startBackground(gctx, g, 0); err != nil {
					return err
				}
			}
			g.Go(func() error {
				// the client closing stdin ends the session and everything else
				defer cancel()
				return srv.Serve(gctx)
			})

			err = g.Wait()
			ws.logger.Info("serve_stopped", slog.Any("error", err))
			if isInterrupt(err) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch files; use the refresh and apply_change tools instead")

	return cmd
}
