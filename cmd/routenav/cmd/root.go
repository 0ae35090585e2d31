// Package cmd provides the CLI commands for routenav.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/routenav/internal/config"
	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/logging"
	"github.com/Aman-CERP/routenav/internal/navigator"
	"github.com/Aman-CERP/routenav/internal/profiling"
	"github.com/Aman-CERP/routenav/internal/store"
	"github.com/Aman-CERP/routenav/internal/telemetry"
	"github.com/Aman-CERP/routenav/pkg/version"
)

// app holds the persistent flags and per-run resources shared by the
// subcommands.
type app struct {
	root    string
	debug   bool
	profile profiling.Options

	profiler       *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the routenav CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "routenav",
		Short: "Find files and Spring HTTP endpoints in a project",
		Long: `routenav indexes the files of a project and the HTTP endpoints declared
with Spring mapping annotations, and answers ranked fuzzy queries over both.

The index is cached per project and kept current by 'routenav watch' or
'routenav serve'.`,
		Version:           version.Short(),
		SilenceUsage:      true,
		PersistentPreRunE: a.start,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.stop()
		},
	}
	cmd.SetVersionTemplate("routenav version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&a.root, "root", "C", "", "Project root (default: nearest .git or .routenav.yaml above the working directory)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to ~/.routenav/logs/ and stderr")
	cmd.PersistentFlags().StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Heap, "profile-mem", "", "Write heap profile to file")
	cmd.PersistentFlags().StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(
		newSearchCmd(a),
		newRefreshCmd(a),
		newStatusCmd(a),
		newClearCacheCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newInitCmd(a),
		newLogsCmd(),
		newVersionCmd(),
	)

	return cmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	cmd := NewRootCmd()
	cmd.SilenceErrors = true
	err := cmd.Execute()
	if err != nil && !isInterrupt(err) {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	var re *rerrors.RouteNavError
	if errors.As(err, &re) {
		_, _ = fmt.Fprint(w, rerrors.FormatForCLI(err))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

func (a *app) start(*cobra.Command, []string) error {
	if !a.profile.Enabled() {
		return nil
	}
	p, err := profiling.Start(a.profile)
	if err != nil {
		return err
	}
	a.profiler = p
	return nil
}

func (a *app) stop() error {
	err := a.profiler.Stop()
	a.profiler = nil
	if a.loggingCleanup != nil {
		a.loggingCleanup()
		a.loggingCleanup = nil
	}
	return err
}

// resolveRoot returns the absolute project root.
func (a *app) resolveRoot() (string, error) {
	if a.root == "" {
		return config.FindProjectRoot(".")
	}
	abs, err := filepath.Abs(a.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", rerrors.New(rerrors.ErrCodeInvalidPath, fmt.Sprintf("project root %s is not a directory", abs), err)
	}
	return abs, nil
}

// setupLogging installs the file logger. A log file that cannot be opened
// is not fatal: the command runs with logging discarded.
func (a *app) setupLogging(cfg logging.Config) *slog.Logger {
	if a.debug {
		cfg.Level = "debug"
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return logging.Discard()
	}
	a.loggingCleanup = cleanup
	slog.SetDefault(logger)
	return logger
}

// workspace is an opened project: configuration, cache and navigator.
type workspace struct {
	root    string
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.IndexStore
	nav     *navigator.Navigator
	metrics *telemetry.Metrics
	queries *telemetry.QueryMetrics
}

// openWorkspace loads configuration and opens the cache for the project.
// logCfg selects where records go; its level is taken from the config
// unless --debug is set.
func (a *app) openWorkspace(logCfg logging.Config) (*workspace, error) {
	root, err := a.resolveRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, rerrors.ConfigError(err.Error(), err)
	}

	logCfg.Level = cfg.Server.LogLevel
	logger := a.setupLogging(logCfg)

	st, err := store.Open(store.Options{
		Root:    root,
		Path:    cfg.CachePath(root),
		Backend: cfg.Cache.Backend,
		Timeout: cfg.Cache.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	ws := &workspace{
		root:    root,
		cfg:     cfg,
		logger:  logger,
		store:   st,
		metrics: telemetry.NewMetrics(),
		queries: telemetry.NewQueryMetrics(),
	}
	ws.nav, err = navigator.New(navigator.Options{
		Root:         root,
		Config:       cfg,
		Store:        st,
		Metrics:      ws.metrics,
		QueryMetrics: ws.queries,
		Logger:       logger,
	})
	if err != nil {
		_ = st.Close(context.Background())
		return nil, err
	}

	logger.Debug("workspace_opened",
		slog.String("root", root),
		slog.String("cache", cfg.CachePath(root)),
		slog.String("backend", cfg.Cache.Backend))
	return ws, nil
}

// Close flushes the snapshots and closes the cache.
func (w *workspace) Close() error {
	if err := w.store.Close(context.Background()); err != nil {
		w.logger.Warn("cache_close_failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// closeWorkspace closes ws and folds a close error into err.
func closeWorkspace(ws *workspace, err *error) {
	if cerr := ws.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

// cliLogConfig is the logging setup for interactive commands: file only
// so progress output on the terminal stays clean, plus stderr with --debug.
func (a *app) cliLogConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.WriteToStderr = a.debug
	return cfg
}

// isInterrupt reports whether err only reflects the user stopping the
// command.
func isInterrupt(err error) bool {
	return errors.Is(err, context.Canceled)
}
