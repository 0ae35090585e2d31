package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/logging"
	"github.com/Aman-CERP/routenav/internal/ui"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View routenav logs",
		Long: `Show the last lines of the routenav log, or follow it as the watcher
and MCP server write to it.

Examples:
  routenav logs                    # last 50 lines
  routenav logs -f                 # follow new entries
  routenav logs --level warn       # warnings and errors only
  routenav logs --filter refresh   # lines matching a regex`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level to show (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only show lines matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Log file to read (default ~/.routenav/logs/routenav.log)")

	return cmd
}

func runLogs(ctx context.Context, out, errOut io.Writer, opts logsOptions) error {
	switch strings.ToLower(opts.level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return rerrors.ValidationError(fmt.Sprintf("invalid --level %q (want debug, info, warn or error)", opts.level), nil)
	}
	if opts.lines < 0 {
		return rerrors.ValidationError("--lines must not be negative", nil)
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		p, err := regexp.Compile(opts.filter)
		if err != nil {
			return rerrors.ValidationError("invalid --filter regex", err).WithDetail("filter", opts.filter)
		}
		pattern = p
	}

	path := opts.logFile
	if path == "" {
		path = logging.DefaultLogPath()
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rerrors.New(rerrors.ErrCodeFileNotFound, "no log file at "+path, err).
				WithSuggestion("Logs are written once routenav has run; use --debug for more detail")
		}
		return rerrors.TransientIOError(path, err)
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: opts.noColor || ui.DetectNoColor() || !ui.IsTTY(out),
	}, out)

	_, _ = fmt.Fprintf(errOut, "Log file: %s\n", path)
	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return rerrors.TransientIOError(path, err)
		}
		viewer.Print(entries)
		return nil
	}

	_, _ = fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, entries) }()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(out, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(errOut, "Stopped.")
			return nil
		}
	}
}
