package cmd

import (
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rerrors "github.com/Aman-CERP/routenav/internal/errors"
	"github.com/Aman-CERP/routenav/internal/output"
	"github.com/Aman-CERP/routenav/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	mode    string
	limit   int
	jsonOut bool
}

// searchResponse is the --json output of search.
type searchResponse struct {
	Query     string          `json:"query"`
	Mode      search.Mode     `json:"mode"`
	Results   []search.Result `json:"results"`
	Truncated bool            `json:"truncated,omitempty"`
}

func newSearchCmd(a *app) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search files and HTTP endpoints",
		Long: `Search the project's files and Spring HTTP endpoints.

Route queries may use * as a wildcard for any run of characters.
The cached index is used when fresh; otherwise the project is scanned first.`,
		Example: `  routenav search OrderController
  routenav search "/api/*/orders" --mode route
  routenav search "get users" -n 5 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "mixed", "What to search: file, route or mixed")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of results (0 for no limit)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output results as JSON")

	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, query string, opts searchOptions) (err error) {
	mode, err := search.ParseMode(opts.mode)
	if err != nil {
		return rerrors.ValidationError(err.Error(), err)
	}
	if opts.limit < 0 {
		return rerrors.ValidationError("--limit must not be negative", nil)
	}

	ws, err := a.openWorkspace(a.cliLogConfig())
	if err != nil {
		return err
	}
	defer closeWorkspace(ws, &err)

	start := time.Now()
	results, err := ws.nav.Search(cmd.Context(), query, mode)
	if err != nil {
		return err
	}
	truncated := false
	if opts.limit > 0 && len(results) > opts.limit {
		results, truncated = results[:opts.limit], true
	}
	ws.logger.Info("cli_search",
		slog.String("query", query),
		slog.String("mode", string(mode)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	out := output.New(cmd.OutOrStdout())
	if opts.jsonOut {
		if results == nil {
			results = []search.Result{}
		}
		return out.JSON(searchResponse{Query: query, Mode: mode, Results: results, Truncated: truncated})
	}
	out.Results(query, results)
	if truncated {
		out.Newline()
		out.Statusf("", "showing the first %d results; use --limit to see more", opts.limit)
	}
	return nil
}
