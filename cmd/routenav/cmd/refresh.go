package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/routenav/internal/output"
	"github.com/Aman-CERP/routenav/internal/ui"
)

// refreshResponse is the --json output of refresh.
type refreshResponse struct {
	Files      int   `json:"files"`
	Routes     int   `json:"routes"`
	Sources    int   `json:"sources"`
	Failures   int   `json:"failures"`
	DurationMs int64 `json:"duration_ms"`
}

func newRefreshCmd(a *app) *cobra.Command {
	var (
		plain   bool
		noColor bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Rescan the project and rebuild the index",
		Long: `Rescan every file of the project, re-extract all HTTP endpoints and
replace the cached snapshots.

An interactive terminal gets a live progress view; pipes and CI get
plain progress lines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ws, err := a.openWorkspace(a.cliLogConfig())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			var renderer ui.Renderer
			if !jsonOut {
				renderer = ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
					ui.WithForcePlain(plain),
					ui.WithNoColor(noColor || ui.DetectNoColor()),
					ui.WithRoot(ws.root)))
				if err := renderer.Start(cmd.Context()); err != nil {
					return err
				}
			}

			stats, err := ws.nav.Refresh(cmd.Context(), renderer)
			if renderer != nil {
				if stopErr := renderer.Stop(); err == nil {
					err = stopErr
				}
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return output.New(cmd.OutOrStdout()).JSON(refreshResponse{
					Files:      stats.Files,
					Routes:     stats.Routes,
					Sources:    stats.Sources,
					Failures:   stats.Failures,
					DurationMs: stats.Duration.Milliseconds(),
				})
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain progress lines even on a terminal")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the refresh summary as JSON")

	return cmd
}
