package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/routenav/internal/ui"
)

func newStatusCmd(a *app) *cobra.Command {
	var (
		jsonOut bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index size and cache state",
		Long: `Show how many files and endpoints the cached index holds and whether
each snapshot is still fresh. Nothing is scanned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ws, err := a.openWorkspace(a.cliLogConfig())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			info := ws.statusInfo(cmd)
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
			if jsonOut {
				return r.RenderJSON(info)
			}
			return r.Render(info)
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output status as JSON")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}

// statusInfo reports the cached snapshots without triggering a scan.
func (w *workspace) statusInfo(cmd *cobra.Command) ui.StatusInfo {
	st := w.nav.Status(cmd.Context())
	info := ui.StatusInfo{
		Root:            st.Root,
		Files:           st.Files,
		Routes:          st.Routes,
		FileCacheValid:  st.FileCacheValid,
		RouteCacheValid: st.RouteCacheValid,
		FileCacheScan:   st.FileCacheScan,
		RouteCacheScan:  st.RouteCacheScan,
	}
	if !st.Loaded {
		info.Files = w.store.Files.Len()
		info.Routes = w.store.Routes.Len()
	}
	if w.cfg.Cache.Backend != "memory" {
		info.CachePath = w.cfg.CachePath(w.root)
		if fi, err := os.Stat(info.CachePath); err == nil {
			info.CacheBytes = fi.Size()
		}
	}
	return info
}
