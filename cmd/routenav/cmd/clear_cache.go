package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/routenav/internal/output"
)

func newClearCacheCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Drop the cached file and route snapshots",
		Long: `Drop both cached snapshots of the project. The next search or refresh
rescans from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			ws, err := a.openWorkspace(a.cliLogConfig())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws, &err)

			ws.nav.ClearCache(cmd.Context())
			output.New(cmd.OutOrStdout()).Successf("Cache cleared for %s", ws.root)
			return nil
		},
	}
}
