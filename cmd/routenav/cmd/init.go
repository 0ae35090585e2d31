package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/routenav/configs"
	"github.com/Aman-CERP/routenav/internal/config"
	"github.com/Aman-CERP/routenav/internal/output"
)

// mcpConfigName is the project-scoped MCP client configuration.
const mcpConfigName = ".mcp.json"

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string            `json:"type,omitempty"`
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	var (
		force     bool
		mcpClient bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create .routenav.yaml for the project",
		Long: `Write a commented .routenav.yaml to the project root.

An existing file is left alone unless --force is given, in which case it
is backed up first. With --mcp a "routenav" server entry running
'routenav serve' is added to .mcp.json, keeping any other servers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := a.resolveRoot()
			if err != nil {
				return err
			}
			out := output.New(cmd.OutOrStdout())

			if err := writeProjectConfig(out, root, force); err != nil {
				return err
			}
			if mcpClient {
				if err := registerMCPServer(root); err != nil {
					return err
				}
				out.Successf("Registered routenav in %s", mcpConfigName)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .routenav.yaml (a backup is kept)")
	cmd.Flags().BoolVar(&mcpClient, "mcp", false, "Also register the MCP server in .mcp.json")

	return cmd
}

func writeProjectConfig(out *output.Writer, root string, force bool) error {
	path := filepath.Join(root, config.ProjectConfigName)
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warningf("%s already exists; use --force to overwrite", path)
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return err
		}
		out.Statusf("", "Backed up to %s", backup)
	}

	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	out.Successf("Created %s", path)
	return nil
}

// registerMCPServer adds or replaces the routenav entry in .mcp.json.
// Unknown top-level keys and other servers are preserved.
func registerMCPServer(root string) error {
	path := filepath.Join(root, mcpConfigName)

	doc := map[string]json.RawMessage{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", mcpConfigName, err)
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", mcpConfigName, err)
		}
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return fmt.Errorf("parse %s mcpServers: %w", mcpConfigName, err)
		}
	}

	entry, err := json.Marshal(MCPServerConfig{
		Type:    "stdio",
		Command: "routenav",
		Args:    []string{"serve", "--root", root},
	})
	if err != nil {
		return err
	}
	servers["routenav"] = entry

	if doc["mcpServers"], err = json.Marshal(servers); err != nil {
		return err
	}
	data, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if _, err := config.BackupFile(path); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
