// Package server provides the server command group for managing the
// canonical MCP server list.
package server

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/internal/errors"
)

// Cmd is the server command that groups all server subcommands.
var Cmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"servers", "mcp"},
	Short:   "Manage the canonical MCP server list",
	Long: `Manage the MCP servers conductor keeps in ~/.conductor/config.json.

Changes here do not touch any client until you run "conductor sync".
Servers are addressed by name or ID.`,
	Example: `  # Add a local server
  conductor server add github -- npx -y @modelcontextprotocol/server-github

  # Add a remote server
  conductor server add linear --url https://mcp.linear.app/sse

  # List servers
  conductor server list

  See Also:
    conductor server add      - Add a server
    conductor server update   - Change a server
    conductor server remove   - Remove a server
    conductor server enable   - Enable a server
    conductor server disable  - Disable a server
    conductor server import   - Copy a client's servers into conductor`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// parseKeyValueSlice parses KEY=VALUE entries into a map.
func parseKeyValueSlice(entries []string, flagName string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	result := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, found := strings.Cut(entry, "=")
		if !found || key == "" {
			return nil, errors.NewUserError(
				errors.Newf("invalid %s format %q: expected KEY=VALUE", flagName, entry),
				"use "+flagName+" NAME=value")
		}
		result[key] = value
	}
	return result, nil
}
