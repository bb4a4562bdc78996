// Package auth provides the auth command group for OAuth-protected servers.
package auth

import (
	"net/url"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/oauth"
)

// providerEnv names the env entry a server can use to pick its provider.
const providerEnv = "OAUTH_PROVIDER"

// defaultProvider is used when nothing else names one.
const defaultProvider = "github"

// Cmd is the auth command that groups all auth subcommands.
var Cmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize MCP servers with OAuth providers",
	Long: `Run OAuth authorization for servers that need a bearer token.

Tokens are kept in the local secret store, never in config.json or in any
client's file. During sync a remote server's token is injected through
mcp-remote's --header argument and refreshed when it is about to expire.

Built-in providers: github, google, notion, slack, linear. Any other
provider name is treated as an issuer host.`,
	Example: `  # Authorize a server (opens the browser)
  conductor auth login linear --provider linear

  # Check every server
  conductor auth status

  See Also:
    conductor auth login   - Authorize a server
    conductor auth status  - Show authorization state
    conductor auth revoke  - Forget a server's tokens`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// providerFor picks the provider for srv. An explicit name wins, then the
// server's OAUTH_PROVIDER env entry, then a tag naming a built-in
// provider, then the host of a remote server's URL.
func providerFor(srv *mcp.Server, explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(srv.Env[providerEnv]); p != "" {
		return p
	}
	known := oauth.Known()
	for _, tag := range srv.Tags {
		if slices.Contains(known, strings.ToLower(tag)) {
			return strings.ToLower(tag)
		}
	}
	if srv.IsRemote() {
		if u, err := url.Parse(srv.URL); err == nil && u.Host != "" {
			for _, p := range known {
				if strings.Contains(u.Hostname(), p) {
					return p
				}
			}
		}
	}
	return defaultProvider
}
