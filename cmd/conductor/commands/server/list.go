package server

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/redact"
)

var (
	listJSON        bool
	listShowSecrets bool
	listEnabled     bool
)

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().BoolVar(&listShowSecrets, "show-secrets", false, "Reveal masked secrets in env values")
	listCmd.Flags().BoolVar(&listEnabled, "enabled", false, "Only list enabled servers")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List servers",
	Long: `List the servers in the master document.

Environment values that look like secrets are masked by default. Use
--show-secrets to reveal them. Values of secretEnvKeys live in the
secret vault and are never shown.`,
	Example: `  # List all servers
  conductor server list

  # Output as JSON
  conductor server list --json

  See Also:
    conductor server show  - Show one server
    conductor server add   - Add a server`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			servers, err := a.Store.Servers()
			if err != nil {
				return err
			}
			return writeList(cmd.OutOrStdout(), servers, listOptions{
				JSON:        listJSON,
				ShowSecrets: listShowSecrets,
				EnabledOnly: listEnabled,
			})
		})
	},
}

type listOptions struct {
	JSON        bool
	ShowSecrets bool
	EnabledOnly bool
}

// present returns a copy of s safe to print.
func present(s *mcp.Server, showSecrets bool) *mcp.Server {
	out := s.Clone()
	if !showSecrets {
		out.Env = redact.MaskSecrets(out.Env)
		out.URL = redact.MaskURL(out.URL)
	}
	return out
}

func writeList(w io.Writer, servers []*mcp.Server, opts listOptions) error {
	shown := make([]*mcp.Server, 0, len(servers))
	for _, s := range servers {
		if opts.EnabledOnly && !s.Enabled {
			continue
		}
		shown = append(shown, present(s, opts.ShowSecrets))
	}

	if opts.JSON {
		return app.WriteJSON(w, shown)
	}

	if len(shown) == 0 {
		fmt.Fprintln(w, "No servers configured. Add one with: conductor server add")
		return nil
	}

	bold := color.New(color.Bold)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		bold.Sprint("NAME"), bold.Sprint("TRANSPORT"), bold.Sprint("COMMAND/URL"), bold.Sprint("STATUS"), bold.Sprint("SOURCE"))
	for _, s := range shown {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			color.GreenString(s.Name),
			s.Transport,
			app.Truncate(endpoint(s), 50),
			status(s),
			s.Source)
	}
	return errors.Wrap(tw.Flush(), "flushing tabwriter")
}

func endpoint(s *mcp.Server) string {
	if s.IsRemote() {
		return s.URL
	}
	return strings.TrimSpace(s.Command + " " + strings.Join(s.Args, " "))
}

func status(s *mcp.Server) string {
	if s.Enabled {
		return color.GreenString("enabled")
	}
	return color.HiBlackString("disabled")
}
