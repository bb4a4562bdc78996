package auth

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/oauth"
)

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status [server...]",
	Short: "Show authorization state",
	Long: `Show whether each server holds a usable token. Tokens close to expiry
are refreshed while checking. With no arguments every remote server is
listed, along with any local server that has a stored token.`,
	Example: `  conductor auth status
  conductor auth status linear --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			servers, err := statusTargets(a, args)
			if err != nil {
				return err
			}
			statuses := make([]namedStatus, 0, len(servers))
			for _, srv := range servers {
				st := a.Tokens.Status(cmd.Context(), srv.ID, srv.Env)
				if len(args) == 0 && srv.IsLocal() && !st.Authenticated && st.Error == "" {
					continue
				}
				statuses = append(statuses, namedStatus{Name: srv.Name, Status: st})
			}
			if statusJSON {
				return app.WriteJSON(cmd.OutOrStdout(), statuses)
			}
			return writeStatus(cmd.OutOrStdout(), statuses)
		})
	},
}

type namedStatus struct {
	Name string `json:"name"`
	oauth.Status
}

func statusTargets(a *app.App, refs []string) ([]*mcp.Server, error) {
	if len(refs) == 0 {
		return a.Store.Servers()
	}
	out := make([]*mcp.Server, 0, len(refs))
	for _, ref := range refs {
		srv, err := a.Store.Server(ref)
		if err != nil {
			return nil, errors.NewUserError(err, "run: conductor server list")
		}
		out = append(out, srv)
	}
	return out, nil
}

func writeStatus(w io.Writer, statuses []namedStatus) error {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No servers need authorization.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE\tPROVIDER\tEXPIRES")
	for _, s := range statuses {
		state := color.HiBlackString("not authorized")
		switch {
		case s.Error != "":
			state = color.RedString("error: %s", app.Truncate(s.Error, 40))
		case s.Authenticated:
			state = color.GreenString("authorized")
		}
		expires := "-"
		if s.ExpiresAt != nil {
			expires = s.ExpiresAt.Local().Format(time.DateTime)
		}
		provider := s.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, state, provider, expires)
	}
	return tw.Flush()
}
