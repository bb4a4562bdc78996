package stack

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/stack"
)

var importJSON bool

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file|url|saved-id|->",
	Short: "Add a stack's servers",
	Long: `Add every server in a stack to conductor's list. Servers get new IDs,
and a name already in use is suffixed " (2)", " (3)" and so on. Secret
values are never part of a stack; set them afterwards with
"conductor secret set".

The source may be a file, an http(s) URL, the ID of a saved stack, or "-"
for stdin. Nothing is written to clients until the next sync.`,
	Example: `  conductor stack import team.json
  conductor stack import https://example.com/stacks/team.json
  cat team.json | conductor stack import -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			s, err := resolve(cmd, a, args[0])
			if err != nil {
				return err
			}
			added, err := stack.Import(cmd.Context(), a.Store, s)
			if err != nil {
				return errors.NewUserError(err, "fix the stack and import again")
			}
			if importJSON {
				return app.WriteJSON(cmd.OutOrStdout(), added)
			}
			writeImported(cmd.OutOrStdout(), s, added)
			return nil
		})
	},
}

// resolve loads a stack from a saved stack ID or any source load accepts.
func resolve(cmd *cobra.Command, a *app.App, src string) (*stack.Stack, error) {
	if src != "-" && !isURL(src) {
		saved, err := a.Store.Stacks()
		if err != nil {
			return nil, err
		}
		for _, sv := range saved {
			if sv.ID == src {
				return stack.Parse(sv.JSON)
			}
		}
	}
	s, _, err := load(cmd, src)
	return s, err
}

func writeImported(w io.Writer, s *stack.Stack, added []*mcp.Server) {
	fmt.Fprintf(w, "Imported %d server(s) from stack %s\n", len(added), s.Name)
	for _, srv := range added {
		fmt.Fprintf(w, "  %s\n", srv.Name)
		for _, k := range srv.SecretEnvKeys {
			fmt.Fprintf(w, "    needs secret %s: conductor secret set %q %s\n", k, srv.Name, k)
		}
	}
}
