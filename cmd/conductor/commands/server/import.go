package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
)

var importJSON bool

func init() {
	importCmd.Flags().BoolVar(&importJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <client>",
	Short: "Copy a client's servers into conductor",
	Long: `Read the MCP servers configured in a client's file and add them to the
master document. A server whose name and command match an existing one
is skipped; a name taken by a different server gets a " (n)" suffix.`,
	Example: `  conductor server import claude-desktop
  conductor server import cursor --json

  See Also:
    conductor client list  - Show client IDs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			res, err := a.Syncer.Import(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					return errors.NewUserError(err, "run: conductor client list")
				}
				return err
			}
			if importJSON {
				return app.WriteJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			for _, s := range res.Servers {
				fmt.Fprintf(w, "  + %s\n", s.Name)
			}
			fmt.Fprintf(w, "Imported %d server(s) from %s, skipped %d\n", res.Added, args[0], res.Skipped)
			return nil
		})
	},
}
