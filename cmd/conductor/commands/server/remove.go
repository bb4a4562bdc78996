package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/cli/prompt"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/secrets"
)

var removeYes bool

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "do not ask for confirmation")
	Cmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <name|id>",
	Aliases: []string{"rm"},
	Short:   "Remove a server",
	Long: `Remove a server from the master document and delete its secrets and
OAuth tokens from the vault. Client files keep the entry until the next
sync removes it.`,
	Example: `  conductor server remove github
  conductor server remove github --yes && conductor sync --all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			srv, err := a.Store.Server(args[0])
			if err != nil {
				return errors.NewUserError(err, "run: conductor server list")
			}

			if !removeYes {
				ok, err := prompt.NewWithIO(cmd.InOrStdin(), cmd.OutOrStdout()).
					Confirm(fmt.Sprintf("Remove server %s?", srv.Name), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if _, err := a.Store.DeleteServer(cmd.Context(), srv.ID); err != nil {
				return err
			}
			n, err := secrets.DeletePrefix(a.Vault, srv.ID+":")
			if err != nil {
				return errors.Wrap(err, "deleting secrets")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed server %s", srv.Name)
			if n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " and %d secret(s)", n)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		})
	},
}
