package stack

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
)

func init() {
	Cmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a saved stack",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			if err := a.Store.DeleteStack(cmd.Context(), args[0]); err != nil {
				var nf *errors.NotFoundError
				if errors.As(err, &nf) {
					return errors.NewUserError(err, "run: conductor stack list")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted stack %s\n", args[0])
			return nil
		})
	},
}
