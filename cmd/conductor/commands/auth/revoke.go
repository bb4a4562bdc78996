package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/store"
)

func init() {
	Cmd.AddCommand(revokeCmd)
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <server>",
	Short: "Forget a server's tokens and client credentials",
	Long: `Delete the stored token bundle and client credentials for a server.
The provider is not contacted; revoke the grant in the provider's console
if it must stop working elsewhere.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			srv, err := a.Store.Server(args[0])
			if err != nil {
				return errors.NewUserError(err, "run: conductor server list")
			}
			if err := a.Tokens.Revoke(srv.ID); err != nil {
				return err
			}
			_ = a.Store.LogActivity(cmd.Context(), store.ActivityAuth,
				"Revoked tokens for "+srv.Name, "", srv.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked tokens for %s\n", srv.Name)
			return nil
		})
	},
}
