package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
)

func init() {
	Cmd.AddCommand(enableCmd, disableCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable <name|id>",
	Short: "Enable a server",
	Long:  `Enable a server so the next sync writes it to clients.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name|id>",
	Short: "Disable a server",
	Long: `Disable a server. Clients that support a disabled flag keep the entry
marked disabled; others drop it on the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runToggle(cmd, args[0], false)
	},
}

func runToggle(cmd *cobra.Command, ref string, enabled bool) error {
	return app.Run(func(a *app.App) error {
		srv, err := a.Store.ToggleServer(cmd.Context(), ref, enabled)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.NewUserError(err, "run: conductor server list")
			}
			return err
		}
		state := "Disabled"
		if enabled {
			state = "Enabled"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s server %s\n", state, srv.Name)
		return nil
	})
}
