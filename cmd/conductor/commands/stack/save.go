package stack

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
)

func init() {
	Cmd.AddCommand(saveCmd)
}

var saveCmd = &cobra.Command{
	Use:   "save <file|url|->",
	Short: "Keep a stack in conductor's config",
	Long: `Store a stack document in conductor's config so it can be imported
later by ID without the original file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			s, data, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			saved, err := a.Store.SaveStack(cmd.Context(), json.RawMessage(data))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved stack %s as %s\n", s.Name, saved.ID)
			return nil
		})
	},
}
