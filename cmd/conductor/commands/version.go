package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	buildinfo "github.com/thoreinstein/conductor/cmd"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version, commit, and build date of conductor.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), buildinfo.Info())
	},
}
