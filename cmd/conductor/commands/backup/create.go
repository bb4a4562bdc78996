package backup

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

func init() {
	Cmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create [target...]",
	Short: "Manually create a backup",
	Long: `Back up the current content of the given targets, or of every existing
target when none are named. Targets whose file does not exist are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			targets, err := resolveTargets(a, args)
			if err != nil {
				return err
			}
			for _, t := range targets {
				ok, err := create(cmd, a.Backups, t)
				if err != nil {
					return err
				}
				if ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Backed up %s (%s)\n", t.ID, t.Path)
				} else if len(args) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s: %s does not exist\n", t.ID, t.Path)
				}
			}
			return nil
		})
	},
}

// create backs up t by rewriting its current content through the
// manager, which copies the old content aside first.
func create(cmd *cobra.Command, m *backup.Manager, t target) (bool, error) {
	data, ok, err := fileutil.ReadIfExists(t.Path)
	if err != nil {
		return false, errors.Wrapf(err, "reading %s", t.Path)
	}
	if !ok {
		return false, nil
	}
	perm := os.FileMode(0o600)
	if st, err := os.Stat(t.Path); err == nil {
		perm = st.Mode().Perm()
	}
	if err := m.Write(cmd.Context(), t.Path, data, perm); err != nil {
		return false, err
	}
	return true, nil
}
