package backup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/errors"
)

var pruneKeep int

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 0,
		"backups to keep per file (default: backupRetention setting)")
	Cmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune [target...]",
	Short: "Remove old backups",
	Example: `  conductor backup prune
  conductor backup prune cursor --keep 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			keep := pruneKeep
			if !cmd.Flags().Changed("keep") {
				settings, err := a.Store.Settings()
				if err != nil {
					return err
				}
				keep = settings.BackupRetention
			}
			if keep < 1 {
				return errors.NewUserError(errors.Newf("--keep must be at least 1, got %d", keep), "")
			}

			targets, err := resolveTargets(a, args)
			if err != nil {
				return err
			}
			removed, err := prune(a.Backups, targets, keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d backup(s), keeping up to %d per file\n", removed, keep)
			return nil
		})
	},
}

// prune trims every target to keep backups and returns how many were
// removed.
func prune(m *backup.Manager, targets []target, keep int) (int, error) {
	var removed int
	for _, t := range targets {
		before, err := m.List(t.Path)
		if errors.Is(err, backup.ErrNoBackupsFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if len(before) <= keep {
			continue
		}
		if err := m.Prune(t.Path, keep); err != nil {
			return removed, errors.Wrapf(err, "pruning %s", t.ID)
		}
		removed += len(before) - keep
	}
	return removed, nil
}
