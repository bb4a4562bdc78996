package backup

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/cli/prompt"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/store"
)

var restoreLatest bool

func init() {
	restoreCmd.Flags().BoolVar(&restoreLatest, "latest", false,
		"restore the newest backup without asking")
	Cmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore <target> [backup-file]",
	Short: "Restore from a backup",
	Long: `Replace a client's config file, or conductor's own config.json, with
one of its backups. The current content is itself backed up first, so a
restore can be undone with another restore.

With no backup file and no --latest, the available backups are listed and
one is picked interactively. A backup file may be given by full path or by
file name.`,
	Example: `  conductor backup restore cursor --latest
  conductor backup restore master config_20260301_120000.json.bak`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			targets, err := resolveTargets(a, args[:1])
			if err != nil {
				return err
			}
			t := targets[0]

			var file string
			if len(args) == 2 {
				file = args[1]
				if filepath.Base(file) == file {
					file = filepath.Join(filepath.Dir(t.Path), file)
				}
			} else if !restoreLatest {
				file, err = pick(cmd, a.Backups, t)
				if err != nil {
					return err
				}
			}

			info, err := a.Backups.Restore(cmd.Context(), t.Path, file)
			if err != nil {
				if errors.Is(err, backup.ErrNoBackupsFound) {
					return errors.NewUserError(err, "run: conductor backup list "+t.ID)
				}
				if errors.Is(err, backup.ErrForeignBackup) || errors.Is(err, backup.ErrBackupCorrupted) {
					return errors.NewUserError(err, "pick another backup")
				}
				return err
			}

			clientID := t.ID
			if clientID == masterTarget {
				clientID = ""
			}
			_ = a.Store.LogActivity(cmd.Context(), store.ActivityImport,
				fmt.Sprintf("Restored %s from %s", t.ID, filepath.Base(info.Path)), clientID, "")
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", t.Path, filepath.Base(info.Path))
			return nil
		})
	},
}

// pick asks which backup of t to restore.
func pick(cmd *cobra.Command, m *backup.Manager, t target) (string, error) {
	infos, err := m.List(t.Path)
	if err != nil {
		if errors.Is(err, backup.ErrNoBackupsFound) {
			return "", errors.NewUserError(err, "nothing to restore for "+t.ID)
		}
		return "", err
	}

	options := make([]prompt.Option, len(infos))
	for i, b := range infos {
		label := filepath.Base(b.Path)
		if !b.CreatedAt.IsZero() {
			label = fmt.Sprintf("%s (%s)", b.CreatedAt.Local().Format(time.DateTime), humanize.Time(b.CreatedAt))
		}
		options[i] = prompt.Option{Label: label, Detail: humanize.IBytes(uint64(b.Size))}
	}

	p := prompt.NewWithIO(cmd.InOrStdin(), cmd.OutOrStdout())
	idx, err := p.Select(fmt.Sprintf("Restore which backup of %s?", t.ID), options)
	if err != nil {
		if errors.Is(err, prompt.ErrSelectionCancelled) {
			return "", errors.NewExitError(nil, errors.ExitUser)
		}
		return "", errors.NewUserError(err, "")
	}
	return infos[idx].Path, nil
}
