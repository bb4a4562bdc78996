// Package backup provides CLI commands for managing configuration backups.
package backup

import (
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
)

// masterTarget names conductor's own config.json on the command line.
const masterTarget = "master"

// Cmd is the root backup command.
var Cmd = &cobra.Command{
	Use:     "backup",
	Aliases: []string{"backups"},
	Short:   "Manage configuration backups",
	Long: `Manage the backups conductor keeps of every file it writes.

Before a client's config file or conductor's own config.json is replaced,
the previous content is copied next to it as <name>_<timestamp>.<ext>.bak.
The newest backups are kept; older ones are pruned (backupRetention in
conductor's settings, 30 by default).

Targets are client IDs (see "conductor client list") or "master" for
conductor's own config.json.`,
	Example: `  # List all backups
  conductor backup list

  # List backups for one client
  conductor backup list cursor

  # Restore a client's newest backup
  conductor backup restore cursor --latest

  # Remove old backups, keeping the 3 most recent
  conductor backup prune --keep 3

  See Also:
    conductor backup list    - List available backups
    conductor backup restore - Restore from a backup
    conductor backup create  - Manually create a backup
    conductor backup prune   - Remove old backups`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// target is a file conductor writes and backs up.
type target struct {
	ID   string `json:"target"`
	Path string `json:"path"`
}

// resolveTargets maps names to files. No names means the master document
// plus every registered client with a resolvable config path.
func resolveTargets(a *app.App, names []string) ([]target, error) {
	if len(names) == 0 {
		out := []target{{ID: masterTarget, Path: a.Store.Path()}}
		for _, c := range a.Clients.All() {
			if p := c.ConfigPath(); p != "" {
				out = append(out, target{ID: c.ID, Path: p})
			}
		}
		return out, nil
	}

	out := make([]target, 0, len(names))
	for _, name := range names {
		if name == masterTarget {
			out = append(out, target{ID: masterTarget, Path: a.Store.Path()})
			continue
		}
		c, err := a.Clients.Get(name)
		if err != nil {
			return nil, errors.NewUserError(err, `use a client ID from "conductor client list --all" or "master"`)
		}
		p := c.ConfigPath()
		if p == "" {
			return nil, errors.NewUserError(errors.Newf("%s has no config path on this system", name), "")
		}
		out = append(out, target{ID: c.ID, Path: p})
	}
	return out, nil
}
