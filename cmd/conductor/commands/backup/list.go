package backup

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/errors"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list [target...]",
	Aliases: []string{"ls"},
	Short:   "List available backups",
	Example: `  conductor backup list
  conductor backup list master cursor --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			targets, err := resolveTargets(a, args)
			if err != nil {
				return err
			}
			groups, err := collect(a.Backups, targets)
			if err != nil {
				return err
			}
			if listJSON {
				return app.WriteJSON(cmd.OutOrStdout(), groups)
			}
			return writeList(cmd.OutOrStdout(), groups)
		})
	},
}

type group struct {
	target
	Backups []backup.Info `json:"backups"`
}

// collect lists backups per target, skipping targets that have none.
func collect(m *backup.Manager, targets []target) ([]group, error) {
	out := make([]group, 0, len(targets))
	for _, t := range targets {
		infos, err := m.List(t.Path)
		if errors.Is(err, backup.ErrNoBackupsFound) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "listing backups for %s", t.ID)
		}
		out = append(out, group{target: t, Backups: infos})
	}
	return out, nil
}

func writeList(w io.Writer, groups []group) error {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No backups found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tCREATED\tSIZE\tFILE")
	for _, g := range groups {
		for _, b := range g.Backups {
			created := "-"
			if !b.CreatedAt.IsZero() {
				created = fmt.Sprintf("%s (%s)", b.CreatedAt.Local().Format(time.DateTime), humanize.Time(b.CreatedAt))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID, created, humanize.IBytes(uint64(b.Size)), b.Path)
		}
	}
	return tw.Flush()
}
