package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/store"
)

var (
	activityLimit int
	activityJSON  bool
	activityType  string
)

func init() {
	activityCmd.Flags().IntVarP(&activityLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	activityCmd.Flags().BoolVar(&activityJSON, "json", false, "Output in JSON format")
	activityCmd.Flags().StringVar(&activityType, "type", "", "only show entries of this type (sync, add, update, delete, import, error, auth, stack)")
	activityCmd.AddCommand(activityClearCmd)
	rootCmd.AddCommand(activityCmd)
}

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"log"},
	Short:   "Show recent changes and syncs",
	Long: `Show conductor's activity log, newest first. The log keeps the last
200 entries.`,
	Example: `  conductor activity
  conductor activity --type error -n 5
  conductor activity clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			entries, err := a.Store.Activity()
			if err != nil {
				return err
			}
			entries = filterActivity(entries, activityType, activityLimit)
			if activityJSON {
				return app.WriteJSON(cmd.OutOrStdout(), entries)
			}
			return writeActivity(cmd.OutOrStdout(), entries, time.Now())
		})
	},
}

var activityClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the activity log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			if err := a.Store.ClearActivity(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Activity log cleared")
			return nil
		})
	},
}

// filterActivity keeps entries of kind (all when empty), at most limit of
// them (all when limit <= 0).
func filterActivity(entries []store.ActivityEntry, kind string, limit int) []store.ActivityEntry {
	out := make([]store.ActivityEntry, 0, len(entries))
	for _, e := range entries {
		if kind != "" && e.Type != kind {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func writeActivity(w io.Writer, entries []store.ActivityEntry, now time.Time) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No activity.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tDESCRIPTION")
	for _, e := range entries {
		kind := e.Type
		switch e.Type {
		case store.ActivityError:
			kind = color.RedString(kind)
		case store.ActivitySync:
			kind = color.GreenString(kind)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", humanize.RelTime(e.Timestamp, now, "ago", "from now"), kind, app.Truncate(e.Description, 80))
	}
	return tw.Flush()
}
