package stack

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/stack"
	"github.com/thoreinstein/conductor/internal/store"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved stacks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			saved, err := a.Store.Stacks()
			if err != nil {
				return err
			}
			rows := summarize(saved)
			if listJSON {
				return app.WriteJSON(cmd.OutOrStdout(), rows)
			}
			return writeList(cmd.OutOrStdout(), rows)
		})
	},
}

type savedRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Servers     int       `json:"servers"`
	SavedAt     time.Time `json:"savedAt"`
	Error       string    `json:"error,omitempty"`
}

// summarize parses each saved stack. A saved stack that no longer parses
// is listed with its error.
func summarize(saved []store.SavedStack) []savedRow {
	rows := make([]savedRow, 0, len(saved))
	for _, sv := range saved {
		row := savedRow{ID: sv.ID, SavedAt: sv.CreatedAt}
		s, err := stack.Parse(sv.JSON)
		if err != nil {
			row.Error = err.Error()
		} else {
			row.Name = s.Name
			row.Description = s.Description
			row.Servers = len(s.Servers)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeList(w io.Writer, rows []savedRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No saved stacks.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSERVERS\tSAVED\tDESCRIPTION")
	for _, r := range rows {
		name, desc := r.Name, app.Truncate(r.Description, 40)
		if r.Error != "" {
			name, desc = "(invalid)", app.Truncate(r.Error, 40)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, name, r.Servers, r.SavedAt.Local().Format(time.DateTime), desc)
	}
	return tw.Flush()
}
