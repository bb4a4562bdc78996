package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/platform"
	"github.com/thoreinstein/conductor/internal/store"
)

var (
	clientListJSON bool
	clientListAll  bool
)

func init() {
	clientListCmd.Flags().BoolVar(&clientListJSON, "json", false, "Output in JSON format")
	clientListCmd.Flags().BoolVar(&clientListAll, "all", false, "Include clients that are not installed")
	clientCmd.AddCommand(clientListCmd, clientResetCmd)
	rootCmd.AddCommand(clientCmd)
}

var clientCmd = &cobra.Command{
	Use:     "client",
	Aliases: []string{"clients"},
	Short:   "Inspect MCP clients",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported clients and their sync state",
	Long: `List the MCP clients conductor knows about: where each keeps its
configuration, how many servers it has, and when conductor last synced
it. Clients that are not installed are hidden unless --all is given.`,
	Example: `  conductor client list
  conductor client list --all --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			doc, err := a.Store.Load()
			if err != nil {
				return err
			}
			rows := clientRows(platform.DetectAll(a.Clients), doc, clientListAll)
			if clientListJSON {
				return app.WriteJSON(cmd.OutOrStdout(), rows)
			}
			return writeClients(cmd.OutOrStdout(), rows)
		})
	},
}

var clientResetCmd = &cobra.Command{
	Use:   "reset <client>",
	Short: "Forget which entries conductor wrote to a client",
	Long: `Forget the server names conductor has written to a client. The next
sync treats every existing entry in that client's file as the user's own
and never removes it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			if _, err := a.Clients.Get(args[0]); err != nil {
				return errors.NewUserError(err, "run: conductor client list --all")
			}
			if err := a.Store.ResetRecord(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset sync record for %s\n", args[0])
			return nil
		})
	},
}

// clientRow is one client in list output.
type clientRow struct {
	*platform.Detection
	LastSynced   *time.Time `json:"lastSynced,omitempty"`
	SyncedByUs   []string   `json:"syncedServerNames"`
	EverSyncedBy int        `json:"previouslySyncedCount"`
}

func clientRows(detections []*platform.Detection, doc *store.Document, all bool) []clientRow {
	rows := make([]clientRow, 0, len(detections))
	for _, d := range detections {
		if !all && !d.Detected {
			continue
		}
		row := clientRow{Detection: d, SyncedByUs: []string{}}
		if r := doc.Record(d.ClientID); r != nil {
			if !r.LastSynced.IsZero() {
				t := r.LastSynced
				row.LastSynced = &t
			}
			row.SyncedByUs = append(row.SyncedByUs, r.SyncedServerNames...)
			row.EverSyncedBy = len(r.PreviouslySyncedNames)
		}
		rows = append(rows, row)
	}
	return rows
}

func writeClients(w io.Writer, rows []clientRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No MCP clients detected. Use --all to see supported clients.")
		return nil
	}

	bold := color.New(color.Bold)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		bold.Sprint("CLIENT"), bold.Sprint("STATUS"), bold.Sprint("SERVERS"), bold.Sprint("LAST SYNC"), bold.Sprint("CONFIG"))
	for _, r := range rows {
		state := color.GreenString("installed")
		switch {
		case r.Error != "":
			state = color.RedString("unreadable")
		case !r.Detected:
			state = color.HiBlackString("not found")
		}
		last := "never"
		if r.LastSynced != nil {
			last = r.LastSynced.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ClientID, state, r.ServerCount, last, r.ConfigPath)
	}
	return errors.Wrap(tw.Flush(), "flushing tabwriter")
}
