package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/report"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/internal/syncer"
)

var (
	syncAll         bool
	syncServers     []string
	syncInteractive bool
	syncJSON        bool
)

func init() {
	syncCmd.Flags().BoolVarP(&syncAll, "all", "a", false,
		"sync every default client (default_clients, or all installed clients)")
	syncCmd.Flags().StringSliceVarP(&syncServers, "server", "s", nil,
		"only write these servers, by name or ID (repeatable)")
	syncCmd.Flags().BoolVarP(&syncInteractive, "interactive", "i", false,
		"pick servers with a fuzzy finder")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [client...]",
	Short: "Write servers to client config files",
	Long: `Write the enabled servers into each client's MCP configuration.

Entries conductor wrote before and that are no longer wanted are
removed; entries the user added by hand are kept. Each file is backed up,
written atomically, and re-read to verify the result. A failed write is
rolled back to the previous content.

Exit codes:
  0 - Every client synced
  2 - At least one client failed`,
	Example: `  # Sync one client
  conductor sync cursor

  # Sync every installed client
  conductor sync --all

  # Write only selected servers
  conductor sync claude-code --server github --server linear
  conductor sync --all -i

  See Also: conductor client list, conductor watch`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !syncAll {
		return errors.NewUserError(errors.New("no client given"), "name a client or pass --all (see: conductor client list)")
	}
	if len(args) > 0 && syncAll {
		return errors.NewUserError(errors.New("cannot combine client arguments with --all"), "")
	}

	return app.Run(func(a *app.App) error {
		doc, err := a.Store.Load()
		if err != nil {
			return err
		}

		serverIDs, err := resolveServers(doc, syncServers)
		if err != nil {
			return err
		}
		if syncInteractive {
			if serverIDs, err = pickServers(doc.Enabled()); err != nil {
				return err
			}
			if serverIDs == nil {
				return nil
			}
		}

		var results []*syncer.Result
		if syncAll {
			results, err = syncDefault(cmd.Context(), a, serverIDs)
		} else {
			results, err = syncEach(cmd.Context(), a.Syncer, args, serverIDs)
		}
		if err != nil {
			return err
		}

		return writeResults(cmd.OutOrStdout(), results)
	})
}

// syncDefault syncs the configured default clients, or every installed
// client in parallel when none are configured.
func syncDefault(ctx context.Context, a *app.App, serverIDs []string) ([]*syncer.Result, error) {
	if serverIDs == nil && len(a.Config.DefaultClients) == 0 {
		return a.Syncer.SyncAll(ctx)
	}
	return syncEach(ctx, a.Syncer, a.Config.SyncTargets(a.Clients), serverIDs)
}

// syncEach syncs clients one after another. Unknown clients stop the run.
func syncEach(ctx context.Context, s *syncer.Syncer, clients, serverIDs []string) ([]*syncer.Result, error) {
	results := make([]*syncer.Result, 0, len(clients))
	for _, id := range clients {
		res, err := s.Sync(ctx, id, serverIDs)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NewUserError(err, "run: conductor client list")
			}
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func writeResults(w io.Writer, results []*syncer.Result) error {
	format := report.FormatText
	if syncJSON {
		format = report.FormatJSON
	}
	if err := report.NewReporter(w, format).Report(results); err != nil {
		return err
	}
	if report.Summarize(results).Failed > 0 {
		return errors.NewExitError(nil, errors.ExitSystem)
	}
	return nil
}

// resolveServers maps names or IDs to IDs. Nil means every enabled server.
func resolveServers(doc *store.Document, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		srv := doc.Resolve(ref)
		if srv == nil {
			return nil, errors.NewUserError(&errors.NotFoundError{Kind: "server", ID: ref}, "run: conductor server list")
		}
		ids = append(ids, srv.ID)
	}
	return ids, nil
}

// pickServers lets the user choose servers. It returns nil when the user
// aborts.
func pickServers(servers []*mcp.Server) ([]string, error) {
	if len(servers) == 0 {
		return nil, errors.NewUserError(errors.New("no enabled servers"), "add one with: conductor server add")
	}

	idx, err := fuzzyfinder.FindMulti(
		servers,
		func(i int) string {
			return servers[i].Name
		},
		fuzzyfinder.WithPromptString("servers> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			s := servers[i]
			target := s.Command
			if s.IsRemote() {
				target = s.URL
			}
			return fmt.Sprintf("Name: %s\nTransport: %s\nTarget: %s\n\n%s", s.Name, s.Transport, target, s.Description)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "interactive selection failed")
	}

	ids := make([]string, 0, len(idx))
	for _, i := range idx {
		ids = append(ids, servers[i].ID)
	}
	return ids, nil
}
