package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/guard"
	"github.com/thoreinstein/conductor/internal/logging"
	"github.com/thoreinstein/conductor/internal/report"
	"github.com/thoreinstein/conductor/internal/watcher"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch client configs and the master document for changes",
	Long: `Watch every installed client's config file and the master document.

Edits made outside conductor to a client file are reported. When the
master document changes (for example, another conductor process added a
server) and the autoSync setting is on, every client is synced again
after syncDelay seconds. Press Ctrl-C to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.Run(func(a *app.App) error {
			files := append(a.Syncer.Watched(), a.Store.Path())
			w := watcher.New(files, guard.Default(), watcher.WithDebounce(a.Config.WatchDebounce))
			changes, err := w.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d file(s). Press Ctrl-C to stop.\n", len(w.Files()))
			return watchLoop(ctx, a, changes, cmd.OutOrStdout())
		})
	},
}

// watchLoop reacts to changes until ctx is done or changes closes.
func watchLoop(ctx context.Context, a *app.App, changes <-chan watcher.Change, out io.Writer) error {
	logger := logging.FromContext(ctx).With("component", "watch")
	master, err := filepath.Abs(a.Store.Path())
	if err != nil {
		master = a.Store.Path()
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ch, ok := <-changes:
			if !ok {
				return nil
			}
			settings, err := a.Store.Settings()
			if err != nil {
				logger.Warn("reading settings", "error", err)
				continue
			}

			for _, p := range ch.Paths {
				if p != master && settings.NotifyExternal {
					fmt.Fprintf(out, "%s changed outside conductor: %s\n", ch.At.Local().Format(time.TimeOnly), p)
				}
			}
			if !slices.Contains(ch.Paths, master) || !settings.AutoSync {
				continue
			}

			delay := time.Duration(settings.SyncDelay) * time.Second
			logger.Info("master document changed; sync scheduled", "delay", delay)
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(delay)
			pending = timer.C

		case <-pending:
			pending = nil
			results, err := syncDefault(ctx, a, nil)
			if err != nil {
				logger.Error("auto-sync failed", "error", err)
				continue
			}
			if err := report.NewReporter(out, report.FormatText).Report(results); err != nil {
				return err
			}
		}
	}
}
