package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/store"
)

var settingsJSON bool

func init() {
	settingsCmd.Flags().BoolVar(&settingsJSON, "json", false, "Output in JSON format")
	settingsCmd.AddCommand(settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change app settings",
	Long: `Show the settings kept in ~/.conductor/config.json alongside the server
list. They are shared with every conductor front end.

  autoSync         sync all clients after the server list changes (watch)
  syncDelay        seconds to wait before that sync
  notifyExternal   report edits other programs make to client files (watch)
  backupRetention  backups kept per file`,
	Example: `  conductor settings
  conductor settings set syncDelay 10
  conductor settings reset`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			s, err := a.Store.Settings()
			if err != nil {
				return err
			}
			if settingsJSON {
				return app.WriteJSON(cmd.OutOrStdout(), s)
			}
			return writeSettings(cmd.OutOrStdout(), s)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			s, err := a.Store.Settings()
			if err != nil {
				return err
			}
			if err := setSetting(&s, args[0], args[1]); err != nil {
				return errors.NewUserError(err, "run: conductor settings --help")
			}
			if err := a.Store.SaveSettings(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		})
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(func(a *app.App) error {
			s, err := a.Store.ResetSettings(cmd.Context())
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), s)
		})
	},
}

// setSetting applies one key to s.
func setSetting(s *store.Settings, key, value string) error {
	boolean := func(dst *bool) error {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Newf("%s must be true or false, got %q", key, value)
		}
		*dst = v
		return nil
	}
	positive := func(dst *int, least int) error {
		v, err := strconv.Atoi(value)
		if err != nil || v < least {
			return errors.Newf("%s must be a whole number of at least %d, got %q", key, least, value)
		}
		*dst = v
		return nil
	}

	switch key {
	case "autoSync":
		return boolean(&s.AutoSync)
	case "syncDelay":
		return positive(&s.SyncDelay, 0)
	case "notifyExternal":
		return boolean(&s.NotifyExternal)
	case "backupRetention":
		return positive(&s.BackupRetention, 1)
	case "launchAtLogin":
		return boolean(&s.LaunchAtLogin)
	case "startMinimized":
		return boolean(&s.StartMinimized)
	case "syncNotifications":
		return boolean(&s.SyncNotifications)
	case "errorNotifications":
		return boolean(&s.ErrorNotifications)
	default:
		return errors.Newf("unknown setting %q", key)
	}
}

func writeSettings(w io.Writer, s store.Settings) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		key string
		val any
	}{
		{"autoSync", s.AutoSync},
		{"syncDelay", s.SyncDelay},
		{"notifyExternal", s.NotifyExternal},
		{"backupRetention", s.BackupRetention},
		{"launchAtLogin", s.LaunchAtLogin},
		{"startMinimized", s.StartMinimized},
		{"syncNotifications", s.SyncNotifications},
		{"errorNotifications", s.ErrorNotifications},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", r.key, r.val)
	}
	return tw.Flush()
}
