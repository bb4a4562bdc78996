package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/config"
	"github.com/thoreinstein/conductor/internal/editor"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/paths"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage conductor's CLI preferences",
	Long: `Manage the CLI preferences stored in config.yaml (by default under
$XDG_CONFIG_HOME/conductor/). These control where conductor keeps its data,
which clients "sync --all" targets, and any custom clients.

The server list itself lives in ~/.conductor/config.json and is managed
with "conductor server". App settings such as autoSync are managed with
"conductor settings".

Without a subcommand, lists all configuration values.`,
	Example: `  # List all configuration
  conductor config

  # Get a specific value
  conductor config get default_clients

  # Set a value
  conductor config set default_clients cursor,claude-code

See Also: conductor settings, conductor doctor`,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key.

Supports dot notation for nested keys. Array values are printed one per line.`,
	Example: `  conductor config get watch_debounce
  conductor config get oauth.callback_timeout`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write config.yaml.

Keys: version, conductor_dir, default_clients (comma-separated client IDs),
watch_debounce and oauth.callback_timeout (durations such as 2s or 5m).
Custom clients are edited with "conductor config edit".`,
	Example: `  conductor config set default_clients cursor,claude-code
  conductor config set watch_debounce 1s`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long:  `List all configuration values in YAML format.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in $EDITOR",
	Long: `Open config.yaml in your default editor, creating it with the current
values first if it does not exist.

Uses $EDITOR, then $VISUAL, then nano or vi.`,
	Example: `  conductor config edit
  EDITOR="code --wait" conductor config edit`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), configFile())
	},
}

// configFile returns the file config.yaml is read from, or where it would
// be created.
func configFile() string {
	if configPath != "" {
		return configPath
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	if dir := os.Getenv(config.EnvPrefix + "_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return filepath.Join(paths.PreferencesDir(), "config.yaml")
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]
	w := cmd.OutOrStdout()

	if !viper.IsSet(key) {
		fmt.Fprintln(w, "not set")
		return nil
	}

	switch v := viper.Get(key).(type) {
	case []any:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	case []string:
		for _, item := range v {
			fmt.Fprintln(w, item)
		}
	default:
		fmt.Fprintln(w, viper.GetString(key))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cfg := *app.Config()
	if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
		return errors.NewUserError(err, "run: conductor config set --help")
	}
	if errs := config.Validate(&cfg); len(errs) > 0 {
		return errors.NewUserError(errs[0], "")
	}
	if err := writeConfigFile(cmd, &cfg); err != nil {
		return err
	}
	app.SetConfig(&cfg)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
	return nil
}

// setConfigValue applies one key to cfg.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "version":
		v, err := strconv.Atoi(value)
		if err != nil {
			return errors.Newf("version must be a number, got %q", value)
		}
		cfg.Version = v
	case "conductor_dir":
		cfg.ConductorDir = value
	case "default_clients":
		cfg.DefaultClients = splitList(value)
	case "watch_debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid watch_debounce")
		}
		cfg.WatchDebounce = d
	case "oauth.callback_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return errors.Wrapf(err, "invalid oauth.callback_timeout")
		}
		cfg.OAuth.CallbackTimeout = d
	default:
		return errors.Newf("unknown config key %q", key)
	}
	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(s string) []string {
	out := []string{}
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func writeConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	path := configFile()
	if err := fileutil.AtomicWriteYAML(cmd.Context(), path, cfg, 0o644); err != nil {
		return errors.Wrap(err, "writing config")
	}
	return nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	return writeConfigYAML(cmd.OutOrStdout(), app.Config())
}

func writeConfigYAML(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	return enc.Close()
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	path := configFile()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeConfigFile(cmd, app.Config()); err != nil {
			return err
		}
	}
	if err := editor.Open(cmd.Context(), path); err != nil {
		return err
	}

	// Reload so a broken edit is reported now rather than on the next run.
	config.Init()
	if _, err := config.Load(path); err != nil {
		return errors.NewConfigError(err)
	}
	return nil
}
