// Package commands implements the conductor CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	buildinfo "github.com/thoreinstein/conductor/cmd"
	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/cmd/conductor/commands/auth"
	"github.com/thoreinstein/conductor/cmd/conductor/commands/backup"
	"github.com/thoreinstein/conductor/cmd/conductor/commands/server"
	"github.com/thoreinstein/conductor/cmd/conductor/commands/stack"
	"github.com/thoreinstein/conductor/internal/config"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/logging"
)

// debugEnv raises verbosity when no -v flag is given.
const debugEnv = "CONDUCTOR_DEBUG"

var (
	// verbosity holds the count of -v flags.
	verbosity int

	// quiet holds the value of the -q/--quiet flag.
	quiet bool

	// logFormat holds the value of the --log-format flag.
	logFormat string

	// logFile holds the path to the log file.
	logFile string

	// configPath holds the value of the --config flag.
	configPath string
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to config.yaml (default: $XDG_CONFIG_HOME/conductor/config.yaml)")

	rootCmd.Version = buildinfo.Version
	rootCmd.SetVersionTemplate("conductor version {{.Version}}\n")

	// Errors are printed by Execute.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(server.Cmd, stack.Cmd, auth.Cmd, backup.Cmd)
}

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Keep MCP servers in sync across AI coding tools",
	Long: `conductor keeps one canonical list of Model Context Protocol (MCP)
servers and writes it into the configuration files of every MCP client
on this machine: Claude Desktop, Claude Code, Cursor, VS Code, Windsurf,
Zed, JetBrains IDEs, Codex and Antigravity.

Entries conductor did not create are left alone. Every write is atomic,
backed up, and verified; a failed write is rolled back.`,
	Example: `  # Add a server and push it everywhere
  conductor server add github -- npx -y @modelcontextprotocol/server-github
  conductor sync --all

  # Pull an existing client's servers into conductor
  conductor server import cursor

  # Check system health
  conductor doctor

  See Also: conductor client list, conductor watch`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// loadConfig reads config.yaml. help and version work with a broken file.
func loadConfig(cmd *cobra.Command) error {
	config.Init()
	cfg, err := config.Load(configPath)
	if err != nil {
		switch cmd.Name() {
		case "help", "version", "gen-doc":
			return nil
		}
		return errors.NewConfigError(err)
	}
	app.SetConfig(cfg)
	return nil
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("cannot use --quiet and --verbose together"), "pick one of -q or -v")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence over the environment.
		if v == 0 {
			if val, ok := os.LookupEnv(debugEnv); ok {
				switch val {
				case "1", "true":
					v = 2
				case "2":
					v = 3
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{Level: level}

	var primary slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primary = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primary = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handler := primary
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		handler = logging.NewMultiHandler(primary, slog.NewJSONHandler(f, opts))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// Execute runs the root command and prints any error.
func Execute() error {
	err := rootCmd.Execute()
	if err == nil {
		return nil
	}

	var exit *errors.ExitError
	if errors.As(err, &exit) && exit.Err == nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
	if errors.As(err, &exit) && exit.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.HiBlackString("hint:"), exit.Suggestion)
	}
	return err
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return errors.ExitSuccess
	}
	var exit *errors.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return errors.ExitUser
}
