package server

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
	"github.com/thoreinstein/conductor/internal/secrets"
	"github.com/thoreinstein/conductor/internal/store"
)

// Sentinel errors for server add.
var (
	errAddMissingCommandOrURL = errors.New("either command or --url is required")
	errAddBothCommandAndURL   = errors.New("cannot specify both command and --url")
)

var (
	addURL         string
	addTransport   string
	addEnv         []string
	addSecrets     []string
	addDisplayName string
	addDescription string
	addTags        []string
	addDisabled    bool
)

func init() {
	addCmd.Flags().StringVar(&addURL, "url", "",
		"remote server endpoint")
	addCmd.Flags().StringVar(&addTransport, "transport", "",
		"transport: stdio, sse, streamable-http (default: sse with --url, stdio otherwise)")
	addCmd.Flags().StringSliceVar(&addEnv, "env", nil,
		"environment variables in KEY=VALUE format (repeatable)")
	addCmd.Flags().StringSliceVar(&addSecrets, "secret", nil,
		"secret environment variables in KEY=VALUE format, stored in the vault (repeatable)")
	addCmd.Flags().StringVar(&addDisplayName, "display-name", "", "human-readable name")
	addCmd.Flags().StringVar(&addDescription, "description", "", "short description")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag (repeatable)")
	addCmd.Flags().BoolVar(&addDisabled, "disabled", false, "add the server disabled")
	Cmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add <name> [command] [args...]",
	Short: "Add a server",
	Long: `Add a server to the master document.

For local stdio servers, provide a command and optional arguments; put
"--" before arguments that start with a dash. For remote servers, use
--url. Values given with --secret are kept in the secret vault and only
written into client files during sync.`,
	Example: `  # Add a local stdio server
  conductor server add github -- npx -y @modelcontextprotocol/server-github

  # Keep a token out of config.json
  conductor server add github --secret GITHUB_TOKEN=ghp_xxx -- npx -y @modelcontextprotocol/server-github

  # Add a remote streamable HTTP server
  conductor server add linear --url https://mcp.linear.app/mcp --transport streamable-http

  See Also:
    conductor server list  - List servers
    conductor sync         - Write servers to clients`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, secretValues, err := buildInput(args)
		if err != nil {
			return err
		}
		return app.Run(func(a *app.App) error {
			return runAdd(cmd, a, in, secretValues, cmd.OutOrStdout())
		})
	},
}

// buildInput assembles a ServerInput from the add flags and args.
func buildInput(args []string) (store.ServerInput, map[string]string, error) {
	in := store.ServerInput{
		Name:        args[0],
		DisplayName: addDisplayName,
		Description: addDescription,
		URL:         addURL,
		Tags:        addTags,
	}
	if len(args) > 1 {
		in.Command = args[1]
		in.Args = args[2:]
	}

	if in.Command == "" && in.URL == "" {
		return in, nil, errors.NewUserError(errAddMissingCommandOrURL, "pass a command after the name, or --url")
	}
	if in.Command != "" && in.URL != "" {
		return in, nil, errors.NewUserError(errAddBothCommandAndURL, "a server is either local or remote")
	}
	if addTransport != "" {
		in.Transport = mcp.ParseTransport(addTransport)
	}

	env, err := parseKeyValueSlice(addEnv, "--env")
	if err != nil {
		return in, nil, err
	}
	in.Env = env

	secretValues, err := parseKeyValueSlice(addSecrets, "--secret")
	if err != nil {
		return in, nil, err
	}
	for k := range secretValues {
		in.SecretEnvKeys = append(in.SecretEnvKeys, k)
	}
	slices.Sort(in.SecretEnvKeys)
	return in, secretValues, nil
}

func runAdd(cmd *cobra.Command, a *app.App, in store.ServerInput, secretValues map[string]string, w io.Writer) error {
	srv, err := a.Store.AddServer(cmd.Context(), in)
	if err != nil {
		if errors.Is(err, errors.ErrDuplicateName) {
			return errors.NewUserError(err, "pick another name or run: conductor server update "+in.Name)
		}
		if errors.Is(err, validator.ErrSecretAtRest) {
			return errors.NewUserError(err, "pass the key with --secret only, not also with --env")
		}
		return err
	}

	for k, v := range secretValues {
		if err := a.Vault.Set(secrets.Key(srv.ID, k), v); err != nil {
			return errors.Wrapf(err, "storing secret %s", k)
		}
	}

	if addDisabled {
		if srv, err = a.Store.ToggleServer(cmd.Context(), srv.ID, false); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Added server %s (%s)\n", srv.Name, srv.ID)
	fmt.Fprintln(w, "Run 'conductor sync --all' to write it to your clients.")
	return nil
}
