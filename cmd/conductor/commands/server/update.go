package server

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
	"github.com/thoreinstein/conductor/internal/store"
)

var (
	updateDisplayName string
	updateDescription string
	updateCommand     string
	updateArgs        []string
	updateURL         string
	updateTransport   string
	updateEnv         []string
	updateSecretKeys  []string
	updateTags        []string
	updateIconURL     string
)

func init() {
	registerUpdateFlags(updateCmd)
	Cmd.AddCommand(updateCmd)
}

func registerUpdateFlags(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&updateDisplayName, "display-name", "", "human-readable name (empty clears)")
	f.StringVar(&updateDescription, "description", "", "short description (empty clears)")
	f.StringVar(&updateCommand, "command", "", "command for stdio servers")
	f.StringArrayVar(&updateArgs, "arg", nil, "replace the argument list (repeatable)")
	f.StringVar(&updateURL, "url", "", "endpoint for remote servers")
	f.StringVar(&updateTransport, "transport", "", "transport: stdio, sse, streamable-http")
	f.StringSliceVar(&updateEnv, "env", nil, "replace env with KEY=VALUE pairs (repeatable)")
	f.StringSliceVar(&updateSecretKeys, "secret-key", nil, "replace the names of vault-backed env keys (repeatable)")
	f.StringSliceVar(&updateTags, "tag", nil, "replace tags (repeatable)")
	f.StringVar(&updateIconURL, "icon-url", "", "icon URL (empty clears)")
}

var updateCmd = &cobra.Command{
	Use:   "update <name|id>",
	Short: "Change a server",
	Long: `Change fields of a server. Only the flags you pass are applied; passing
an empty value clears an optional field.`,
	Example: `  # Point a server at a new endpoint
  conductor server update linear --url https://mcp.linear.app/mcp --transport streamable-http

  # Replace arguments
  conductor server update fs --arg -y --arg @modelcontextprotocol/server-filesystem --arg ~/src

  # Clear the description
  conductor server update fs --description ""`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := buildPatch(cmd)
		if err != nil {
			return err
		}
		return app.Run(func(a *app.App) error {
			srv, err := a.Store.UpdateServer(cmd.Context(), args[0], patch)
			if err != nil {
				if errors.Is(err, errors.ErrNotFound) {
					return errors.NewUserError(err, "run: conductor server list")
				}
				if errors.Is(err, validator.ErrSecretAtRest) {
					return errors.NewUserError(err, "move the value into the vault with: conductor secret set "+args[0]+" <KEY>")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated server %s\n", srv.Name)
			return nil
		})
	},
}

// buildPatch converts the flags the user set into a ServerPatch.
func buildPatch(cmd *cobra.Command) (store.ServerPatch, error) {
	var p store.ServerPatch
	changed := cmd.Flags().Changed

	if changed("display-name") {
		p.DisplayName = &updateDisplayName
	}
	if changed("description") {
		p.Description = &updateDescription
	}
	if changed("command") {
		p.Command = &updateCommand
	}
	if changed("arg") {
		p.Args = &updateArgs
	}
	if changed("url") {
		p.URL = &updateURL
	}
	if changed("transport") {
		t := mcp.ParseTransport(updateTransport)
		p.Transport = &t
	}
	if changed("env") {
		env, err := parseKeyValueSlice(updateEnv, "--env")
		if err != nil {
			return p, err
		}
		if env == nil {
			env = map[string]string{}
		}
		p.Env = &env
	}
	if changed("secret-key") {
		p.SecretEnvKeys = &updateSecretKeys
	}
	if changed("tag") {
		p.Tags = &updateTags
	}
	if changed("icon-url") {
		p.IconURL = &updateIconURL
	}

	if p == (store.ServerPatch{}) {
		return p, errors.NewUserError(errors.New("nothing to update"), "pass at least one flag, see: conductor server update --help")
	}
	return p, nil
}
