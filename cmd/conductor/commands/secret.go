package commands

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/secrets"
	"github.com/thoreinstein/conductor/internal/store"
)

// readSecret reads one line from stdin. A terminal is prompted and not
// echoed.
func readSecret(cmd *cobra.Command, key string) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", key)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return strings.TrimSpace(string(b)), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretDeleteCmd, secretListCmd)
	rootCmd.AddCommand(secretCmd)
}

var secretCmd = &cobra.Command{
	Use:     "secret",
	Aliases: []string{"secrets"},
	Short:   "Manage server secrets in the vault",
	Long: `Manage environment values kept in the secret vault (~/.conductor/secrets.db)
instead of the master document. A key set here is added to the server's
secretEnvKeys and written into client files only while syncing.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var secretSetCmd = &cobra.Command{
	Use:   "set <server> <KEY> [value]",
	Short: "Store a secret for a server",
	Long: `Store a secret environment value for a server. When value is omitted it
is read from stdin, which keeps it out of shell history.`,
	Example: `  conductor secret set github GITHUB_TOKEN ghp_xxx
  pass show github-token | conductor secret set github GITHUB_TOKEN`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 3 {
			value = args[2]
		} else {
			v, err := readSecret(cmd, args[1])
			if err != nil {
				return errors.NewUserError(errors.Wrap(err, "reading secret from stdin"), "pass the value as the third argument")
			}
			value = v
		}
		if value == "" {
			return errors.NewUserError(errors.New("secret value is empty"), "")
		}

		return app.Run(func(a *app.App) error {
			srv, err := a.Store.Server(args[0])
			if err != nil {
				return errors.NewUserError(err, "run: conductor server list")
			}
			key := args[1]
			if err := a.Vault.Set(secrets.Key(srv.ID, key), value); err != nil {
				return err
			}
			if patch, ok := declareSecret(srv, key); ok {
				if _, err := a.Store.UpdateServer(cmd.Context(), srv.ID, patch); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s for %s\n", key, srv.Name)
			return nil
		})
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete <server> <KEY>",
	Aliases: []string{"rm"},
	Short:   "Delete a server secret",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			srv, err := a.Store.Server(args[0])
			if err != nil {
				return errors.NewUserError(err, "run: conductor server list")
			}
			key := args[1]
			if err := a.Vault.Delete(secrets.Key(srv.ID, key)); err != nil {
				return err
			}
			if srv.HasSecretKey(key) {
				keys := make([]string, 0, len(srv.SecretEnvKeys))
				for _, k := range srv.SecretEnvKeys {
					if k != key {
						keys = append(keys, k)
					}
				}
				if _, err := a.Store.UpdateServer(cmd.Context(), srv.ID, store.ServerPatch{SecretEnvKeys: &keys}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s for %s\n", key, srv.Name)
			return nil
		})
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list <server>",
	Short: "List the secret keys stored for a server",
	Long:  `List the vault keys stored for a server. Values are never printed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			srv, err := a.Store.Server(args[0])
			if err != nil {
				return errors.NewUserError(err, "run: conductor server list")
			}
			keys, err := a.Vault.Keys(srv.ID + ":")
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No secrets stored for %s\n", srv.Name)
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimPrefix(k, srv.ID+":"))
			}
			return nil
		})
	},
}

// declareSecret returns the patch that makes key vault-backed on srv. A
// literal value for key is dropped from Env in the same patch.
func declareSecret(srv *mcp.Server, key string) (store.ServerPatch, bool) {
	var p store.ServerPatch
	if !srv.HasSecretKey(key) {
		keys := append(append([]string(nil), srv.SecretEnvKeys...), key)
		p.SecretEnvKeys = &keys
	}
	if _, ok := srv.Env[key]; ok {
		env := maps.Clone(srv.Env)
		delete(env, key)
		p.Env = &env
	}
	return p, p != (store.ServerPatch{})
}
