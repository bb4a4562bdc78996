package auth

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/oauth"
	"github.com/thoreinstein/conductor/internal/store"
)

// openBrowser is replaced in tests.
var openBrowser = oauth.OpenURL

var (
	loginProvider     string
	loginClientID     string
	loginClientSecret string
	loginNoBrowser    bool
)

func init() {
	loginCmd.Flags().StringVarP(&loginProvider, "provider", "p", "",
		"OAuth provider or issuer host (default: from the server)")
	loginCmd.Flags().StringVar(&loginClientID, "client-id", "",
		"OAuth client ID to store for this server")
	loginCmd.Flags().StringVar(&loginClientSecret, "client-secret", "",
		"OAuth client secret to store for this server")
	loginCmd.Flags().BoolVar(&loginNoBrowser, "no-browser", false,
		"print the authorization URL instead of opening it")
	Cmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <server>",
	Short: "Authorize a server",
	Long: `Run the authorization-code flow for a server.

A listener on a random loopback port receives the provider's redirect. It
handles one callback and stops, or gives up after the callback timeout
(oauth.callback_timeout in config.yaml, 5 minutes by default).

Client credentials are looked up in the secret store, then the server's
env (<PROVIDER>_CLIENT_ID, OAUTH_CLIENT_ID, CLIENT_ID), then the process
environment. --client-id and --client-secret store them first.`,
	Example: `  conductor auth login linear
  conductor auth login notion --provider notion --client-id abc --client-secret s3cret
  conductor auth login internal --provider auth.example.com --no-browser`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (loginClientID == "") != (loginClientSecret == "") {
			return errors.NewUserError(
				errors.New("--client-id and --client-secret must be given together"),
				"pass both flags or neither")
		}
		return app.Run(func(a *app.App) error {
			return runLogin(cmd, a, args[0], cmd.OutOrStdout())
		})
	},
}

func runLogin(cmd *cobra.Command, a *app.App, ref string, w io.Writer) error {
	srv, err := a.Store.Server(ref)
	if err != nil {
		return errors.NewUserError(err, "run: conductor server list")
	}
	provider := providerFor(srv, loginProvider)

	if loginClientID != "" {
		creds := oauth.Credentials{ClientID: loginClientID, ClientSecret: loginClientSecret}
		if err := a.Tokens.SetCredentials(srv.ID, provider, creds); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	flow, err := a.Tokens.Begin(ctx, srv.ID, provider, srv.Env)
	if err != nil {
		return errors.NewUserError(err,
			fmt.Sprintf("set %s_CLIENT_ID and %s_CLIENT_SECRET, or pass --client-id/--client-secret",
				oauth.EnvKey(provider), oauth.EnvKey(provider)))
	}
	defer flow.Close()

	fmt.Fprintf(w, "Authorizing %s with %s\n", srv.Name, provider)
	switch {
	case loginNoBrowser:
		fmt.Fprintln(w, "Open this URL in a browser:")
	case openBrowser(flow.AuthURL) != nil:
		fmt.Fprintln(w, "Could not open a browser. Visit:")
	default:
		fmt.Fprintln(w, "If the browser did not open, visit:")
	}
	fmt.Fprintf(w, "  %s\n", flow.AuthURL)

	res, err := flow.Wait(ctx)
	if err != nil {
		_ = a.Store.LogActivity(ctx, store.ActivityError,
			fmt.Sprintf("Authorization failed for %s: %v", srv.Name, err), "", srv.ID)
		return err
	}
	_ = a.Store.LogActivity(ctx, store.ActivityAuth,
		fmt.Sprintf("Authorized %s with %s", srv.Name, res.Provider), "", srv.ID)

	fmt.Fprintf(w, "%s Authorized %s\n", color.GreenString("✓"), srv.Name)
	if !res.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "  expires: %s\n", res.ExpiresAt.Local().Format(time.RFC1123))
	}
	if !res.HasRefresh {
		fmt.Fprintln(w, color.YellowString("  no refresh token; run login again when it expires"))
	}
	return nil
}
