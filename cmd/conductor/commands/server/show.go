package server

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/store"
)

var (
	showJSON        bool
	showShowSecrets bool
)

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
	showCmd.Flags().BoolVar(&showShowSecrets, "show-secrets", false, "Reveal masked secrets in env values")
	Cmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Show one server",
	Example: `  conductor server show github
  conductor server show github --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			doc, err := a.Store.Load()
			if err != nil {
				return err
			}
			srv := doc.Resolve(args[0])
			if srv == nil {
				return errors.NewUserError(&errors.NotFoundError{Kind: "server", ID: args[0]}, "run: conductor server list")
			}
			return writeShow(cmd.OutOrStdout(), doc, srv, showJSON, showShowSecrets)
		})
	},
}

func writeShow(w io.Writer, doc *store.Document, srv *mcp.Server, asJSON, showSecrets bool) error {
	shown := present(srv, showSecrets)
	if asJSON {
		return app.WriteJSON(w, shown)
	}

	label := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", label("Name:"), shown.Name)
	fmt.Fprintf(w, "%s %s\n", label("ID:"), shown.ID)
	if shown.DisplayName != "" {
		fmt.Fprintf(w, "%s %s\n", label("Display name:"), shown.DisplayName)
	}
	if shown.Description != "" {
		fmt.Fprintf(w, "%s %s\n", label("Description:"), shown.Description)
	}
	fmt.Fprintf(w, "%s %s\n", label("Status:"), status(shown))
	fmt.Fprintf(w, "%s %s\n", label("Transport:"), shown.Transport)
	if shown.IsRemote() {
		fmt.Fprintf(w, "%s %s\n", label("URL:"), shown.URL)
	} else {
		fmt.Fprintf(w, "%s %s\n", label("Command:"), shown.Command)
		if len(shown.Args) > 0 {
			fmt.Fprintf(w, "%s %s\n", label("Args:"), strings.Join(shown.Args, " "))
		}
	}

	if len(shown.Env) > 0 {
		fmt.Fprintln(w, label("Env:"))
		keys := make([]string, 0, len(shown.Env))
		for k := range shown.Env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s=%s\n", k, shown.Env[k])
		}
	}
	if len(shown.SecretEnvKeys) > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Secrets:"), strings.Join(shown.SecretEnvKeys, ", "))
	}
	if len(shown.Tags) > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Tags:"), strings.Join(shown.Tags, ", "))
	}
	if shown.Source != "" {
		fmt.Fprintf(w, "%s %s\n", label("Source:"), shown.Source)
	}

	var clients []string
	for _, r := range doc.Sync {
		if slices.Contains(r.ServerIDs, srv.ID) {
			clients = append(clients, r.ClientID)
		}
	}
	if len(clients) > 0 {
		fmt.Fprintf(w, "%s %s\n", label("Synced to:"), strings.Join(clients, ", "))
	}
	return nil
}
