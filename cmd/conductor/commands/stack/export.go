package stack

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/stack"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

var (
	exportServers     []string
	exportDescription string
	exportTags        []string
	exportOutput      string
	exportSave        bool
	exportAll         bool
)

func init() {
	exportCmd.Flags().StringArrayVarP(&exportServers, "server", "s", nil,
		"server to include, by name or ID (repeatable; default: all enabled)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false,
		"include disabled servers too")
	exportCmd.Flags().StringVarP(&exportDescription, "description", "d", "",
		"stack description")
	exportCmd.Flags().StringArrayVarP(&exportTags, "tag", "t", nil,
		"stack tag (repeatable)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write to file instead of stdout")
	exportCmd.Flags().BoolVar(&exportSave, "save", false,
		"also keep the stack in conductor's config")
	Cmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Write servers as a shareable stack",
	Example: `  conductor stack export dev-tools
  conductor stack export team -s github -s linear -t team -o team.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(func(a *app.App) error {
			doc, err := a.Store.Load()
			if err != nil {
				return err
			}
			servers, err := selectServers(doc, exportServers, exportAll)
			if err != nil {
				return err
			}

			s, err := stack.Export(args[0], exportDescription, exportTags, servers, time.Now())
			if err != nil {
				return errors.NewUserError(err, "add servers first: conductor server add")
			}
			data, err := s.Marshal()
			if err != nil {
				return err
			}

			if exportSave {
				saved, err := a.Store.SaveStack(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Saved stack %s as %s\n", s.Name, saved.ID)
			}
			if exportOutput == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := fileutil.AtomicWriteFile(cmd.Context(), exportOutput, data, 0o644); err != nil {
				return err
			}
			_ = a.Store.LogActivity(cmd.Context(), store.ActivityStack,
				fmt.Sprintf("Exported stack %s (%d servers)", s.Name, len(s.Servers)), "", "")
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d server(s) to %s\n", len(s.Servers), exportOutput)
			return nil
		})
	},
}

// selectServers resolves refs, or returns the enabled servers (every
// server with all) when refs is empty.
func selectServers(doc *store.Document, refs []string, all bool) ([]*mcp.Server, error) {
	if len(refs) == 0 {
		if all {
			return doc.Servers, nil
		}
		return doc.Enabled(), nil
	}
	out := make([]*mcp.Server, 0, len(refs))
	for _, ref := range refs {
		srv := doc.Resolve(ref)
		if srv == nil {
			return nil, errors.NewUserError(
				&errors.NotFoundError{Kind: "server", ID: ref},
				"run: conductor server list")
		}
		out = append(out, srv)
	}
	return out, nil
}
