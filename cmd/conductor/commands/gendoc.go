package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	buildinfo "github.com/thoreinstein/conductor/cmd"
	"github.com/thoreinstein/conductor/internal/errors"
)

var (
	genDocDir    string
	genDocFormat string
)

var genDocCmd = &cobra.Command{
	Use:    "gen-doc",
	Short:  "Generate reference documentation for the CLI",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if genDocDir == "" {
			return errors.NewUserError(errors.New("output directory is required"), "pass --dir")
		}
		if err := genDoc(rootCmd, genDocDir, genDocFormat); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Documentation generated in %s\n", genDocDir)
		return nil
	},
}

func init() {
	genDocCmd.Flags().StringVarP(&genDocDir, "dir", "d", "", "output directory for documentation")
	genDocCmd.Flags().StringVar(&genDocFormat, "format", "markdown", "output format: markdown, man")
	rootCmd.AddCommand(genDocCmd)
}

// genDoc writes one page per command under dir.
func genDoc(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}

	root.DisableAutoGenTag = true
	switch format {
	case "markdown", "md":
		err := doc.GenMarkdownTreeCustom(root, dir, filePrepender, linkHandler)
		return errors.Wrap(err, "generating markdown")
	case "man":
		header := &doc.GenManHeader{
			Title:   "CONDUCTOR",
			Section: "1",
			Source:  "conductor " + buildinfo.Version,
			Manual:  "Conductor Manual",
		}
		return errors.Wrap(doc.GenManTree(root, header, dir), "generating man pages")
	default:
		return errors.NewUserError(errors.Newf("unknown format %q", format), "use markdown or man")
	}
}

func filePrepender(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	// conductor_server_add.md -> conductor server add
	title := strings.ReplaceAll(base, "_", " ")

	return fmt.Sprintf(`---
title: "%s"
description: "Reference for %s command"
---
`, title, title)
}

func linkHandler(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return "/docs/reference/" + strings.ToLower(base) + "/"
}
