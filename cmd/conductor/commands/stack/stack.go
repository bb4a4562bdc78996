// Package stack provides the stack command group for sharing server sets.
package stack

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/stack"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// Cmd is the stack command that groups all stack subcommands.
var Cmd = &cobra.Command{
	Use:     "stack",
	Aliases: []string{"stacks"},
	Short:   "Share sets of MCP servers",
	Long: `A stack is a JSON document bundling servers so a set can be shared
with a team. Exported stacks never carry secret values: declared secret
keys are kept as names only, and env entries that look like credentials
are dropped and declared.

Stacks can also be saved inside conductor's own config for later reuse.`,
	Example: `  # Export two servers
  conductor stack export team --server github --server linear -o team.json

  # Import from a file or URL
  conductor stack import team.json
  conductor stack import https://example.com/stacks/team.json

  See Also:
    conductor stack export  - Write a stack
    conductor stack import  - Add a stack's servers
    conductor stack save    - Keep a stack in conductor's config
    conductor stack list    - List saved stacks
    conductor stack delete  - Delete a saved stack`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

// isURL reports whether src names an http(s) location.
func isURL(src string) bool {
	return strings.HasPrefix(src, "https://") || strings.HasPrefix(src, "http://")
}

// load reads and parses a stack from a file, a URL, or stdin ("-").
func load(cmd *cobra.Command, src string) (*stack.Stack, []byte, error) {
	if isURL(src) {
		s, err := stack.Fetch(cmd.Context(), nil, src)
		if err != nil {
			return nil, nil, errors.NewUserError(err, "check the URL serves a stack JSON document")
		}
		data, err := s.Marshal()
		return s, data, err
	}

	var (
		data []byte
		err  error
	)
	if src == "-" {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), fileutil.MaxFileSize))
	} else {
		data, err = fileutil.ReadFileWithLimit(src)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, errors.NewUserError(err, "check the stack file path")
		}
		return nil, nil, errors.Wrap(err, "reading stack")
	}
	s, err := stack.Parse(data)
	if err != nil {
		return nil, nil, errors.NewUserError(err, "the file is not a conductor stack")
	}
	return s, data, nil
}
