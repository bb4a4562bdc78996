package platform

import (
	"os"
	"os/exec"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/format"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// Client identifiers.
const (
	ClaudeDesktop = "claude-desktop"
	ClaudeCode    = "claude-code"
	Cursor        = "cursor"
	VSCode        = "vscode"
	Windsurf      = "windsurf"
	Zed           = "zed"
	JetBrains     = "jetbrains"
	Codex         = "codex"
	Antigravity   = "antigravity"
)

var lookPath = exec.LookPath

// Client describes one host application: where its MCP configuration
// lives, which format it uses, and how to tell whether it is installed.
//
// Clients are immutable after construction and safe for concurrent use.
type Client struct {
	// ID is the stable identifier used in sync records and on the CLI.
	ID string

	// DisplayName is the human-readable product name.
	DisplayName string

	// candidates lists config paths in priority order.
	candidates func() []string

	// formatFor returns the format for a resolved config path.
	formatFor func(path string) format.Format

	// markers are app bundles or directories whose presence means the
	// client is installed.
	markers []string

	// binaries are executables whose presence on PATH means the client
	// is installed.
	binaries []string
}

// NewClient returns a client that reads and writes f at the given
// candidate paths, in priority order. It is used for user-defined hosts.
func NewClient(id, displayName string, f format.Format, candidates ...string) *Client {
	if displayName == "" {
		displayName = id
	}
	c := &Client{
		ID:          id,
		DisplayName: displayName,
		candidates:  fixed(candidates...),
	}
	if f != nil {
		c.formatFor = func(string) format.Format { return f }
	}
	return c
}

// Candidates returns every config path the client may use, in priority
// order. The list is empty when no location can be derived (for example,
// no JetBrains IDE has been run).
func (c *Client) Candidates() []string {
	if c.candidates == nil {
		return nil
	}
	return c.candidates()
}

// ConfigPath returns the first existing candidate, or the primary
// candidate when none exists yet. It returns "" when the client has no
// derivable location.
func (c *Client) ConfigPath() string {
	cands := c.Candidates()
	for _, p := range cands {
		if fileExists(p) {
			return p
		}
	}
	if len(cands) == 0 {
		return ""
	}
	return cands[0]
}

// Format returns the format of the client's current config path.
func (c *Client) Format() format.Format {
	return c.formatFor(c.ConfigPath())
}

// FormatFor returns the format used for path.
func (c *Client) FormatFor(path string) format.Format {
	return c.formatFor(path)
}

// ReadServers parses the servers currently configured in the client's
// file. A missing file yields an empty list.
func (c *Client) ReadServers() ([]*mcp.Server, error) {
	path := c.ConfigPath()
	if path == "" {
		return nil, errors.Newf("cannot determine config path for %s", c.DisplayName)
	}
	data, ok, err := fileutil.ReadIfExists(path)
	if err != nil {
		return nil, &errors.IOError{Path: path, Op: "read", Err: err}
	}
	if !ok {
		return []*mcp.Server{}, nil
	}
	return c.formatFor(path).Parse(data)
}

// Installed reports whether the client appears to be installed: its
// config file exists, a marker path exists, or one of its executables is
// on PATH.
func (c *Client) Installed() bool {
	if fileExists(c.ConfigPath()) {
		return true
	}
	for _, m := range c.markers {
		if pathExists(m) {
			return true
		}
	}
	for _, b := range c.binaries {
		if _, err := lookPath(b); err == nil {
			return true
		}
	}
	return false
}

func pathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// dirExists returns true if the path exists and is a directory.
func dirExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
