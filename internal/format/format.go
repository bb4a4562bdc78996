package format

import (
	"bytes"
	"strings"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
)

// OAuthTokenEnv is the env key carrying a server's bearer token at sync time.
const OAuthTokenEnv = "OAUTH_TOKEN"

// Format converts between a host's native config text and canonical servers.
type Format interface {
	// ID names the host format in errors and logs.
	ID() string

	// Capabilities reports how network and disabled servers are rendered.
	Capabilities() Capabilities

	// Parse extracts servers from raw host text. Each server gets a fresh ID.
	Parse(raw []byte) ([]*mcp.Server, error)

	// Serialize merges servers into existing (nil for a new file), removing
	// entries named in previous that are no longer among servers.
	Serialize(servers []*mcp.Server, existing []byte, previous []string) ([]byte, error)
}

// Capabilities describe per-host rendering differences.
type Capabilities struct {
	// NativeHeaders hosts accept a headers map on network servers.
	NativeHeaders bool

	// DisabledFlag hosts can mark a server inactive; others omit it.
	DisabledFlag bool
}

// isBlank reports whether raw has no content worth parsing.
func isBlank(raw []byte) bool {
	return len(bytes.TrimSpace(raw)) == 0
}

func parseErr(id string, err error) error {
	return &errors.ParseError{Format: id, Err: err}
}

func serializeErr(id string, err error) error {
	return &errors.SerializeError{Format: id, Err: err}
}

// newParsed builds a canonical server for an entry read from a host.
func newParsed(name, source string) *mcp.Server {
	s := mcp.New(name)
	s.Source = source
	return s
}

// BearerToken returns the trimmed OAUTH_TOKEN of s, if any.
func BearerToken(s *mcp.Server) (string, bool) {
	tok := strings.TrimSpace(s.Env[OAuthTokenEnv])
	return tok, tok != ""
}

// subprocessEnv copies the env written for a stdio server.
func subprocessEnv(s *mcp.Server) map[string]string {
	if len(s.Env) == 0 {
		return nil
	}
	out := make(map[string]string, len(s.Env))
	for k, v := range s.Env {
		out[k] = v
	}
	return out
}
