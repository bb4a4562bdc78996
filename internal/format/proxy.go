package format

import (
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/thoreinstein/conductor/internal/mcp"
)

const (
	proxyPackage   = "mcp-remote"
	proxyHeader    = "--header"
	proxyTransport = "--transport"
	// httpOnly pins mcp-remote to the streamable HTTP transport.
	httpOnly = "http-only"
)

var (
	lookPath = exec.LookPath
	npxOnce  sync.Once
	npxPath  string
)

// ProxyCommand returns the absolute path of npx when it can be found on
// PATH, or "npx". GUI hosts often launch with a minimal PATH, so the
// resolved path is preferred.
func ProxyCommand() string {
	npxOnce.Do(func() {
		npxPath = "npx"
		if p, err := lookPath("npx"); err == nil && p != "" {
			npxPath = p
		}
	})
	return npxPath
}

// ProxyArgs returns the mcp-remote arguments that bridge a local stdio
// host to the network server at url. A non-empty token is passed as an
// Authorization header.
func ProxyArgs(url string, transport mcp.Transport, token string) []string {
	args := []string{"-y", proxyPackage, url}
	if transport == mcp.TransportStreamableHTTP {
		args = append(args, proxyTransport, httpOnly)
	}
	if token != "" {
		args = append(args, proxyHeader, "Authorization:Bearer "+token)
	}
	return args
}

// unproxy recognizes an mcp-remote invocation and recovers the network
// server it bridges to.
func unproxy(command string, args []string) (url string, transport mcp.Transport, ok bool) {
	if strings.TrimSuffix(filepath.Base(command), ".cmd") != "npx" {
		return "", "", false
	}
	i := 0
	for i < len(args) && strings.HasPrefix(args[i], "-") && args[i] != proxyPackage {
		i++
	}
	if i+1 >= len(args) || args[i] != proxyPackage {
		return "", "", false
	}
	url = args[i+1]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", "", false
	}
	transport = mcp.TransportSSE
	for j := i + 2; j+1 < len(args); j++ {
		if args[j] == proxyTransport && args[j+1] == httpOnly {
			transport = mcp.TransportStreamableHTTP
		}
	}
	return url, transport, true
}

// applyLocal fills the command fields of s from a host entry, recovering
// proxied network servers.
func applyLocal(s *mcp.Server, command string, args []string) {
	if url, transport, ok := unproxy(command, args); ok {
		s.Transport = transport
		s.URL = url
		return
	}
	s.Transport = mcp.TransportStdio
	s.Command = command
	s.Args = args
}
