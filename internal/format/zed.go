package format

import (
	"encoding/json"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// zedCommand is the nested command form accepted by older Zed releases.
type zedCommand struct {
	Path string         `json:"path"`
	Args []string       `json:"args"`
	Env  map[string]any `json:"env"`
}

// NewZed returns the format of Zed's settings.json, where servers live
// under "context_servers". Zed runs every server as a subprocess, so
// network servers are always bridged through mcp-remote, and disabled
// servers are omitted.
func NewZed(id string) Format {
	f := &jsonFormat{id: id, container: []string{"context_servers"}}
	f.render = renderZed
	f.parse = func(name string, entry object) *mcp.Server {
		return parseZed(id, name, entry)
	}
	return f
}

func renderZed(s *mcp.Server) (jsonEntry, bool) {
	if !s.Enabled {
		return jsonEntry{}, false
	}
	if s.IsLocal() {
		return jsonEntry{Command: s.Command, Args: s.Args, Env: subprocessEnv(s)}, true
	}
	token, _ := BearerToken(s)
	return jsonEntry{Command: ProxyCommand(), Args: ProxyArgs(s.URL, s.Transport, token)}, true
}

func parseZed(source, name string, entry object) *mcp.Server {
	s := newParsed(name, source)

	if url := entry.str("url"); url != "" {
		s.Transport = mcp.InferTransport(url, entry.str("transport"))
		s.URL = url
		return s
	}

	command, args, env := entry.str("command"), entry.strings("args"), entry.env("env")
	if command == "" {
		var nested zedCommand
		if raw, ok := entry["command"]; ok && json.Unmarshal(raw, &nested) == nil {
			command, args = nested.Path, nested.Args
			if len(nested.Env) > 0 {
				env = stringMap(nested.Env)
			}
		}
	}
	applyLocal(s, command, args)
	if len(env) > 0 {
		s.Env = env
	}
	return s
}
