package format

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
)

const codexContainer = "mcp_servers"

// codexServer is the rendered shape of one [mcp_servers.<name>] table.
type codexServer struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args,omitempty"`
	Env     map[string]string `toml:"env,omitempty,inline"`
	Enabled *bool             `toml:"enabled,omitempty"`
}

type codexFormat struct {
	id string
}

// NewCodex returns the TOML format of the Codex CLI. Servers are written
// as [mcp_servers.<name>] tables; the older [[mcp_servers]] array with a
// name key is read and migrated on write. Network servers are always
// bridged through mcp-remote.
func NewCodex(id string) Format {
	return &codexFormat{id: id}
}

func (f *codexFormat) ID() string { return f.id }

// Capabilities reports that Codex has an enabled flag and no headers.
func (f *codexFormat) Capabilities() Capabilities {
	return Capabilities{DisabledFlag: true}
}

func (f *codexFormat) decode(raw []byte) (map[string]any, error) {
	doc := map[string]any{}
	if isBlank(raw) {
		return doc, nil
	}
	if err := toml.NewDecoder(bytes.NewReader(raw)).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// codexEntries returns the servers table keyed by name, converting the legacy
// array form.
func codexEntries(doc map[string]any) map[string]map[string]any {
	out := map[string]map[string]any{}
	switch c := doc[codexContainer].(type) {
	case map[string]any:
		for name, v := range c {
			if t, ok := v.(map[string]any); ok {
				out[name] = t
			}
		}
	case []any:
		for _, v := range c {
			t, ok := v.(map[string]any)
			if !ok {
				continue
			}
			name, _ := t["name"].(string)
			if name == "" {
				continue
			}
			entry := make(map[string]any, len(t))
			for k, v := range t {
				if k != "name" {
					entry[k] = v
				}
			}
			out[name] = entry
		}
	}
	return out
}

func (f *codexFormat) Parse(raw []byte) ([]*mcp.Server, error) {
	doc, err := f.decode(raw)
	if err != nil {
		return nil, parseErr(f.id, err)
	}
	entries := codexEntries(doc)
	out := make([]*mcp.Server, 0, len(entries))
	for _, name := range sortedKeys(entries) {
		out = append(out, f.parseEntry(name, entries[name]))
	}
	return out, nil
}

func (f *codexFormat) parseEntry(name string, t map[string]any) *mcp.Server {
	s := newParsed(name, f.id)
	if url, _ := t["url"].(string); url != "" {
		transport, _ := t["transport"].(string)
		s.Transport = mcp.InferTransport(url, transport)
		s.URL = url
	} else {
		command, _ := t["command"].(string)
		applyLocal(s, command, tomlStrings(t["args"]))
	}
	if env, ok := t["env"].(map[string]any); ok && len(env) > 0 {
		s.Env = stringMap(env)
	}
	if enabled, ok := t["enabled"].(bool); ok {
		s.Enabled = enabled
	}
	return s
}

func tomlStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f *codexFormat) Serialize(servers []*mcp.Server, existing []byte, previous []string) ([]byte, error) {
	doc, err := f.decode(existing)
	if err != nil {
		return nil, parseErr(f.id, err)
	}
	if c, ok := doc[codexContainer]; ok {
		switch c.(type) {
		case map[string]any, []any:
		default:
			return nil, serializeErr(f.id, errors.Newf("%s is not a table", codexContainer))
		}
	}

	keep := foreignFilter(servers, previous)
	next := map[string]any{}
	for name, entry := range codexEntries(doc) {
		if keep(name) {
			next[name] = entry
		}
	}
	for _, s := range servers {
		next[s.Name] = renderCodex(s)
	}
	doc[codexContainer] = next

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(false)
	if err := enc.Encode(doc); err != nil {
		return nil, serializeErr(f.id, err)
	}
	return buf.Bytes(), nil
}

func renderCodex(s *mcp.Server) codexServer {
	var out codexServer
	if s.IsLocal() {
		out = codexServer{Command: s.Command, Args: s.Args, Env: subprocessEnv(s)}
	} else {
		token, _ := BearerToken(s)
		out = codexServer{Command: ProxyCommand(), Args: ProxyArgs(s.URL, s.Transport, token)}
	}
	if !s.Enabled {
		disabled := false
		out.Enabled = &disabled
	}
	return out
}
