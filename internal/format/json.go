package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
)

// object is a decoded JSON object whose values are kept verbatim.
type object map[string]json.RawMessage

// jsonEntry is the rendered shape of one server in a JSON host file.
type jsonEntry struct {
	Type      string            `json:"type,omitempty"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Transport string            `json:"transport,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Disabled  bool              `json:"disabled,omitempty"`
}

// jsonFormat is a JSON (or JSONC) host file with servers keyed by name
// under a container path.
type jsonFormat struct {
	id        string
	container []string
	caps      Capabilities

	render func(s *mcp.Server) (jsonEntry, bool)
	parse  func(name string, entry object) *mcp.Server
}

// NewMCPServers returns the format used by hosts that keep servers under a
// top-level "mcpServers" object (Claude Desktop, Claude Code, Cursor,
// Windsurf, Antigravity).
func NewMCPServers(id string, caps Capabilities) Format {
	f := &jsonFormat{id: id, container: []string{"mcpServers"}, caps: caps}
	f.render = f.renderStandard
	f.parse = f.parseStandard
	return f
}

// NewVSCodeSettings returns the format of VS Code's settings.json, where
// servers live under "mcp" -> "servers".
func NewVSCodeSettings(id string) Format {
	return newVSCode(id, []string{"mcp", "servers"})
}

// NewVSCodeMCP returns the format of a dedicated VS Code mcp.json, where
// servers live under a top-level "servers" object.
func NewVSCodeMCP(id string) Format {
	return newVSCode(id, []string{"servers"})
}

func newVSCode(id string, container []string) Format {
	f := &jsonFormat{
		id:        id,
		container: container,
		caps:      Capabilities{NativeHeaders: true, DisabledFlag: true},
	}
	f.render = func(s *mcp.Server) (jsonEntry, bool) {
		e, ok := f.renderStandard(s)
		e.Type = vscodeType(s.Transport)
		e.Transport = ""
		return e, ok
	}
	f.parse = f.parseStandard
	return f
}

func vscodeType(t mcp.Transport) string {
	switch t {
	case mcp.TransportSSE:
		return "sse"
	case mcp.TransportStreamableHTTP:
		return "http"
	default:
		return "stdio"
	}
}

func (f *jsonFormat) ID() string { return f.id }

func (f *jsonFormat) Capabilities() Capabilities { return f.caps }

func (f *jsonFormat) Parse(raw []byte) ([]*mcp.Server, error) {
	root, err := decodeObject(raw)
	if err != nil {
		return nil, parseErr(f.id, err)
	}
	servers, err := lookupContainer(root, f.container)
	if err != nil || servers == nil {
		// A container of the wrong type cannot hold servers.
		return []*mcp.Server{}, nil
	}

	out := make([]*mcp.Server, 0, len(servers))
	for _, name := range sortedKeys(servers) {
		var entry object
		if json.Unmarshal(servers[name], &entry) != nil || entry == nil {
			continue
		}
		out = append(out, f.parse(name, entry))
	}
	return out, nil
}

func (f *jsonFormat) Serialize(servers []*mcp.Server, existing []byte, previous []string) ([]byte, error) {
	root, err := decodeObject(existing)
	if err != nil {
		return nil, parseErr(f.id, err)
	}
	current, err := lookupContainer(root, f.container)
	if err != nil {
		return nil, serializeErr(f.id, err)
	}

	keep := foreignFilter(servers, previous)
	next := make(object, len(servers)+len(current))
	for name, raw := range current {
		if keep(name) {
			next[name] = raw
		}
	}
	for _, s := range servers {
		entry, ok := f.render(s)
		if !ok {
			continue
		}
		raw, err := marshalCompact(entry)
		if err != nil {
			return nil, serializeErr(f.id, err)
		}
		next[s.Name] = raw
	}

	if err := storeContainer(root, f.container, next); err != nil {
		return nil, serializeErr(f.id, err)
	}
	out, err := marshalIndent(root)
	if err != nil {
		return nil, serializeErr(f.id, err)
	}
	return out, nil
}

// renderStandard renders s for an "mcpServers"-style host.
func (f *jsonFormat) renderStandard(s *mcp.Server) (jsonEntry, bool) {
	if !s.Enabled && !f.caps.DisabledFlag {
		return jsonEntry{}, false
	}
	e := jsonEntry{Disabled: !s.Enabled}
	if s.IsLocal() {
		e.Command = s.Command
		e.Args = s.Args
		e.Env = subprocessEnv(s)
		return e, true
	}

	token, hasToken := BearerToken(s)
	if hasToken && !f.caps.NativeHeaders {
		e.Command = ProxyCommand()
		e.Args = ProxyArgs(s.URL, s.Transport, token)
		return e, true
	}
	e.URL = s.URL
	if s.Transport == mcp.TransportStreamableHTTP {
		e.Transport = string(mcp.TransportStreamableHTTP)
	}
	if hasToken {
		e.Headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return e, true
}

// parseStandard normalizes one "mcpServers"-style entry.
func (f *jsonFormat) parseStandard(name string, entry object) *mcp.Server {
	s := newParsed(name, f.id)
	if url := entry.str("url"); url != "" {
		declared := entry.str("transport")
		if declared == "" {
			declared = entry.str("type")
		}
		s.Transport = mcp.InferTransport(url, declared)
		s.URL = url
	} else {
		applyLocal(s, entry.str("command"), entry.strings("args"))
	}
	if env := entry.env("env"); len(env) > 0 {
		s.Env = env
	}
	if b, ok := entry.boolean("disabled"); ok && b {
		s.Enabled = false
	}
	if b, ok := entry.boolean("enabled"); ok && !b {
		s.Enabled = false
	}
	return s
}

// decodeObject parses JSON or JSONC text into an object. Blank input is an
// empty document.
func decodeObject(raw []byte) (object, error) {
	if isBlank(raw) {
		return object{}, nil
	}
	std, err := hujson.Standardize(bytes.Clone(raw))
	if err != nil {
		return nil, err
	}
	var root object
	if err := json.Unmarshal(std, &root); err != nil {
		return nil, err
	}
	if root == nil {
		root = object{}
	}
	return root, nil
}

// lookupContainer walks path and returns the object found there, or nil if
// any segment is absent. A segment that is present but not an object is an
// error.
func lookupContainer(root object, path []string) (object, error) {
	cur := root
	for i, key := range path {
		raw, ok := cur[key]
		if !ok || isNull(raw) {
			return nil, nil
		}
		var next object
		if err := json.Unmarshal(raw, &next); err != nil {
			return nil, errors.Newf("%s is not an object", strings.Join(path[:i+1], "."))
		}
		cur = next
	}
	return cur, nil
}

// storeContainer writes value at path, creating intermediate objects and
// keeping their other keys.
func storeContainer(root object, path []string, value object) error {
	if len(path) == 1 {
		raw, err := marshalCompact(value)
		if err != nil {
			return err
		}
		root[path[0]] = raw
		return nil
	}
	child := object{}
	if raw, ok := root[path[0]]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &child); err != nil {
			return errors.Newf("%s is not an object", path[0])
		}
	}
	if err := storeContainer(child, path[1:], value); err != nil {
		return err
	}
	raw, err := marshalCompact(child)
	if err != nil {
		return err
	}
	root[path[0]] = raw
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// marshalCompact encodes v without HTML escaping so shell operators in
// commands survive unchanged.
func marshalCompact(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// marshalIndent encodes v as two-space indented JSON with a trailing newline.
func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o object) str(key string) string {
	var s string
	if raw, ok := o[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

func (o object) boolean(key string) (bool, bool) {
	var b bool
	if raw, ok := o[key]; ok && json.Unmarshal(raw, &b) == nil {
		return b, true
	}
	return false, false
}

// strings returns the string elements of an array, skipping other values.
func (o object) strings(key string) []string {
	var items []any
	if raw, ok := o[key]; !ok || json.Unmarshal(raw, &items) != nil {
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

// env returns a string map, formatting scalar values and skipping others.
func (o object) env(key string) map[string]string {
	var m map[string]any
	if raw, ok := o[key]; !ok || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	return stringMap(m)
}

func stringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v := v.(type) {
		case string:
			out[k] = v
		case bool, float64, int64:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
