package format

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/thoreinstein/conductor/internal/mcp"
)

// Element names JetBrains releases have used for a server entry.
var jetbrainsServerTags = map[string]bool{
	"serverConfiguration": true,
	"server":              true,
	"mcpServer":           true,
}

// xmlNode is a generic element that survives a decode/encode cycle.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// trim drops whitespace-only text so re-indenting is stable.
func (n *xmlNode) trim() {
	if len(n.Nodes) > 0 && strings.TrimSpace(n.Text) == "" {
		n.Text = ""
	}
	for i := range n.Nodes {
		n.Nodes[i].trim()
	}
}

func (n *xmlNode) isServer() bool {
	return jetbrainsServerTags[n.XMLName.Local]
}

type jetbrainsFormat struct {
	id string
}

// NewJetBrains returns the XML format used by JetBrains IDEs. JetBrains
// launches every server as a subprocess, so network servers are always
// bridged through mcp-remote.
func NewJetBrains(id string) Format {
	return &jetbrainsFormat{id: id}
}

func (f *jetbrainsFormat) ID() string { return f.id }

func (f *jetbrainsFormat) Capabilities() Capabilities {
	return Capabilities{DisabledFlag: true}
}

func (f *jetbrainsFormat) Parse(raw []byte) ([]*mcp.Server, error) {
	if isBlank(raw) {
		return []*mcp.Server{}, nil
	}
	var root xmlNode
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, parseErr(f.id, err)
	}
	out := []*mcp.Server{}
	walkServers(&root, func(n *xmlNode) {
		if s := f.parseServer(n); s != nil {
			out = append(out, s)
		}
	})
	return out, nil
}

// walkServers visits server elements at any depth without descending into
// them.
func walkServers(n *xmlNode, fn func(*xmlNode)) {
	if n.isServer() {
		fn(n)
		return
	}
	for i := range n.Nodes {
		walkServers(&n.Nodes[i], fn)
	}
}

func (f *jetbrainsFormat) parseServer(n *xmlNode) *mcp.Server {
	name, _ := n.attr("name")
	if name == "" {
		return nil
	}
	s := newParsed(name, f.id)
	if url, _ := n.attr("url"); url != "" {
		transport, _ := n.attr("transport")
		s.Transport = mcp.InferTransport(url, transport)
		s.URL = url
	} else {
		command, _ := n.attr("command")
		args, _ := n.attr("args")
		applyLocal(s, command, strings.Fields(args))
	}
	if v, ok := n.attr("enabled"); ok && strings.EqualFold(strings.TrimSpace(v), "false") {
		s.Enabled = false
	}

	env := map[string]string{}
	collectEnv(n, env)
	if len(env) > 0 {
		s.Env = env
	}
	return s
}

// collectEnv reads <env name=".." value=".."/> elements, directly or
// wrapped in <envs>.
func collectEnv(n *xmlNode, env map[string]string) {
	for i := range n.Nodes {
		c := &n.Nodes[i]
		switch c.XMLName.Local {
		case "envs":
			collectEnv(c, env)
		case "env":
			name, ok := c.attr("name")
			if !ok {
				name, ok = c.attr("key")
			}
			if ok && name != "" {
				value, _ := c.attr("value")
				env[name] = value
			}
		}
	}
}

func (f *jetbrainsFormat) Serialize(servers []*mcp.Server, existing []byte, previous []string) ([]byte, error) {
	root := xmlNode{
		XMLName: xml.Name{Local: "mcpSettings"},
		Attrs:   []xml.Attr{{Name: xml.Name{Local: "version"}, Value: "1"}},
	}
	if !isBlank(existing) {
		root = xmlNode{}
		if err := xml.Unmarshal(existing, &root); err != nil {
			return nil, parseErr(f.id, err)
		}
	}

	container := findChild(&root, "servers")
	if container == nil {
		root.Nodes = append(root.Nodes, xmlNode{XMLName: xml.Name{Local: "servers"}})
		container = &root.Nodes[len(root.Nodes)-1]
	}

	keep := foreignFilter(servers, previous)
	kept := container.Nodes[:0:0]
	for _, c := range container.Nodes {
		if c.isServer() {
			if name, _ := c.attr("name"); !keep(name) {
				continue
			}
		}
		kept = append(kept, c)
	}
	for _, s := range servers {
		kept = append(kept, renderJetBrains(s))
	}
	container.Nodes = kept
	root.trim()

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, serializeErr(f.id, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func findChild(n *xmlNode, local string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == local {
			return &n.Nodes[i]
		}
	}
	return nil
}

func renderJetBrains(s *mcp.Server) xmlNode {
	command, args := s.Command, s.Args
	var env map[string]string
	if s.IsLocal() {
		env = s.Env
	} else {
		token, _ := BearerToken(s)
		command, args = ProxyCommand(), ProxyArgs(s.URL, s.Transport, token)
	}

	enabled := "true"
	if !s.Enabled {
		enabled = "false"
	}
	n := xmlNode{
		XMLName: xml.Name{Local: "serverConfiguration"},
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "name"}, Value: s.Name},
			{Name: xml.Name{Local: "command"}, Value: command},
			{Name: xml.Name{Local: "args"}, Value: strings.Join(args, " ")},
			{Name: xml.Name{Local: "enabled"}, Value: enabled},
		},
	}
	if len(env) == 0 {
		return n
	}

	envs := xmlNode{XMLName: xml.Name{Local: "envs"}}
	for _, k := range sortedKeys(env) {
		envs.Nodes = append(envs.Nodes, xmlNode{
			XMLName: xml.Name{Local: "env"},
			Attrs: []xml.Attr{
				{Name: xml.Name{Local: "name"}, Value: k},
				{Name: xml.Name{Local: "value"}, Value: env[k]},
			},
		})
	}
	n.Nodes = append(n.Nodes, envs)
	return n
}
