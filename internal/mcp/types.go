package mcp

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Transport identifies how a host talks to an MCP server.
type Transport string

// Transport values.
const (
	// TransportStdio launches Command as a local subprocess.
	TransportStdio Transport = "stdio"

	// TransportSSE connects to URL via Server-Sent Events.
	TransportSSE Transport = "sse"

	// TransportStreamableHTTP connects to URL via the streamable HTTP transport.
	TransportStreamableHTTP Transport = "streamable-http"
)

// legacyStreamableHTTP is the spelling written by older master documents.
const legacyStreamableHTTP = "streamableHttp"

// UnmarshalJSON accepts the legacy camelCase spelling of streamable-http.
func (t *Transport) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseTransport(s)
	return nil
}

// ParseTransport maps a transport string to a Transport. Unrecognized
// values map to stdio.
func ParseTransport(s string) Transport {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sse":
		return TransportSSE
	case "streamable-http", strings.ToLower(legacyStreamableHTTP), "http", "streamable_http":
		return TransportStreamableHTTP
	default:
		return TransportStdio
	}
}

// InferTransport applies the normalizer rule for host entries: a URL with a
// declared streamable-http transport is streamable-http, any other URL is
// SSE, and no URL means stdio.
func InferTransport(url, declared string) Transport {
	if url == "" {
		return TransportStdio
	}
	if ParseTransport(declared) == TransportStreamableHTTP {
		return TransportStreamableHTTP
	}
	return TransportSSE
}

// Server is the canonical MCP server definition stored in the master
// document and converted to and from every host format.
type Server struct {
	// ID is generated once and never recovered from host files.
	ID string `json:"id"`

	// Name is unique within the master document (case-sensitive) and is
	// matched case-insensitively against host entries.
	Name string `json:"name"`

	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`

	Enabled   bool      `json:"enabled"`
	Transport Transport `json:"transport"`

	// Command and Args apply to stdio servers only.
	Command string   `json:"command,omitempty"`
	Args    []string `json:"args"`

	// URL applies to sse and streamable-http servers only.
	URL string `json:"url,omitempty"`

	Env map[string]string `json:"env"`

	// SecretEnvKeys names Env entries whose values live in the secret store.
	// Their values are grafted into Env only while syncing.
	SecretEnvKeys []string `json:"secretEnvKeys"`

	IconURL    string   `json:"iconUrl,omitempty"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source,omitempty"`
	RegistryID string   `json:"registryId,omitempty"`

	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`

	// unknownFields stores JSON fields written by newer versions so they
	// survive a read-modify-write of the master document.
	unknownFields map[string]json.RawMessage
}

// New returns an enabled stdio server with a fresh ID and timestamps.
func New(name string) *Server {
	now := time.Now().UTC()
	return &Server{
		ID:        uuid.NewString(),
		Name:      name,
		Enabled:   true,
		Transport: TransportStdio,
		Env:       map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsLocal reports whether the server runs as a subprocess.
func (s *Server) IsLocal() bool {
	return s.Transport == TransportStdio || (s.Transport == "" && s.URL == "")
}

// IsRemote reports whether the server is reached over the network.
func (s *Server) IsRemote() bool {
	return !s.IsLocal()
}

// Clone returns a deep copy of s.
func (s *Server) Clone() *Server {
	if s == nil {
		return nil
	}
	c := *s
	c.Args = slices.Clone(s.Args)
	c.Env = maps.Clone(s.Env)
	c.SecretEnvKeys = slices.Clone(s.SecretEnvKeys)
	c.Tags = slices.Clone(s.Tags)
	c.unknownFields = maps.Clone(s.unknownFields)
	return &c
}

// HasSecretKey reports whether key is declared as a secret env key.
func (s *Server) HasSecretKey(key string) bool {
	return slices.Contains(s.SecretEnvKeys, key)
}

// knownFields lists the JSON keys owned by Server.
var knownFields = []string{
	"id", "name", "displayName", "description", "enabled", "transport",
	"command", "args", "url", "env", "secretEnvKeys", "iconUrl", "tags",
	"source", "registryId", "createdAt", "updatedAt",
}

type serverAlias Server

// MarshalJSON writes the known fields and any preserved unknown fields.
// Nil collections are written as empty ones.
func (s *Server) MarshalJSON() ([]byte, error) {
	a := serverAlias(*s)
	if a.Args == nil {
		a.Args = []string{}
	}
	if a.Env == nil {
		a.Env = map[string]string{}
	}
	if a.SecretEnvKeys == nil {
		a.SecretEnvKeys = []string{}
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Transport == "" {
		a.Transport = TransportStdio
	}

	data, err := marshal(a)
	if err != nil || len(s.unknownFields) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.unknownFields {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return marshal(merged)
}

// UnmarshalJSON reads the known fields and keeps the rest for round-trip.
func (s *Server) UnmarshalJSON(data []byte) error {
	var a serverAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(raw, k)
	}

	*s = Server(a)
	if s.Transport == "" {
		s.Transport = InferTransport(s.URL, "")
	}
	if len(raw) > 0 {
		s.unknownFields = raw
	}
	return nil
}

// marshal is json.Marshal without HTML escaping.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
