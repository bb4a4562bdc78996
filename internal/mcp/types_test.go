package mcp

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestServer_JSONRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		server *Server
	}{
		{
			name: "stdio server with args and env",
			server: &Server{
				ID:            "a1",
				Name:          "github",
				Enabled:       true,
				Transport:     TransportStdio,
				Command:       "npx",
				Args:          []string{"-y", "@modelcontextprotocol/server-github"},
				Env:           map[string]string{"GITHUB_ORG": "acme"},
				SecretEnvKeys: []string{"GITHUB_TOKEN"},
				Tags:          []string{"vcs"},
				Source:        "conductor",
				CreatedAt:     created,
				UpdatedAt:     created,
			},
		},
		{
			name: "streamable http server",
			server: &Server{
				ID:            "b2",
				Name:          "linear",
				Transport:     TransportStreamableHTTP,
				URL:           "https://mcp.linear.app/mcp",
				Args:          []string{},
				Env:           map[string]string{},
				SecretEnvKeys: []string{},
				Tags:          []string{},
				RegistryID:    "linear/linear",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.server)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var got Server
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if !reflect.DeepEqual(&got, tt.server) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", &got, tt.server)
			}
		})
	}
}

func TestServer_MarshalKeepsShellOperators(t *testing.T) {
	for _, raw := range []string{
		`{"name": "sh", "command": "sh", "args": ["-c", "a && b > out"]}`,
		`{"name": "sh", "command": "sh", "args": ["-c", "a && b > out"], "x-extra": "<keep>"}`,
	} {
		var s Server
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		data, err := s.MarshalJSON()
		if err != nil {
			t.Fatalf("MarshalJSON() error = %v", err)
		}
		if !strings.Contains(string(data), "a && b > out") {
			t.Errorf("MarshalJSON() escaped the command: %s", data)
		}
		if strings.Contains(string(data), `\u00`) {
			t.Errorf("MarshalJSON() contains HTML escapes: %s", data)
		}
	}
}

func TestServer_MarshalWritesEmptyCollections(t *testing.T) {
	data, err := json.Marshal(&Server{ID: "x", Name: "bare", Command: "true"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(data)
	for _, want := range []string{`"args":[]`, `"env":{}`, `"secretEnvKeys":[]`, `"transport":"stdio"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Marshal() = %s, missing %s", out, want)
		}
	}
	if strings.Contains(out, "createdAt") {
		t.Errorf("Marshal() = %s, zero timestamps should be omitted", out)
	}
}

func TestServer_PreservesUnknownFields(t *testing.T) {
	input := `{"id":"1","name":"x","command":"run","futureField":{"nested":true}}`

	var s Server
	if err := json.Unmarshal([]byte(input), &s); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	data, err := json.Marshal(&s)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"futureField":{"nested":true}`) {
		t.Errorf("unknown field lost: %s", data)
	}
}

func TestTransport_Unmarshal(t *testing.T) {
	tests := []struct {
		in   string
		want Transport
	}{
		{`{"name":"a","transport":"stdio"}`, TransportStdio},
		{`{"name":"a","transport":"sse","url":"https://x"}`, TransportSSE},
		{`{"name":"a","transport":"streamable-http","url":"https://x"}`, TransportStreamableHTTP},
		{`{"name":"a","transport":"streamableHttp","url":"https://x"}`, TransportStreamableHTTP},
		{`{"name":"a","url":"https://x"}`, TransportSSE},
		{`{"name":"a","command":"npx"}`, TransportStdio},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s Server
			if err := json.Unmarshal([]byte(tt.in), &s); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if s.Transport != tt.want {
				t.Errorf("Transport = %q, want %q", s.Transport, tt.want)
			}
		})
	}
}

func TestInferTransport(t *testing.T) {
	tests := []struct {
		url, declared string
		want          Transport
	}{
		{"", "", TransportStdio},
		{"", "streamable-http", TransportStdio},
		{"https://x", "", TransportSSE},
		{"https://x", "sse", TransportSSE},
		{"https://x", "streamable-http", TransportStreamableHTTP},
	}
	for _, tt := range tests {
		if got := InferTransport(tt.url, tt.declared); got != tt.want {
			t.Errorf("InferTransport(%q, %q) = %q, want %q", tt.url, tt.declared, got, tt.want)
		}
	}
}

func TestServer_IsLocalIsRemote(t *testing.T) {
	tests := []struct {
		name       string
		server     *Server
		wantLocal  bool
		wantRemote bool
	}{
		{"stdio", &Server{Transport: TransportStdio, Command: "x"}, true, false},
		{"sse", &Server{Transport: TransportSSE, URL: "https://x"}, false, true},
		{"streamable", &Server{Transport: TransportStreamableHTTP, URL: "https://x"}, false, true},
		{"implicit local", &Server{Command: "x"}, true, false},
		{"implicit remote", &Server{URL: "https://x"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.IsLocal(); got != tt.wantLocal {
				t.Errorf("IsLocal() = %v, want %v", got, tt.wantLocal)
			}
			if got := tt.server.IsRemote(); got != tt.wantRemote {
				t.Errorf("IsRemote() = %v, want %v", got, tt.wantRemote)
			}
		})
	}
}

func TestServer_Clone(t *testing.T) {
	orig := New("weather")
	orig.Args = []string{"-y"}
	orig.Env["A"] = "1"

	c := orig.Clone()
	c.Args[0] = "changed"
	c.Env["A"] = "2"

	if orig.Args[0] != "-y" || orig.Env["A"] != "1" {
		t.Error("Clone() shares state with the original")
	}
	if c.ID != orig.ID {
		t.Error("Clone() should keep the ID")
	}
}

func TestNew(t *testing.T) {
	a, b := New("a"), New("b")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("New() ids = %q, %q, want distinct non-empty", a.ID, b.ID)
	}
	if !a.Enabled || a.Transport != TransportStdio {
		t.Errorf("New() = %+v, want enabled stdio", a)
	}
}

func TestNameSet(t *testing.T) {
	s := NewNameSet("Weather", "github")
	if !s.Has("WEATHER") || !s.Has("GitHub") {
		t.Error("Has() should ignore case")
	}
	s.Add("weather")
	if len(s) != 2 {
		t.Errorf("len = %d, want 2", len(s))
	}
	if s["weather"] != "Weather" {
		t.Errorf("first spelling not kept: %q", s["weather"])
	}
}
