package stack

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/stack"
	"github.com/thoreinstein/conductor/internal/store"
)

const teamStack = `{
  "name": "team",
  "description": "shared tools",
  "version": "1.0.0",
  "tags": [],
  "servers": [
    {"id": "x", "name": "github", "enabled": true, "transport": "stdio",
     "command": "npx", "args": ["-y", "server-github"], "env": {},
     "secretEnvKeys": ["GITHUB_TOKEN"], "tags": []}
  ]
}`

func newCmd(t *testing.T, stdin string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.SetContext(t.Context())
	cmd.SetIn(strings.NewReader(stdin))
	return cmd
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "team.json")
	if err := os.WriteFile(file, []byte(teamStack), 0o600); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(teamStack))
	}))
	defer srv.Close()

	tests := []struct {
		name  string
		src   string
		stdin string
	}{
		{name: "file", src: file},
		{name: "stdin", src: "-", stdin: teamStack},
		{name: "url", src: srv.URL + "/team.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, data, err := load(newCmd(t, tt.stdin), tt.src)
			if err != nil {
				t.Fatalf("load() error = %v", err)
			}
			if s.Name != "team" || len(s.Servers) != 1 {
				t.Errorf("stack = %+v", s)
			}
			if !json.Valid(data) {
				t.Error("load() returned invalid JSON bytes")
			}
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"name": "x"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, src := range []string{filepath.Join(dir, "missing.json"), bad} {
		if _, _, err := load(newCmd(t, ""), src); err == nil {
			t.Errorf("load(%q) error = nil, want error", src)
		}
	}
}

func TestSelectServers(t *testing.T) {
	doc := store.NewDocument()
	doc.Servers = []*mcp.Server{
		{ID: "1", Name: "github", Enabled: true},
		{ID: "2", Name: "linear", Enabled: false},
	}

	got, err := selectServers(doc, nil, false)
	if err != nil || len(got) != 1 || got[0].Name != "github" {
		t.Errorf("enabled only = %v, %v", got, err)
	}

	got, err = selectServers(doc, nil, true)
	if err != nil || len(got) != 2 {
		t.Errorf("all = %v, %v", got, err)
	}

	got, err = selectServers(doc, []string{"2"}, false)
	if err != nil || len(got) != 1 || got[0].Name != "linear" {
		t.Errorf("by id = %v, %v", got, err)
	}

	if _, err := selectServers(doc, []string{"nope"}, false); err == nil {
		t.Error("unknown ref error = nil, want error")
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := summarize([]store.SavedStack{
		{ID: "a", JSON: json.RawMessage(teamStack), CreatedAt: now},
		{ID: "b", JSON: json.RawMessage(`{"name": "empty"}`), CreatedAt: now},
	})

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Name != "team" || rows[0].Servers != 1 || rows[0].Error != "" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Error == "" {
		t.Errorf("rows[1] should carry a parse error: %+v", rows[1])
	}

	var buf bytes.Buffer
	if err := writeList(&buf, rows); err != nil {
		t.Fatalf("writeList() error = %v", err)
	}
	if !strings.Contains(buf.String(), "(invalid)") || !strings.Contains(buf.String(), "team") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteImported(t *testing.T) {
	s, err := stack.Parse([]byte(teamStack))
	if err != nil {
		t.Fatal(err)
	}
	added := []*mcp.Server{{Name: "github (2)", SecretEnvKeys: []string{"GITHUB_TOKEN"}}}

	var buf bytes.Buffer
	writeImported(&buf, s, added)

	out := buf.String()
	for _, want := range []string{"Imported 1 server(s) from stack team", "github (2)", "needs secret GITHUB_TOKEN"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
