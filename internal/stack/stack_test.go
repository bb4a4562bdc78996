package stack

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/store"
)

func server(name string, env map[string]string, secrets ...string) *mcp.Server {
	s := mcp.New(name)
	s.Command = "npx"
	s.Args = []string{"-y", name + "-mcp"}
	s.Env = env
	s.SecretEnvKeys = secrets
	return s
}

func TestExport_RedactsSecrets(t *testing.T) {
	gh := server("github", map[string]string{
		"GITHUB_TOKEN": "ghp_abcdefghijklmnop",
		"LOG_LEVEL":    "debug",
		"ENDPOINT":     "sk-live-123",
		"DECLARED":     "plain",
	}, "DECLARED")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := Export("dev", "my tools", nil, []*mcp.Server{gh}, now)
	require.NoError(t, err)

	assert.Equal(t, Version, s.Version)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, []string{}, s.Tags)
	require.Len(t, s.Servers, 1)

	got := s.Servers[0]
	assert.NotEqual(t, gh.ID, got.ID)
	assert.Equal(t, Source, got.Source)
	assert.True(t, got.CreatedAt.IsZero())
	assert.Equal(t, map[string]string{"LOG_LEVEL": "debug"}, got.Env)
	assert.Equal(t, []string{"DECLARED", "ENDPOINT", "GITHUB_TOKEN"}, got.SecretEnvKeys)

	assert.Equal(t, "ghp_abcdefghijklmnop", gh.Env["GITHUB_TOKEN"], "source server is untouched")

	data, err := s.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ghp_")
	assert.NotContains(t, string(data), "plain")
}

func TestExport_NoServers(t *testing.T) {
	_, err := Export("empty", "", nil, nil, time.Now())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestParse(t *testing.T) {
	bare := `{"name":"dev","description":"","servers":[{"name":"fs","transport":"stdio","command":"fs"}],"tags":[],"version":"1.0.0","createdAt":"2026-01-02T03:04:05Z"}`

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare", input: bare, want: "dev"},
		{name: "wrapped", input: `{"stack":` + bare + `}`, want: "dev"},
		{name: "not json", input: `{"name":`, wantErr: true},
		{name: "array", input: `[]`, wantErr: true},
		{name: "no servers", input: `{"name":"x"}`, wantErr: true},
		{name: "null server", input: `{"name":"x","servers":[null]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name)
			require.Len(t, s.Servers, 1)
			assert.Equal(t, "fs", s.Servers[0].Name)
		})
	}
}

func TestImport_RenamesCollisions(t *testing.T) {
	st := store.Open(t.TempDir())
	ctx := t.Context()
	_, err := st.AddServer(ctx, store.ServerInput{Name: "fs", Command: "fs"})
	require.NoError(t, err)
	_, err = st.AddServer(ctx, store.ServerInput{Name: "fs (1)", Command: "fs"})
	require.NoError(t, err)

	s := &Stack{Name: "dev", Servers: []*mcp.Server{server("fs", nil), server("git", nil)}}
	added, err := Import(ctx, st, s)
	require.NoError(t, err)

	assert.Equal(t, []string{"fs (2)", "git"}, mcp.Names(added))
	for _, srv := range added {
		assert.Equal(t, Source, srv.Source)
		assert.NotNil(t, srv.Env)
		assert.NotEqual(t, s.Servers[0].ID, srv.ID)
	}

	all, err := st.Servers()
	require.NoError(t, err)
	assert.Equal(t, []string{"fs", "fs (1)", "fs (2)", "git"}, mcp.Names(all))

	activity, err := st.Activity()
	require.NoError(t, err)
	assert.Equal(t, store.ActivityStack, activity[0].Type)
}

func TestImport_DropsDeclaredSecretValues(t *testing.T) {
	st := store.Open(t.TempDir())
	gh := server("github", map[string]string{"GITHUB_TOKEN": "ghp_literal", "ORG": "acme"}, "GITHUB_TOKEN")

	added, err := Import(t.Context(), st, &Stack{Name: "dev", Servers: []*mcp.Server{gh}})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, map[string]string{"ORG": "acme"}, added[0].Env)
	assert.Equal(t, []string{"GITHUB_TOKEN"}, added[0].SecretEnvKeys)

	data, err := os.ReadFile(st.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ghp_literal")
}

func TestImport_RejectsInvalidServer(t *testing.T) {
	st := store.Open(t.TempDir())
	bad := mcp.New("broken")
	s := &Stack{Name: "dev", Servers: []*mcp.Server{bad}}

	_, err := Import(t.Context(), st, s)
	require.Error(t, err)
	all, err := st.Servers()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFetch(t *testing.T) {
	body, err := json.Marshal(map[string]any{
		"stack": &Stack{Name: "remote", Servers: []*mcp.Server{server("fs", nil)}, Version: Version},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			_, _ = w.Write(body)
		case "/big":
			_, _ = w.Write([]byte(`{"name":"` + strings.Repeat("x", maxStackSize) + `"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	s, err := Fetch(t.Context(), srv.Client(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "remote", s.Name)
	assert.Equal(t, []string{"fs"}, mcp.Names(s.Servers))

	_, err = Fetch(t.Context(), srv.Client(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")

	_, err = Fetch(t.Context(), srv.Client(), srv.URL+"/big")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}
