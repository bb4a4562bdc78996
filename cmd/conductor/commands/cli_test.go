package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/thoreinstein/conductor/cmd/conductor/commands/app"
	"github.com/thoreinstein/conductor/internal/config"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/paths"
	"github.com/thoreinstein/conductor/internal/store"
)

// cliEnv is an isolated conductor setup with one custom client.
type cliEnv struct {
	dir      string
	cfgFile  string
	hostFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:      dir,
		cfgFile:  filepath.Join(dir, "config.yaml"),
		hostFile: filepath.Join(dir, "testhost", "mcp.json"),
	}

	cfg := fmt.Sprintf(`version: 1
conductor_dir: %s
default_clients: [testhost]
clients:
  - id: testhost
    name: Test Host
    format: mcpServers
    path: %s
`, filepath.Join(dir, "conductor"), env.hostFile)
	if err := os.WriteFile(env.cfgFile, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	home := filepath.Join(dir, "home")
	app.SetDirs(&paths.Dirs{OS: "linux", Home: home, ConfigHome: filepath.Join(home, ".config"), AppData: filepath.Join(home, ".config")})
	t.Cleanup(func() {
		app.SetDirs(nil)
		app.SetConfig(nil)
		configPath = ""
	})
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&logs)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", e.cfgFile}, args...))
	err := rootCmd.ExecuteContext(t.Context())
	if logs.Len() > 0 {
		t.Logf("%v stderr:\n%s", args, logs.String())
	}
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: error = %v\n%s", args, err, out)
	}
	return out
}

func TestCLI_AddSyncExportImport(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "server", "add", "fs", "--env", "ROOT=/tmp", "--", "npx", "-y", "@modelcontextprotocol/server-filesystem")
	if !strings.Contains(out, "Added server fs") {
		t.Errorf("add output = %q", out)
	}

	out = env.mustRun(t, "server", "list", "--json")
	var listed []*mcp.Server
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("server list JSON: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].Name != "fs" || listed[0].Command != "npx" {
		t.Fatalf("listed = %+v", listed)
	}

	out = env.mustRun(t, "sync", "--all")
	if !strings.Contains(out, "testhost: 1 server(s)") {
		t.Errorf("sync output = %q", out)
	}
	data, err := os.ReadFile(env.hostFile)
	if err != nil {
		t.Fatalf("reading host file: %v", err)
	}
	var host struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &host); err != nil {
		t.Fatalf("host file: %v\n%s", err, data)
	}
	if _, ok := host.MCPServers["fs"]; !ok {
		t.Errorf("host file missing fs:\n%s", data)
	}

	out = env.mustRun(t, "client", "list", "--all", "--json")
	if !strings.Contains(out, `"testhost"`) {
		t.Errorf("client list output missing testhost:\n%s", out)
	}

	out = env.mustRun(t, "activity", "--json")
	var entries []store.ActivityEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("activity JSON: %v\n%s", err, out)
	}
	var sawSync bool
	for _, e := range entries {
		if e.Type == store.ActivitySync {
			sawSync = true
		}
	}
	if !sawSync {
		t.Errorf("activity has no sync entry: %+v", entries)
	}

	stackFile := filepath.Join(env.dir, "team.json")
	env.mustRun(t, "stack", "export", "team", "-o", stackFile)
	out = env.mustRun(t, "stack", "import", stackFile)
	if !strings.Contains(out, "fs (2)") {
		t.Errorf("stack import output = %q", out)
	}
}

func TestCLI_SettingsAndConfig(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "settings", "set", "syncDelay", "9")
	out := env.mustRun(t, "settings")
	if !strings.Contains(out, "syncDelay") || !strings.Contains(out, "9") {
		t.Errorf("settings output = %q", out)
	}

	if _, err := env.run(t, "settings", "set", "backupRetention", "0"); err == nil {
		t.Error("backupRetention 0 should be rejected")
	}

	env.mustRun(t, "config", "set", "watch_debounce", "2s")
	data, err := os.ReadFile(env.cfgFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "watch_debounce: 2s") || !strings.Contains(string(data), "testhost") {
		t.Errorf("config file after set:\n%s", data)
	}

	if _, err := env.run(t, "config", "set", "default_clients", "nope"); err == nil {
		t.Error("unknown default client should be rejected")
	}

	out = env.mustRun(t, "config", "path")
	if strings.TrimSpace(out) != env.cfgFile {
		t.Errorf("config path = %q, want %q", out, env.cfgFile)
	}
}

func TestCLI_BackupCreateList(t *testing.T) {
	env := newCLIEnv(t)

	env.mustRun(t, "server", "add", "git", "--", "uvx", "mcp-server-git")
	out := env.mustRun(t, "backup", "create", "master")
	if !strings.Contains(out, "Backed up master") {
		t.Errorf("backup create output = %q", out)
	}

	out = env.mustRun(t, "backup", "list", "master")
	if !strings.Contains(out, "master") || strings.Contains(out, "No backups found") {
		t.Errorf("backup list output = %q", out)
	}
}

func TestCLI_DoctorExitCode(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "doctor", "--json")
	if err != nil {
		var exit *errors.ExitError
		if !errors.As(err, &exit) || exit.Err != nil {
			t.Fatalf("doctor error = %v, want silent exit error", err)
		}
	}
	var report struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("doctor JSON: %v\n%s", err, out)
	}
	if len(report.Results) < 3 {
		t.Errorf("results = %d, want at least 3", len(report.Results))
	}
}

func TestFilterActivity(t *testing.T) {
	now := time.Now()
	entries := []store.ActivityEntry{
		{Type: store.ActivitySync, Description: "a", Timestamp: now},
		{Type: store.ActivityError, Description: "b", Timestamp: now},
		{Type: store.ActivitySync, Description: "c", Timestamp: now},
	}

	if got := filterActivity(entries, "", 0); len(got) != 3 {
		t.Errorf("no filter = %d entries, want 3", len(got))
	}
	if got := filterActivity(entries, store.ActivitySync, 0); len(got) != 2 {
		t.Errorf("sync filter = %d entries, want 2", len(got))
	}
	if got := filterActivity(entries, "", 1); len(got) != 1 || got[0].Description != "a" {
		t.Errorf("limit 1 = %+v", got)
	}

	var buf bytes.Buffer
	if err := writeActivity(&buf, entries[:1], now.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "ago") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSetSetting(t *testing.T) {
	s := store.DefaultSettings()
	if err := setSetting(&s, "autoSync", "false"); err != nil || s.AutoSync {
		t.Errorf("autoSync: err=%v value=%v", err, s.AutoSync)
	}
	if err := setSetting(&s, "syncDelay", "0"); err != nil || s.SyncDelay != 0 {
		t.Errorf("syncDelay: err=%v value=%v", err, s.SyncDelay)
	}
	for _, bad := range [][2]string{{"autoSync", "maybe"}, {"syncDelay", "-1"}, {"backupRetention", "0"}, {"color", "red"}} {
		if err := setSetting(&s, bad[0], bad[1]); err == nil {
			t.Errorf("setSetting(%q, %q) error = nil", bad[0], bad[1])
		}
	}
}

func TestSetConfigValue(t *testing.T) {
	var cfg config.Config
	for _, kv := range [][2]string{
		{"version", "1"},
		{"conductor_dir", "~/.conductor"},
		{"default_clients", "cursor, ,zed"},
		{"watch_debounce", "750ms"},
		{"oauth.callback_timeout", "2m"},
	} {
		if err := setConfigValue(&cfg, kv[0], kv[1]); err != nil {
			t.Fatalf("setConfigValue(%q) error = %v", kv[0], err)
		}
	}
	want := config.Config{
		Version:        1,
		ConductorDir:   "~/.conductor",
		DefaultClients: []string{"cursor", "zed"},
		WatchDebounce:  750 * time.Millisecond,
		OAuth:          config.OAuthConfig{CallbackTimeout: 2 * time.Minute},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("cfg = %+v, want %+v", cfg, want)
	}

	for _, bad := range [][2]string{{"version", "x"}, {"watch_debounce", "soon"}, {"colors", "on"}} {
		if err := setConfigValue(&cfg, bad[0], bad[1]); err == nil {
			t.Errorf("setConfigValue(%q, %q) error = nil", bad[0], bad[1])
		}
	}
}

func TestDeclareSecret(t *testing.T) {
	srv := &mcp.Server{Name: "gh", Env: map[string]string{"TOKEN": "abc", "REGION": "eu"}}

	patch, ok := declareSecret(srv, "TOKEN")
	if !ok {
		t.Fatal("declareSecret() ok = false, want a patch")
	}
	if patch.SecretEnvKeys == nil || !reflect.DeepEqual(*patch.SecretEnvKeys, []string{"TOKEN"}) {
		t.Errorf("secret keys = %v, want [TOKEN]", patch.SecretEnvKeys)
	}
	if patch.Env == nil || !reflect.DeepEqual(*patch.Env, map[string]string{"REGION": "eu"}) {
		t.Errorf("env = %v, want the literal dropped", patch.Env)
	}
	if srv.Env["TOKEN"] != "abc" {
		t.Error("declareSecret() mutated the server")
	}

	declared := &mcp.Server{Name: "gh", SecretEnvKeys: []string{"TOKEN"}}
	if _, ok := declareSecret(declared, "TOKEN"); ok {
		t.Error("declareSecret() on an already vault-backed key should be a no-op")
	}
}
