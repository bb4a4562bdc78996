package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// seed writes path and n backups of it, one minute apart.
func seed(t *testing.T, path string, n int) {
	t.Helper()
	if err := os.WriteFile(path, []byte(`{"mcpServers": {}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	for i := range n {
		name := fileutil.BackupName(path, base.Add(time.Duration(i)*time.Minute))
		if err := os.WriteFile(name, []byte(`{"mcpServers": {}}`), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	cursor := filepath.Join(dir, "cursor", "mcp.json")
	zed := filepath.Join(dir, "zed", "settings.json")
	for _, p := range []string{cursor, zed} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	seed(t, cursor, 2)
	seed(t, zed, 0)

	groups, err := collect(backup.NewManager(), []target{
		{ID: "cursor", Path: cursor},
		{ID: "zed", Path: zed},
	})
	if err != nil {
		t.Fatalf("collect() error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].ID != "cursor" || len(groups[0].Backups) != 2 {
		t.Errorf("group = %+v", groups[0])
	}
	if !groups[0].Backups[0].CreatedAt.After(groups[0].Backups[1].CreatedAt) {
		t.Error("backups should be newest first")
	}

	var buf bytes.Buffer
	if err := writeList(&buf, groups); err != nil {
		t.Fatalf("writeList() error = %v", err)
	}
	if !strings.Contains(buf.String(), "TARGET") || !strings.Contains(buf.String(), "cursor") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestWriteList_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeList(&buf, nil); err != nil {
		t.Fatalf("writeList() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No backups found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	seed(t, path, 4)

	m := backup.NewManager()
	removed, err := prune(m, []target{{ID: "cursor", Path: path}, {ID: "missing", Path: filepath.Join(dir, "none.json")}}, 1)
	if err != nil {
		t.Fatalf("prune() error = %v", err)
	}
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	infos, err := m.List(path)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("remaining = %d, want 1", len(infos))
	}
}
