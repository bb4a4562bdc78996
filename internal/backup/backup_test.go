package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/guard"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

func newTestManager() *Manager {
	return NewManager(WithGuard(guard.New(guard.WithSuppression(0))))
}

func TestManager_WriteCreatesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	m := newTestManager()

	if err := m.Write(t.Context(), path, []byte(`{"v":1}`), 0o600); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := m.List(path); !errors.Is(err, ErrNoBackupsFound) {
		t.Errorf("List() after first write error = %v, want ErrNoBackupsFound", err)
	}

	if err := m.Write(t.Context(), path, []byte(`{"v":2}`), 0o600); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	infos, err := m.List(path)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 1 || infos[0].Size != int64(len(`{"v":1}`)) || infos[0].SHA256 == "" {
		t.Errorf("List() = %+v", infos)
	}
}

func TestManager_WriteWrapsIOError(t *testing.T) {
	m := newTestManager()
	err := m.Write(t.Context(), filepath.Join(t.TempDir(), "bad.json"), []byte("{"), 0o600)

	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Write() error = %v, want *IOError", err)
	}
	if !errors.Is(err, fileutil.ErrValidation) {
		t.Errorf("Write() error = %v, want ErrValidation cause", err)
	}
}

func TestManager_Restore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	m := newTestManager()

	original := []byte("[mcp_servers.a]\ncommand = \"one\"\n")
	if err := os.WriteFile(path, original, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := m.Write(t.Context(), path, []byte("[mcp_servers.b]\ncommand = \"two\"\n"), 0o600); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// Make the restore's own backup land on a different second.
	time.Sleep(1100 * time.Millisecond)

	info, err := m.Restore(t.Context(), path, "")
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != string(original) {
		t.Errorf("restored content = %q, want %q", got, original)
	}
	if info.Path == "" {
		t.Error("Restore() returned empty Info")
	}

	infos, err := m.List(path)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected the replaced content to be backed up too, got %d backups", len(infos))
	}
}

func TestManager_RestoreRejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("hi"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := newTestManager().Restore(t.Context(), path, other)
	if !errors.Is(err, ErrForeignBackup) {
		t.Errorf("Restore() error = %v, want ErrForeignBackup", err)
	}
}

func TestManager_RestoreCorrupted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	bak := fileutil.BackupName(path, time.Now())
	if err := os.WriteFile(bak, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := newTestManager().Restore(t.Context(), path, bak)
	if !errors.Is(err, ErrBackupCorrupted) {
		t.Errorf("Restore() error = %v, want ErrBackupCorrupted", err)
	}
}

func TestManager_Prune(t *testing.T) {
	m := newTestManager()
	if err := m.Prune(filepath.Join(t.TempDir(), "x.json"), 0); err == nil {
		t.Error("Prune(keep=0) expected error")
	}
}
