package doctor

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestPermissionFixer_CanFix(t *testing.T) {
	tests := []struct {
		name   string
		issues []pathIssue
		want   bool
		count  int
	}{
		{name: "no issues", issues: nil, want: false, count: 0},
		{name: "non-fixable issue", issues: []pathIssue{{Path: "/a", Severity: SeverityError}}, want: false, count: 0},
		{name: "fixable issue", issues: []pathIssue{{Path: "/a", Fixable: true}}, want: true, count: 1},
		{name: "mixed", issues: []pathIssue{{Fixable: false}, {Fixable: true}, {Fixable: true}}, want: true, count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &PermissionFixer{}
			f.setIssues(tt.issues)
			if got := f.CanFix(); got != tt.want {
				t.Errorf("CanFix() = %v, want %v", got, tt.want)
			}
			if got := f.CountFixable(); got != tt.count {
				t.Errorf("CountFixable() = %v, want %v", got, tt.count)
			}
		})
	}
}

func TestPermissionFixer_Fix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission tests on Windows")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "mcp.json")
	if err := os.WriteFile(file, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(file, 0o666); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(sub, 0o777); err != nil {
		t.Fatal(err)
	}

	f := &PermissionFixer{}
	f.setIssues([]pathIssue{
		{Path: file, Client: "cursor", Type: "file", Fixable: true},
		{Path: "/skipped", Type: "file", Fixable: false},
		{Path: sub, Client: "cursor", Type: "directory", Fixable: true},
		{Path: "/nonexistent/path/mcp.json", Type: "file", Fixable: true},
		{Path: "/some/path", Type: "unknown", Fixable: true},
	})

	results := f.Fix()
	if len(results) != 4 {
		t.Fatalf("Fix() returned %d results, want 4", len(results))
	}
	for i, want := range []bool{true, true, false, false} {
		if results[i].Fixed != want {
			t.Errorf("results[%d].Fixed = %v, want %v (%s)", i, results[i].Fixed, want, results[i].Description)
		}
		if !want && results[i].Error == nil {
			t.Errorf("results[%d].Error = nil, want error", i)
		}
	}

	assertPerm(t, file, secureFilePerm)
	assertPerm(t, sub, secureDirPerm)
}

func assertPerm(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != want {
		t.Errorf("%s permissions = %04o, want %04o", path, got, want)
	}
}
