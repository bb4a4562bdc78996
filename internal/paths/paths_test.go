package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/thoreinstein/conductor/internal/errors"
)

func TestHome(t *testing.T) {
	got := Home()
	want, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("os.UserHomeDir() failed: %v", err)
	}
	if got != want {
		t.Errorf("Home() = %q, want %q", got, want)
	}
}

func TestResolveHome(t *testing.T) {
	got, err := ResolveHome()
	want, _ := os.UserHomeDir()

	if err != nil {
		if !errors.Is(err, ErrHomeDirNotFound) {
			t.Errorf("unexpected error type: %v", err)
		}
	} else if got != want {
		t.Errorf("ResolveHome() = %q, want %q", got, want)
	}
}

func TestConfigHome(t *testing.T) {
	got := ConfigHome()
	if got == "" {
		t.Error("ConfigHome() returned empty string")
	}
	if !filepath.IsAbs(got) {
		t.Errorf("ConfigHome() = %q, want absolute path", got)
	}
}

func TestDirs_AppSupport(t *testing.T) {
	tests := []struct {
		name string
		dirs Dirs
		want string
	}{
		{
			name: "darwin",
			dirs: Dirs{OS: "darwin", Home: "/Users/me"},
			want: filepath.Join("/Users/me", "Library", "Application Support", "Claude", "claude_desktop_config.json"),
		},
		{
			name: "linux",
			dirs: Dirs{OS: "linux", Home: "/home/me", ConfigHome: "/home/me/.cfg"},
			want: filepath.Join("/home/me/.cfg", "Claude", "claude_desktop_config.json"),
		},
		{
			name: "linux without XDG",
			dirs: Dirs{OS: "linux", Home: "/home/me"},
			want: filepath.Join("/home/me/.config", "Claude", "claude_desktop_config.json"),
		},
		{
			name: "windows",
			dirs: Dirs{OS: "windows", Home: `C:\Users\me`, AppData: `C:\Users\me\AppData\Roaming`},
			want: filepath.Join(`C:\Users\me\AppData\Roaming`, "Claude", "claude_desktop_config.json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dirs.AppSupport("Claude", "claude_desktop_config.json"); got != tt.want {
				t.Errorf("AppSupport() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirs_HomeRelative(t *testing.T) {
	d := Dirs{OS: "darwin", Home: "/Users/me"}
	if got, want := d.InHome(".cursor", "mcp.json"), filepath.Join("/Users/me", ".cursor", "mcp.json"); got != want {
		t.Errorf("InHome() = %q, want %q", got, want)
	}
	if got, want := d.DotConfig("zed", "settings.json"), filepath.Join("/Users/me", ".config", "zed", "settings.json"); got != want {
		t.Errorf("DotConfig() = %q, want %q", got, want)
	}
}

func TestConductorFiles(t *testing.T) {
	dir := ConductorDir()
	if filepath.Base(dir) != ".conductor" {
		t.Errorf("ConductorDir() = %q, want .conductor suffix", dir)
	}
	if got := MasterDocumentPath("/x"); got != filepath.Join("/x", "config.json") {
		t.Errorf("MasterDocumentPath() = %q", got)
	}
	if got := SecretsPath("/x"); got != filepath.Join("/x", "secrets.db") {
		t.Errorf("SecretsPath() = %q", got)
	}
	if got := LockPath("/x"); got != filepath.Join("/x", "config.lock") {
		t.Errorf("LockPath() = %q", got)
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureDir(dir, 0); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !info.IsDir() {
		t.Error("EnsureDir() did not create a directory")
	}
	if err := EnsureDir(dir, 0); err != nil {
		t.Errorf("EnsureDir() second call error = %v", err)
	}
}

func TestExpand(t *testing.T) {
	t.Setenv("HOME", "/home/u")

	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/u"},
		{"~/.conductor", filepath.Join("/home/u", ".conductor")},
		{"/abs/dir", "/abs/dir"},
		{"rel/~/x", "rel/~/x"},
	}
	for _, tt := range tests {
		if got := Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
