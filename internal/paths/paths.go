package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName names conductor's own directories.
const AppName = "conductor"

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// Home returns the user's home directory, or "" if it cannot be determined.
// Use ResolveHome for proper error handling.
func Home() string {
	h, _ := ResolveHome()
	return h
}

// ResolveHome returns the user's home directory.
// Returns ErrHomeDirNotFound if the directory cannot be determined.
func ResolveHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(ErrHomeDirNotFound, err.Error())
	}
	return home, nil
}

// ConfigHome returns the XDG config home directory.
// On Linux: ~/.config
// On macOS: ~/Library/Application Support
// On Windows: %LOCALAPPDATA%
func ConfigHome() string {
	return xdg.ConfigHome
}

// Dirs is the set of base directories host applications store their
// settings under. Tests construct it directly to point at a temp tree.
type Dirs struct {
	// OS is a runtime.GOOS value.
	OS string

	// Home is the user's home directory.
	Home string

	// ConfigHome is $XDG_CONFIG_HOME on Linux (usually ~/.config).
	ConfigHome string

	// AppData is the roaming application data directory on Windows.
	AppData string
}

// Current returns the base directories of the running user.
func Current() Dirs {
	d := Dirs{
		OS:         runtime.GOOS,
		Home:       Home(),
		ConfigHome: xdg.ConfigHome,
		AppData:    os.Getenv("APPDATA"),
	}
	if d.AppData == "" {
		d.AppData = xdg.ConfigHome
	}
	return d
}

// AppSupport returns the per-user settings directory a desktop application
// named app uses, joined with elem:
//
//	darwin:  ~/Library/Application Support/<app>
//	windows: %APPDATA%\<app>
//	other:   $XDG_CONFIG_HOME/<app>
func (d Dirs) AppSupport(app string, elem ...string) string {
	var base string
	switch d.OS {
	case "darwin":
		base = filepath.Join(d.Home, "Library", "Application Support")
	case "windows":
		base = d.AppData
	default:
		base = d.ConfigHome
		if base == "" {
			base = filepath.Join(d.Home, ".config")
		}
	}
	return filepath.Join(append([]string{base, app}, elem...)...)
}

// InHome joins elem onto the home directory.
func (d Dirs) InHome(elem ...string) string {
	return filepath.Join(append([]string{d.Home}, elem...)...)
}

// DotConfig returns ~/.config/<elem> regardless of OS. Several CLI tools
// use this location even on macOS.
func (d Dirs) DotConfig(elem ...string) string {
	return filepath.Join(append([]string{d.Home, ".config"}, elem...)...)
}

// ConductorDir returns the directory holding the master document and the
// secret vault: ~/.conductor.
func ConductorDir() string {
	return filepath.Join(Home(), "."+AppName)
}

// MasterDocumentPath returns <dir>/config.json.
func MasterDocumentPath(dir string) string {
	return filepath.Join(dir, "config.json")
}

// SecretsPath returns <dir>/secrets.db.
func SecretsPath(dir string) string {
	return filepath.Join(dir, "secrets.db")
}

// LockPath returns <dir>/config.lock, the cross-process lock file guarding
// the master document.
func LockPath(dir string) string {
	return filepath.Join(dir, "config.lock")
}

// PreferencesDir returns $XDG_CONFIG_HOME/conductor, where CLI preferences
// (config.yaml) live.
func PreferencesDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Expand replaces a leading "~" with the home directory.
func Expand(path string) string {
	if path == "~" {
		return Home()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(Home(), rest)
	}
	return path
}
