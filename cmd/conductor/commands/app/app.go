// Package app wires conductor's components for the CLI. Noun subpackages
// (server, stack, auth, backup) reach shared state through it instead of
// importing the root command.
package app

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/config"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/oauth"
	"github.com/thoreinstein/conductor/internal/paths"
	"github.com/thoreinstein/conductor/internal/platform"
	"github.com/thoreinstein/conductor/internal/secrets"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/internal/syncer"
)

var (
	mu   sync.Mutex
	cfg  *config.Config
	dirs *paths.Dirs
)

// SetConfig installs the loaded CLI configuration.
func SetConfig(c *config.Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
}

// Config returns the installed configuration, or defaults.
func Config() *config.Config {
	mu.Lock()
	defer mu.Unlock()
	if cfg == nil {
		return &config.Config{
			Version:       1,
			WatchDebounce: config.DefaultWatchDebounce,
			OAuth:         config.OAuthConfig{CallbackTimeout: config.DefaultCallbackTimeout},
		}
	}
	return cfg
}

// SetDirs overrides the base directories host paths are derived from.
// Tests point it at a temp tree; nil restores the current user's.
func SetDirs(d *paths.Dirs) {
	mu.Lock()
	defer mu.Unlock()
	dirs = d
}

func currentDirs() paths.Dirs {
	mu.Lock()
	defer mu.Unlock()
	if dirs != nil {
		return *dirs
	}
	return paths.Current()
}

// App holds the components a command works with.
type App struct {
	Config  *config.Config
	Store   *store.Store
	Clients *platform.Registry
	Backups *backup.Manager
	Vault   *secrets.SQLiteStore
	Tokens  *oauth.Manager
	Syncer  *syncer.Syncer
}

// Open builds an App from the installed configuration. The caller must
// Close it.
func Open() (*App, error) {
	c := Config()
	dir := c.Dir()
	if err := paths.EnsureDir(dir, 0); err != nil {
		return nil, errors.NewSystemError(err, "check permissions on "+dir)
	}

	clients, err := c.Registry(currentDirs())
	if err != nil {
		return nil, errors.NewConfigError(err)
	}

	settings, err := store.Open(dir).Settings()
	if err != nil {
		return nil, errors.NewConfigError(err)
	}
	backups := backup.NewManager(backup.WithRetentionCount(settings.BackupRetention))
	st := store.Open(dir, store.WithWriter(backups))

	vault, err := secrets.OpenSQLite(paths.SecretsPath(dir))
	if err != nil {
		return nil, errors.NewSystemError(err, "check permissions on "+paths.SecretsPath(dir))
	}

	tokens := oauth.NewManager(vault)
	if c.OAuth.CallbackTimeout > 0 {
		tokens.CallbackTimeout = c.OAuth.CallbackTimeout
	}

	return &App{
		Config:  c,
		Store:   st,
		Clients: clients,
		Backups: backups,
		Vault:   vault,
		Tokens:  tokens,
		Syncer:  syncer.New(st, clients, backups, vault, tokens),
	}, nil
}

// Close releases the secret vault.
func (a *App) Close() error {
	if a == nil || a.Vault == nil {
		return nil
	}
	return a.Vault.Close()
}

// Run opens an App, calls fn, and closes it.
func Run(fn func(*App) error) error {
	a, err := Open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "encoding JSON")
}

// Truncate shortens s to maxLen characters, adding "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
