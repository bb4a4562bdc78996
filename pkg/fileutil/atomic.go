// Package fileutil provides crash-safe file writes with content validation
// and sibling backups.
package fileutil

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/conductor/internal/errors"
)

// LockFunc acquires exclusive write access to path and returns the
// function that releases it.
type LockFunc func(ctx context.Context, path string) (release func(), err error)

// rename is swapped by tests to inject a failure at the commit point.
var rename = os.Rename

type writeConfig struct {
	lock     LockFunc
	keep     int
	validate bool
}

// WriteOption configures AtomicWriteFile.
type WriteOption func(*writeConfig)

// WithLock serializes the write through fn.
func WithLock(fn LockFunc) WriteOption {
	return func(c *writeConfig) { c.lock = fn }
}

// WithBackups copies an existing target to a timestamped sibling before it
// is replaced, keeping the newest keep backups. keep <= 0 disables backups.
func WithBackups(keep int) WriteOption {
	return func(c *writeConfig) { c.keep = keep }
}

// WithoutValidation skips the content check.
func WithoutValidation() WriteOption {
	return func(c *writeConfig) { c.validate = false }
}

// AtomicWriteFile writes data to path using a temp file + rename pattern.
//
// Content whose extension names a known structured format is validated
// before anything touches disk. The parent directory is created if needed.
// The rename is the only step that modifies path, so a failure at any
// earlier point leaves the original file intact.
func AtomicWriteFile(ctx context.Context, path string, data []byte, perm os.FileMode, opts ...WriteOption) error {
	cfg := writeConfig{validate: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.validate {
		if err := Validate(path, data); err != nil {
			return err
		}
	}

	if cfg.lock != nil {
		release, err := cfg.lock(ctx, path)
		if err != nil {
			return errors.Wrap(err, "acquiring write lock")
		}
		defer release()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating parent directory")
	}

	// Create temp file in same directory for atomic rename (same filesystem required)
	tmp, err := os.CreateTemp(dir, ".conductor-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	tmpName := tmp.Name()
	defer func() {
		// Only remove if rename failed (file still exists)
		if _, statErr := os.Stat(tmpName); statErr == nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "setting file permissions")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	if cfg.keep > 0 {
		if _, err := os.Stat(path); err == nil {
			if _, err := CreateBackup(path); err != nil {
				return err
			}
			if err := PruneBackups(path, cfg.keep); err != nil {
				return err
			}
		}
	}

	if err := rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}

	return nil
}

// AtomicWriteJSON writes v as indented JSON to path atomically.
// Uses 2-space indentation and appends a trailing newline for POSIX compliance.
func AtomicWriteJSON(ctx context.Context, path string, v any, perm os.FileMode, opts ...WriteOption) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return err
	}
	return AtomicWriteFile(ctx, path, data, perm, opts...)
}

// MarshalJSON renders v as 2-space indented JSON with a trailing newline.
// HTML characters are not escaped, so shell commands stay readable.
func MarshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshaling JSON")
	}
	return buf.Bytes(), nil
}

// AtomicWriteYAML writes v as YAML to path atomically.
func AtomicWriteYAML(ctx context.Context, path string, v any, perm os.FileMode, opts ...WriteOption) (err error) {
	// yaml.Marshal panics on unmarshalable types; recover and return error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}

	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	return AtomicWriteFile(ctx, path, data, perm, opts...)
}
