package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/platform"
)

// Validation errors for configuration fields.
var (
	// ErrInvalidClient indicates an unrecognized or malformed client entry.
	ErrInvalidClient = errors.New("invalid client")

	// ErrInvalidPath indicates a path value is malformed.
	ErrInvalidPath = errors.New("invalid path")
)

// Validate checks a Config for validity.
// Returns nil if valid, or a slice of validation errors.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, errors.Newf("unsupported config version: %d", cfg.Version))
	}

	if err := validatePath(cfg.ConductorDir); err != nil {
		errs = append(errs, &PathError{Field: "conductor_dir", Path: cfg.ConductorDir, Err: err})
	}

	if cfg.WatchDebounce < 0 {
		errs = append(errs, errors.Newf("watch_debounce must not be negative: %s", cfg.WatchDebounce))
	}
	if cfg.OAuth.CallbackTimeout < 0 {
		errs = append(errs, errors.Newf("oauth.callback_timeout must not be negative: %s", cfg.OAuth.CallbackTimeout))
	}

	known := platform.BuiltinIDs()
	for i, c := range cfg.Clients {
		field := fmt.Sprintf("clients[%d]", i)
		switch {
		case c.ID == "":
			errs = append(errs, &ClientError{Field: field, Reason: "id is required", Err: ErrInvalidClient})
			continue
		case slices.Contains(known, c.ID):
			errs = append(errs, &ClientError{Field: field, ID: c.ID, Reason: "id is already a built-in client", Err: ErrInvalidClient})
			continue
		}
		if _, err := platform.NewFormat(c.Format, c.ID); err != nil {
			errs = append(errs, &ClientError{Field: field, ID: c.ID, Reason: err.Error(), Err: ErrInvalidClient})
		}
		if c.Path == "" {
			errs = append(errs, &ClientError{Field: field, ID: c.ID, Reason: "path is required", Err: ErrInvalidClient})
		} else if err := validatePath(c.Path); err != nil {
			errs = append(errs, &PathError{Field: field + ".path", Path: c.Path, Err: err})
		}
		known = append(known, c.ID)
	}

	for _, id := range cfg.DefaultClients {
		if !slices.Contains(known, id) {
			errs = append(errs, errors.Newf("invalid default client: %s", id))
		}
	}

	return errs
}

// validatePath checks if a path string is well-formed.
// It does not check if the path exists, only that it's syntactically valid.
func validatePath(path string) error {
	// Empty paths are valid (they mean "use default")
	if path == "" {
		return nil
	}

	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}

	cleaned := filepath.Clean(path)
	if cleaned == "" || cleaned == "." {
		return ErrInvalidPath
	}

	return nil
}

// ClientError describes a malformed custom client entry.
type ClientError struct {
	Field  string
	ID     string
	Reason string
	Err    error
}

func (e *ClientError) Error() string {
	if e.ID == "" {
		return e.Err.Error() + " " + e.Field + ": " + e.Reason
	}
	return e.Err.Error() + " " + e.ID + ": " + e.Reason
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// PathError represents an error for a specific path field.
type PathError struct {
	Field string
	Path  string
	Err   error
}

func (e *PathError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Path
}

func (e *PathError) Unwrap() error {
	return e.Err
}
