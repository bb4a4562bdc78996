package validator

import (
	"fmt"

	"github.com/thoreinstein/conductor/internal/errors"
)

// Sentinel errors for validation failures.
var (
	// ErrMissingServerName indicates a server has no name.
	ErrMissingServerName = errors.New("server name is required")

	// ErrMissingCommand indicates a stdio server has no command.
	ErrMissingCommand = errors.New("stdio server requires command")

	// ErrMissingURL indicates a network server has no URL.
	ErrMissingURL = errors.New("remote server requires URL")

	// ErrInvalidTransport indicates an unrecognized transport value.
	ErrInvalidTransport = errors.New("invalid transport value")

	// ErrEmptyEnvKey indicates an environment variable has an empty key.
	ErrEmptyEnvKey = errors.New("environment variable key is empty")

	// ErrSecretAtRest indicates a secret env value is stored in plain env.
	ErrSecretAtRest = errors.New("secret env value stored in master document")

	// ErrDuplicateName indicates two servers share a name.
	ErrDuplicateName = errors.New("duplicate server name")

	// ErrCaseCollision indicates two servers differ only in letter case.
	ErrCaseCollision = errors.New("server names differ only in case")
)

// Severity indicates whether a validation issue is an error or warning.
type Severity int

const (
	// SeverityError indicates a validation issue that makes the config invalid.
	SeverityError Severity = iota

	// SeverityWarning indicates a validation issue that doesn't prevent usage
	// but may indicate a configuration problem.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// ValidationError is one problem found on a server. ServerName is empty for
// problems that span the whole server list.
type ValidationError struct {
	ServerName string
	Field      string
	Message    string
	Severity   Severity
	Err        error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	prefix := "error"
	if e.Severity == SeverityWarning {
		prefix = "warning"
	}

	if e.ServerName != "" && e.Field != "" {
		return fmt.Sprintf("%s: server %q field %q: %s", prefix, e.ServerName, e.Field, e.Message)
	}
	if e.ServerName != "" {
		return fmt.Sprintf("%s: server %q: %s", prefix, e.ServerName, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: field %q: %s", prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying sentinel error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *ValidationError) Is(target error) bool {
	return e.Err != nil && errors.Is(e.Err, target)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(errs []*ValidationError) bool {
	return len(bySeverity(errs, SeverityError)) > 0
}

// HasWarnings reports whether any issue has warning severity.
func HasWarnings(errs []*ValidationError) bool {
	return len(bySeverity(errs, SeverityWarning)) > 0
}

// Errors returns the issues with error severity.
func Errors(errs []*ValidationError) []*ValidationError {
	return bySeverity(errs, SeverityError)
}

// Warnings returns the issues with warning severity.
func Warnings(errs []*ValidationError) []*ValidationError {
	return bySeverity(errs, SeverityWarning)
}

func bySeverity(errs []*ValidationError, sev Severity) []*ValidationError {
	var out []*ValidationError
	for _, e := range errs {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}
