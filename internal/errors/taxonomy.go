package errors

import (
	"fmt"
	"strings"
)

// ParseError reports a host file that could not be parsed in its native
// syntax. Such files are never overwritten.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s config: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SerializeError reports a failure rendering servers into a host format.
type SerializeError struct {
	Format string
	Err    error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serializing %s config: %v", e.Format, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// IOError reports a disk or permission failure on Path.
type IOError struct {
	Path string
	Op   string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// VerificationError reports servers missing from a host file after a write.
type VerificationError struct {
	Client  string
	Missing []string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: missing %s", e.Client, strings.Join(e.Missing, ", "))
}

// OAuthError reports a failed authorization, exchange, or refresh.
type OAuthError struct {
	Reason string
	Err    error
}

func (e *OAuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("oauth: %s: %v", e.Reason, e.Err)
	}
	return "oauth: " + e.Reason
}

func (e *OAuthError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown client or server id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is makes every NotFoundError match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
