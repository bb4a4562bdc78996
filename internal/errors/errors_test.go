package errors

import (
	"fmt"
	"testing"
)

func TestExitError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ExitError
		want string
	}{
		{
			name: "with underlying error",
			err:  NewExitError(ErrNotFound, ExitUser),
			want: "resource not found",
		},
		{
			name: "with wrapped error",
			err:  NewExitError(fmt.Errorf("loading config: %w", ErrInvalidConfig), ExitUser),
			want: "loading config: invalid configuration",
		},
		{
			name: "nil underlying error",
			err:  NewExitError(nil, ExitUser),
			want: "exit code 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("ExitError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExitError_As(t *testing.T) {
	wrapped := Wrap(NewSystemError(ErrNotFound, "check the path"), "syncing")

	var exitErr *ExitError
	if !As(wrapped, &exitErr) {
		t.Fatal("As() = false, want true")
	}
	if exitErr.Code != ExitSystem {
		t.Errorf("Code = %d, want %d", exitErr.Code, ExitSystem)
	}
	if exitErr.Suggestion != "check the path" {
		t.Errorf("Suggestion = %q, want %q", exitErr.Suggestion, "check the path")
	}
	if !Is(wrapped, ErrNotFound) {
		t.Error("Is(wrapped, ErrNotFound) = false, want true")
	}
}

func TestNewConfigError(t *testing.T) {
	e := NewConfigError(ErrInvalidConfig)
	if e.Code != ExitUser {
		t.Errorf("Code = %d, want %d", e.Code, ExitUser)
	}
	if e.Suggestion != "Run: conductor doctor" {
		t.Errorf("Suggestion = %q, want 'Run: conductor doctor'", e.Suggestion)
	}
}

func TestNotFoundError_IsErrNotFound(t *testing.T) {
	err := Wrap(&NotFoundError{Kind: "client", ID: "emacs"}, "syncing")
	if !Is(err, ErrNotFound) {
		t.Error("Is(NotFoundError, ErrNotFound) = false, want true")
	}
	if got, want := err.Error(), "syncing: client not found: emacs"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTaxonomy_Unwrap(t *testing.T) {
	cause := New("boom")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", &ParseError{Format: "codex", Err: cause}, "parsing codex config: boom"},
		{"serialize", &SerializeError{Format: "zed", Err: cause}, "serializing zed config: boom"},
		{"io", &IOError{Path: "/tmp/x.json", Op: "write", Err: cause}, "write /tmp/x.json: boom"},
		{"oauth", &OAuthError{Reason: "exchange failed", Err: cause}, "oauth: exchange failed: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !Is(tt.err, cause) {
				t.Errorf("Is(%T, cause) = false, want true", tt.err)
			}
		})
	}
}

func TestVerificationError(t *testing.T) {
	err := &VerificationError{Client: "cursor", Missing: []string{"a", "b"}}
	if got, want := err.Error(), "verification failed for cursor: missing a, b"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOAuthError_NoCause(t *testing.T) {
	err := &OAuthError{Reason: "state mismatch"}
	if got, want := err.Error(), "oauth: state mismatch"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
