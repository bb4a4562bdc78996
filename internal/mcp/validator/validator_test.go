package validator

import (
	"errors"
	"testing"

	"github.com/thoreinstein/conductor/internal/mcp"
)

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name       string
		server     *mcp.Server
		wantErr    error
		wantErrors bool
	}{
		{
			name:   "valid stdio",
			server: &mcp.Server{Name: "weather", Transport: mcp.TransportStdio, Command: "npx"},
		},
		{
			name:   "valid sse",
			server: &mcp.Server{Name: "remote", Transport: mcp.TransportSSE, URL: "https://mcp.example.com/sse"},
		},
		{
			name:       "missing name",
			server:     &mcp.Server{Transport: mcp.TransportStdio, Command: "npx"},
			wantErr:    ErrMissingServerName,
			wantErrors: true,
		},
		{
			name:       "stdio without command",
			server:     &mcp.Server{Name: "x", Transport: mcp.TransportStdio},
			wantErr:    ErrMissingCommand,
			wantErrors: true,
		},
		{
			name:       "streamable-http without url",
			server:     &mcp.Server{Name: "x", Transport: mcp.TransportStreamableHTTP},
			wantErr:    ErrMissingURL,
			wantErrors: true,
		},
		{
			name:       "relative url",
			server:     &mcp.Server{Name: "x", Transport: mcp.TransportSSE, URL: "mcp.example.com"},
			wantErr:    ErrMissingURL,
			wantErrors: true,
		},
		{
			name:       "unknown transport",
			server:     &mcp.Server{Name: "x", Transport: "carrier-pigeon", Command: "npx"},
			wantErr:    ErrInvalidTransport,
			wantErrors: true,
		},
		{
			name: "secret at rest is a warning",
			server: &mcp.Server{
				Name: "gh", Transport: mcp.TransportStdio, Command: "npx",
				Env:           map[string]string{"GITHUB_TOKEN": "ghp_x"},
				SecretEnvKeys: []string{"GITHUB_TOKEN"},
			},
			wantErr: ErrSecretAtRest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := New().ValidateServer(tt.server)
			if got := HasErrors(errs); got != tt.wantErrors {
				t.Errorf("HasErrors() = %v, want %v (errs: %v)", got, tt.wantErrors, errs)
			}
			if tt.wantErr == nil {
				if tt.wantErrors || len(Errors(errs)) > 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			found := false
			for _, e := range errs {
				if errors.Is(e, tt.wantErr) {
					found = true
				}
			}
			if !found {
				t.Errorf("ValidateServer() = %v, want %v", errs, tt.wantErr)
			}
		})
	}
}

func TestValidate_StrictSecrets(t *testing.T) {
	s := &mcp.Server{
		Name: "gh", Transport: mcp.TransportStdio, Command: "npx",
		Env:           map[string]string{"GITHUB_TOKEN": "ghp_x"},
		SecretEnvKeys: []string{"GITHUB_TOKEN"},
	}
	errs := New(WithStrictSecrets(true)).Validate([]*mcp.Server{s})
	if !HasErrors(errs) {
		t.Errorf("expected strict secret check to error, got %v", errs)
	}
}

func TestValidate_Names(t *testing.T) {
	servers := []*mcp.Server{
		{Name: "weather", Transport: mcp.TransportStdio, Command: "a"},
		{Name: "weather", Transport: mcp.TransportStdio, Command: "b"},
	}
	errs := New().Validate(servers)
	if !HasErrors(errs) {
		t.Fatalf("expected duplicate name error, got %v", errs)
	}
	if !errors.Is(errs[0], ErrDuplicateName) {
		t.Errorf("got %v, want ErrDuplicateName", errs[0])
	}
}

// Two canonical servers that differ only in case map to the same host
// entry. Storage allows it, so it is reported rather than rejected.
func TestValidate_CaseOnlyCollisionIsFlagged(t *testing.T) {
	servers := []*mcp.Server{
		{Name: "GitHub", Transport: mcp.TransportStdio, Command: "a"},
		{Name: "github", Transport: mcp.TransportStdio, Command: "b"},
	}
	errs := New().Validate(servers)
	if HasErrors(errs) {
		t.Fatalf("case-only collision should not be an error: %v", errs)
	}
	if !HasWarnings(errs) || !errors.Is(Warnings(errs)[0], ErrCaseCollision) {
		t.Errorf("expected ErrCaseCollision warning, got %v", errs)
	}
}
