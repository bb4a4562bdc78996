package auth

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/oauth"
)

func TestProviderFor(t *testing.T) {
	tests := []struct {
		name     string
		srv      *mcp.Server
		explicit string
		want     string
	}{
		{
			name:     "explicit wins",
			srv:      &mcp.Server{Env: map[string]string{providerEnv: "slack"}},
			explicit: "notion",
			want:     "notion",
		},
		{
			name: "env entry",
			srv:  &mcp.Server{Env: map[string]string{providerEnv: "auth.example.com"}, Tags: []string{"google"}},
			want: "auth.example.com",
		},
		{
			name: "tag names a provider",
			srv:  &mcp.Server{Tags: []string{"work", "Linear"}},
			want: "linear",
		},
		{
			name: "remote host",
			srv:  &mcp.Server{Transport: mcp.TransportSSE, URL: "https://mcp.notion.com/sse"},
			want: "notion",
		},
		{
			name: "fallback",
			srv:  &mcp.Server{Transport: mcp.TransportStdio, Command: "npx"},
			want: defaultProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := providerFor(tt.srv, tt.explicit); got != tt.want {
				t.Errorf("providerFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteStatus(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	statuses := []namedStatus{
		{Name: "linear", Status: oauth.Status{ServerID: "1", Authenticated: true, Provider: "linear", ExpiresAt: &exp}},
		{Name: "notion", Status: oauth.Status{ServerID: "2"}},
		{Name: "slack", Status: oauth.Status{ServerID: "3", Error: "no refresh token"}},
	}

	var buf bytes.Buffer
	if err := writeStatus(&buf, statuses); err != nil {
		t.Fatalf("writeStatus() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"NAME", "linear", "authorized", "not authorized", "no refresh token"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteStatus_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeStatus(&buf, nil); err != nil {
		t.Fatalf("writeStatus() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No servers need authorization") {
		t.Errorf("output = %q", buf.String())
	}
}
