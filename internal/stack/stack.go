// Package stack builds, imports, and fetches stacks: named, shareable
// bundles of servers with their secrets stripped.
package stack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
	"github.com/thoreinstein/conductor/internal/redact"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

const (
	// Version is written into every exported stack.
	Version = "1.0.0"

	// Source tags servers that came from a stack.
	Source = "stack"

	// FetchTimeout bounds a remote stack download.
	FetchTimeout = 20 * time.Second

	maxStackSize = 4 << 20
)

// Stack is the shareable document.
type Stack struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Servers     []*mcp.Server `json:"servers"`
	Tags        []string      `json:"tags"`
	Version     string        `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Export bundles servers into a stack. Every server gets a fresh ID and
// the "stack" source; values of declared secret keys are dropped, and any
// env entry that looks like a credential is dropped and declared as a
// secret key too.
func Export(name, description string, tags []string, servers []*mcp.Server, now time.Time) (*Stack, error) {
	if len(servers) == 0 {
		return nil, errors.Wrap(errors.ErrNotFound, "no servers to export")
	}
	if tags == nil {
		tags = []string{}
	}
	s := &Stack{
		Name:        name,
		Description: description,
		Servers:     make([]*mcp.Server, 0, len(servers)),
		Tags:        tags,
		Version:     Version,
		CreatedAt:   now.UTC(),
	}
	for _, orig := range servers {
		srv := orig.Clone()
		srv.ID = uuid.NewString()
		srv.Source = Source
		srv.CreatedAt = time.Time{}
		srv.UpdatedAt = time.Time{}
		srv.Env, srv.SecretEnvKeys = redact.StripEnv(srv.Env, srv.SecretEnvKeys)
		s.Servers = append(s.Servers, srv)
	}
	return s, nil
}

// Marshal renders s as indented JSON.
func (s *Stack) Marshal() ([]byte, error) {
	return fileutil.MarshalJSON(s)
}

// Parse decodes a stack. Both a bare stack and one wrapped as
// {"stack": {...}} are accepted.
func Parse(data []byte) (*Stack, error) {
	var wrapped struct {
		Stack *Stack `json:"stack"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid stack JSON: %v", err)
	}
	s := wrapped.Stack
	if s == nil {
		s = &Stack{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid stack JSON: %v", err)
		}
	}
	if s.Servers == nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, "invalid stack JSON: no servers")
	}
	for i, srv := range s.Servers {
		if srv == nil {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid stack JSON: server %d is null", i)
		}
	}
	return s, nil
}

// Import adds the stack's servers to the master document. Servers get
// fresh IDs and the "stack" source; a name already in use is suffixed
// " (n)". Values of declared secret keys are dropped. It returns the
// servers as stored.
func Import(ctx context.Context, st *store.Store, s *Stack) ([]*mcp.Server, error) {
	v := validator.New()
	for _, srv := range s.Servers {
		if bad := validator.Errors(v.ValidateServer(srv)); len(bad) > 0 {
			return nil, errors.Wrapf(bad[0], "stack server %q", srv.Name)
		}
	}

	var added []*mcp.Server
	err := st.Update(ctx, func(doc *store.Document) error {
		now := time.Now().UTC()
		for _, in := range s.Servers {
			srv := in.Clone()
			srv.ID = uuid.NewString()
			srv.Source = Source
			srv.Name = doc.UniqueName(srv.Name)
			if srv.Env == nil {
				srv.Env = map[string]string{}
			}
			for _, k := range srv.SecretEnvKeys {
				delete(srv.Env, k)
			}
			srv.CreatedAt = now
			srv.UpdatedAt = now
			doc.Servers = append(doc.Servers, srv)
			added = append(added, srv)
		}
		st.Log(doc, store.ActivityStack, fmt.Sprintf("Imported stack %s (%d servers)", s.Name, len(added)), "", "")
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "stack").Info("stack imported", "stack", s.Name, "servers", len(added))
	return added, nil
}

// Fetch downloads and parses a stack. A nil client means
// http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, url string) (*Stack, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building stack request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch stack")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("failed to fetch stack: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStackSize+1))
	if err != nil {
		return nil, errors.Wrap(err, "reading stack")
	}
	if len(body) > maxStackSize {
		return nil, errors.Newf("stack exceeds %d bytes", maxStackSize)
	}
	return Parse(bytes.TrimSpace(body))
}
