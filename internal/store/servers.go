package store

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/mcp/validator"
)

// SourceConductor tags servers created through conductor itself.
const SourceConductor = "conductor"

// ServerInput describes a server to add.
type ServerInput struct {
	Name          string
	DisplayName   string
	Description   string
	Transport     mcp.Transport
	Command       string
	Args          []string
	Env           map[string]string
	URL           string
	SecretEnvKeys []string
	IconURL       string
	Tags          []string
	RegistryID    string
}

// ServerPatch describes changes to an existing server. Nil fields are left
// unchanged; an empty string clears an optional text field.
type ServerPatch struct {
	DisplayName   *string
	Description   *string
	Transport     *mcp.Transport
	Command       *string
	Args          *[]string
	Env           *map[string]string
	URL           *string
	SecretEnvKeys *[]string
	IconURL       *string
	Tags          *[]string
	Enabled       *bool
}

// ImportResult reports the outcome of ImportServers.
type ImportResult struct {
	Added   int           `json:"added"`
	Skipped int           `json:"skipped"`
	Servers []*mcp.Server `json:"servers"`
}

// validate rejects invalid servers. Values of declared secret keys must
// live in the vault, never in Env.
func validate(s *mcp.Server) error {
	errs := validator.New(validator.WithStrictSecrets(true)).ValidateServer(s)
	if bad := validator.Errors(errs); len(bad) > 0 {
		return errors.Wrap(bad[0], "invalid server")
	}
	return nil
}

// Servers returns every server in document order.
func (s *Store) Servers() ([]*mcp.Server, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Servers, nil
}

// Server resolves ref (an ID or name) to a server.
func (s *Store) Server(ref string) (*mcp.Server, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	srv := doc.Resolve(ref)
	if srv == nil {
		return nil, &errors.NotFoundError{Kind: "server", ID: ref}
	}
	return srv, nil
}

// AddServer creates a server. Names are unique (case-sensitive). A server
// with a URL and no transport is SSE.
func (s *Store) AddServer(ctx context.Context, in ServerInput) (*mcp.Server, error) {
	srv := mcp.New(in.Name)
	srv.DisplayName = in.DisplayName
	srv.Description = in.Description
	srv.Transport = in.Transport
	if srv.Transport == "" {
		srv.Transport = mcp.TransportStdio
		if in.URL != "" {
			srv.Transport = mcp.TransportSSE
		}
	}
	srv.Command = in.Command
	srv.Args = slices.Clone(in.Args)
	if in.Env != nil {
		srv.Env = maps.Clone(in.Env)
	}
	srv.URL = in.URL
	srv.SecretEnvKeys = slices.Clone(in.SecretEnvKeys)
	srv.IconURL = in.IconURL
	srv.Tags = slices.Clone(in.Tags)
	srv.Source = SourceConductor
	srv.RegistryID = in.RegistryID
	srv.CreatedAt = s.now().UTC()
	srv.UpdatedAt = srv.CreatedAt

	if err := validate(srv); err != nil {
		return nil, err
	}

	err := s.Update(ctx, func(doc *Document) error {
		if doc.ServerByName(srv.Name) != nil {
			return errors.Wrapf(errors.ErrDuplicateName, "server %q already exists", srv.Name)
		}
		doc.Servers = append(doc.Servers, srv)
		s.Log(doc, ActivityAdd, "Added server "+srv.Name, "", srv.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return srv, nil
}

// UpdateServer applies patch to the server identified by ref.
func (s *Store) UpdateServer(ctx context.Context, ref string, patch ServerPatch) (*mcp.Server, error) {
	var updated *mcp.Server
	err := s.Update(ctx, func(doc *Document) error {
		srv := doc.Resolve(ref)
		if srv == nil {
			return &errors.NotFoundError{Kind: "server", ID: ref}
		}
		next := srv.Clone()
		patch.apply(next)
		next.UpdatedAt = s.now().UTC()
		if err := validate(next); err != nil {
			return err
		}
		*srv = *next
		updated = srv.Clone()
		s.Log(doc, ActivityUpdate, "Updated server "+srv.Name, "", srv.ID)
		return nil
	})
	return updated, err
}

func (p ServerPatch) apply(srv *mcp.Server) {
	if p.DisplayName != nil {
		srv.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		srv.Description = *p.Description
	}
	if p.Transport != nil {
		srv.Transport = *p.Transport
	}
	if p.Command != nil {
		srv.Command = *p.Command
	}
	if p.Args != nil {
		srv.Args = slices.Clone(*p.Args)
	}
	if p.Env != nil {
		srv.Env = maps.Clone(*p.Env)
		if srv.Env == nil {
			srv.Env = map[string]string{}
		}
	}
	if p.URL != nil {
		srv.URL = *p.URL
	}
	if p.SecretEnvKeys != nil {
		srv.SecretEnvKeys = slices.Clone(*p.SecretEnvKeys)
	}
	if p.IconURL != nil {
		srv.IconURL = *p.IconURL
	}
	if p.Tags != nil {
		srv.Tags = slices.Clone(*p.Tags)
	}
	if p.Enabled != nil {
		srv.Enabled = *p.Enabled
	}
}

// DeleteServer removes the server identified by ref and purges its ID from
// every sync record. Host files keep the entry until the next sync removes
// it as an orphan.
func (s *Store) DeleteServer(ctx context.Context, ref string) (*mcp.Server, error) {
	var removed *mcp.Server
	err := s.Update(ctx, func(doc *Document) error {
		srv := doc.Resolve(ref)
		if srv == nil {
			return &errors.NotFoundError{Kind: "server", ID: ref}
		}
		removed = srv
		doc.Servers = slices.DeleteFunc(doc.Servers, func(x *mcp.Server) bool { return x.ID == srv.ID })
		for _, r := range doc.Sync {
			r.ServerIDs = slices.DeleteFunc(r.ServerIDs, func(id string) bool { return id == srv.ID })
		}
		s.Log(doc, ActivityDelete, "Deleted server "+srv.Name, "", srv.ID)
		return nil
	})
	return removed, err
}

// ToggleServer sets the enabled flag of the server identified by ref.
func (s *Store) ToggleServer(ctx context.Context, ref string, enabled bool) (*mcp.Server, error) {
	var updated *mcp.Server
	err := s.Update(ctx, func(doc *Document) error {
		srv := doc.Resolve(ref)
		if srv == nil {
			return &errors.NotFoundError{Kind: "server", ID: ref}
		}
		srv.Enabled = enabled
		srv.UpdatedAt = s.now().UTC()
		updated = srv.Clone()
		action := "Disabled"
		if enabled {
			action = "Enabled"
		}
		s.Log(doc, ActivityUpdate, action+" server "+srv.Name, "", srv.ID)
		return nil
	})
	return updated, err
}

// ImportServers adds servers read from a client. A server is skipped when
// one with the same name and command already exists; a name taken by a
// different server is suffixed with UniqueName.
func (s *Store) ImportServers(ctx context.Context, clientID string, servers []*mcp.Server) (*ImportResult, error) {
	res := &ImportResult{Servers: []*mcp.Server{}}
	err := s.Update(ctx, func(doc *Document) error {
		for _, in := range servers {
			if isDuplicateImport(doc, in) {
				res.Skipped++
				continue
			}
			srv := in.Clone()
			srv.Name = doc.UniqueName(srv.Name)
			if srv.ID == "" {
				srv.ID = uuid.NewString()
			}
			if srv.Source == "" {
				srv.Source = clientID
			}
			srv.CreatedAt = s.now().UTC()
			srv.UpdatedAt = srv.CreatedAt
			doc.Servers = append(doc.Servers, srv)
			res.Servers = append(res.Servers, srv)
		}
		res.Added = len(res.Servers)
		if res.Added > 0 {
			s.Log(doc, ActivityImport, fmt.Sprintf("Imported %d servers from %s", res.Added, clientID), clientID, "")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func isDuplicateImport(doc *Document, in *mcp.Server) bool {
	for _, s := range doc.Servers {
		if s.Name == in.Name && s.Command == in.Command {
			return true
		}
	}
	return false
}

// RecordSync merges a successful sync into the client's record and logs it.
func (s *Store) RecordSync(ctx context.Context, clientID string, serverIDs, names []string) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.EnsureRecord(clientID).MergeSynced(serverIDs, names, s.now())
		s.Log(doc, ActivitySync, fmt.Sprintf("Synced %d servers to %s", len(names), clientID), clientID, "")
		return nil
	})
}

// ResetRecord forgets the names synced to clientID.
func (s *Store) ResetRecord(ctx context.Context, clientID string) error {
	return s.Update(ctx, func(doc *Document) error {
		r := doc.Record(clientID)
		if r == nil {
			return &errors.NotFoundError{Kind: "sync record", ID: clientID}
		}
		r.Reset()
		return nil
	})
}
