package syncer

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/format"
	"github.com/thoreinstein/conductor/internal/mcp"
	"github.com/thoreinstein/conductor/internal/platform"
	"github.com/thoreinstein/conductor/internal/secrets"
	"github.com/thoreinstein/conductor/internal/store"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// newFilePerm is used when a host config file does not exist yet. Synced
// files can carry secrets, so they are private to the user.
const newFilePerm fs.FileMode = 0o600

// maxParallel bounds how many hosts SyncAll writes at once.
const maxParallel = 4

// Writer persists host config files atomically. *backup.Manager satisfies
// it.
type Writer interface {
	Write(ctx context.Context, path string, data []byte, perm os.FileMode) error
}

// TokenSource yields OAuth access tokens. *oauth.Manager satisfies it.
type TokenSource interface {
	ValidToken(ctx context.Context, serverID string, env map[string]string) (string, bool, error)
}

// Clients resolves hosts. *platform.Registry satisfies it.
type Clients interface {
	Get(id string) (*platform.Client, error)
	Installed() []*platform.Client
}

// Syncer writes canonical servers into host config files.
type Syncer struct {
	Store   *store.Store
	Secrets secrets.Store
	Tokens  TokenSource
	Clients Clients
	Writer  Writer

	logger *slog.Logger
}

// New returns a Syncer. Secrets and tokens may be nil, in which case
// nothing is injected.
func New(st *store.Store, clients Clients, w Writer, vault secrets.Store, tokens TokenSource) *Syncer {
	return &Syncer{
		Store:   st,
		Secrets: vault,
		Tokens:  tokens,
		Clients: clients,
		Writer:  w,
		logger:  slog.Default().With("component", "sync"),
	}
}

func (s *Syncer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default().With("component", "sync")
}

// Result is the outcome of syncing one host.
type Result struct {
	ClientID       string   `json:"clientId"`
	Path           string   `json:"path,omitempty"`
	Success        bool     `json:"success"`
	ServersWritten int      `json:"serversWritten"`
	Servers        []string `json:"servers,omitempty"`
	Error          string   `json:"error,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	RollbackError  string   `json:"rollbackError,omitempty"`

	err error
}

// Err returns the failure behind Error, if any.
func (r *Result) Err() error {
	return r.err
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) fail(err error) *Result {
	r.Success = false
	r.err = err
	r.Error = err.Error()
	return r
}

// Sync writes serverIDs (all enabled servers when nil) to clientID's
// config file. Unknown clients and an unreadable master document are
// returned as errors; every failure touching the host file is reported in
// the Result.
func (s *Syncer) Sync(ctx context.Context, clientID string, serverIDs []string) (*Result, error) {
	client, err := s.Clients.Get(clientID)
	if err != nil {
		return nil, err
	}
	doc, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	return s.syncClient(ctx, doc, client, serverIDs), nil
}

// SyncAll syncs every installed host. A failure on one host never stops
// the others. Results are in registry order.
func (s *Syncer) SyncAll(ctx context.Context) ([]*Result, error) {
	doc, err := s.Store.Load()
	if err != nil {
		return nil, err
	}

	clients := s.Clients.Installed()
	results := make([]*Result, len(clients))

	var g errgroup.Group
	g.SetLimit(maxParallel)
	for i, c := range clients {
		g.Go(func() error {
			results[i] = s.syncClient(ctx, doc, c, nil)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// targets selects the servers to write. Unknown ids are warnings.
func targets(doc *store.Document, serverIDs []string, res *Result) []*mcp.Server {
	if serverIDs == nil {
		return doc.Enabled()
	}
	var out []*mcp.Server
	for _, id := range serverIDs {
		srv := doc.Server(id)
		if srv == nil {
			res.warn("unknown server id %s", id)
			continue
		}
		if !srv.Enabled {
			continue
		}
		out = append(out, srv)
	}
	return out
}

// prepare copies servers and grafts in vault secrets and OAuth tokens.
func (s *Syncer) prepare(ctx context.Context, servers []*mcp.Server, res *Result) []*mcp.Server {
	out := make([]*mcp.Server, 0, len(servers))
	for _, orig := range servers {
		srv := orig.Clone()
		if srv.Env == nil {
			srv.Env = map[string]string{}
		}

		for _, key := range srv.SecretEnvKeys {
			if s.Secrets == nil {
				res.warn("no secret vault; %s for %s not injected", key, srv.Name)
				continue
			}
			v, ok, err := s.Secrets.Get(secrets.Key(srv.ID, key))
			switch {
			case err != nil:
				res.warn("reading secret %s for %s: %v", key, srv.Name, err)
			case !ok:
				res.warn("secret %s for %s is not set", key, srv.Name)
			default:
				srv.Env[key] = v
			}
		}

		if _, defined := srv.Env[format.OAuthTokenEnv]; !defined && s.Tokens != nil {
			tok, ok, err := s.Tokens.ValidToken(ctx, srv.ID, orig.Env)
			switch {
			case err != nil:
				res.warn("oauth token for %s: %v", srv.Name, err)
			case ok:
				srv.Env[format.OAuthTokenEnv] = tok
			}
		}
		out = append(out, srv)
	}
	return out
}

func (s *Syncer) syncClient(ctx context.Context, doc *store.Document, client *platform.Client, serverIDs []string) *Result {
	res := &Result{ClientID: client.ID}
	logger := s.log().With("client", client.ID)

	selected := targets(doc, serverIDs, res)
	ids := make([]string, 0, len(selected))
	for _, srv := range selected {
		ids = append(ids, srv.ID)
	}
	servers := s.prepare(ctx, selected, res)
	names := mcp.Names(servers)
	res.Servers = names

	path := client.ConfigPath()
	res.Path = path
	if path == "" {
		return res.fail(errors.Newf("cannot determine config path for %s", client.DisplayName))
	}
	f := client.FormatFor(path)

	perm := newFilePerm
	existing, captured, err := fileutil.ReadIfExists(path)
	if err != nil {
		res.warn("reading existing config: %v", err)
		existing, captured = nil, false
	} else if captured {
		if info, err := os.Stat(path); err == nil {
			perm = info.Mode().Perm()
		}
	}

	var observed []string
	if captured {
		if parsed, err := f.Parse(existing); err == nil {
			observed = mcp.Names(parsed)
		}
	}
	previous := doc.Record(client.ID).Baseline(observed, doc.Servers)

	out, err := f.Serialize(servers, existing, previous)
	if err != nil {
		s.recordFailure(ctx, client.ID, err)
		return res.fail(err)
	}

	logger.Debug("writing host config", "path", path, "servers", len(servers), "previous", len(previous))
	if err := s.Writer.Write(ctx, path, out, perm); err != nil {
		s.rollback(ctx, res, path, existing, captured, perm)
		s.recordFailure(ctx, client.ID, err)
		return res.fail(err)
	}

	if err := verify(client.ID, f, path, names); err != nil {
		logger.Warn("verification failed; rolling back", "path", path, "error", err)
		s.rollback(ctx, res, path, existing, captured, perm)
		s.recordFailure(ctx, client.ID, err)
		return res.fail(err)
	}

	res.Success = true
	res.ServersWritten = len(servers)
	if err := s.Store.RecordSync(ctx, client.ID, ids, names); err != nil {
		res.warn("recording sync: %v", err)
	}
	logger.Info("synced", "path", path, "servers", len(servers))
	return res
}

// verify re-reads path and checks that every name is present.
func verify(clientID string, f format.Format, path string, names []string) error {
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return &errors.IOError{Path: path, Op: "verify", Err: err}
	}
	parsed, err := f.Parse(data)
	if err != nil {
		return errors.Wrap(err, "re-reading written config")
	}
	present := mcp.NewNameSet(mcp.Names(parsed)...)
	var missing []string
	for _, n := range names {
		if !present.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return &errors.VerificationError{Client: clientID, Missing: missing}
	}
	return nil
}

// rollback restores the content captured before the write. Without
// captured content the file is left as is: a stale config is better than
// a missing one.
func (s *Syncer) rollback(ctx context.Context, res *Result, path string, existing []byte, captured bool, perm fs.FileMode) {
	if !captured {
		res.warn("no previous content captured; %s left as written", path)
		return
	}
	if err := s.Writer.Write(ctx, path, existing, perm); err != nil {
		res.RollbackError = err.Error()
		s.log().Error("rollback failed", "path", path, "error", err)
		return
	}
	s.log().Info("rolled back", "path", path)
}

func (s *Syncer) recordFailure(ctx context.Context, clientID string, cause error) {
	if err := s.Store.LogActivity(ctx, store.ActivityError, fmt.Sprintf("Sync to %s failed: %v", clientID, cause), clientID, ""); err != nil {
		s.log().Debug("logging sync failure", "error", err)
	}
}

// ReadClient returns the servers currently configured in clientID's file.
func (s *Syncer) ReadClient(clientID string) ([]*mcp.Server, error) {
	client, err := s.Clients.Get(clientID)
	if err != nil {
		return nil, err
	}
	return client.ReadServers()
}

// Import copies the servers configured in clientID's file into the master
// document, skipping entries that match an existing name and command.
func (s *Syncer) Import(ctx context.Context, clientID string) (*store.ImportResult, error) {
	servers, err := s.ReadClient(clientID)
	if err != nil {
		return nil, err
	}
	return s.Store.ImportServers(ctx, clientID, servers)
}

// Watched returns every host config path, for the change observer.
func (s *Syncer) Watched() []string {
	var out []string
	for _, c := range s.Clients.Installed() {
		if p := c.ConfigPath(); p != "" {
			out = append(out, p)
		}
	}
	return out
}
