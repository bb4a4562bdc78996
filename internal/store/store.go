package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/thoreinstein/conductor/internal/backup"
	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/paths"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// lockRetry is how often a blocked Update retries the file lock.
const lockRetry = 50 * time.Millisecond

// Store reads and writes the master document. Update serializes
// read-modify-write cycles across processes with a lock file next to the
// document.
type Store struct {
	// mu serializes updates within the process; the file lock only
	// excludes other processes.
	mu sync.Mutex

	dir    string
	path   string
	lock   *flock.Flock
	writer *backup.Manager
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithWriter sets the backup-aware writer used to persist the document.
func WithWriter(m *backup.Manager) Option {
	return func(s *Store) {
		s.writer = m
	}
}

// Open returns a Store for the document in dir. Nothing is read or created
// until the first operation.
func Open(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		path:   paths.MasterDocumentPath(dir),
		lock:   flock.New(paths.LockPath(dir)),
		writer: backup.NewManager(),
		now:    time.Now,
		logger: slog.Default().With("component", "store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the master document path.
func (s *Store) Path() string { return s.path }

// Dir returns the directory holding the master document.
func (s *Store) Dir() string { return s.dir }

// Load reads the document. A missing file yields a new empty document.
func (s *Store) Load() (*Document, error) {
	data, ok, err := fileutil.ReadIfExists(s.path)
	if err != nil {
		return nil, &errors.IOError{Path: s.path, Op: "read", Err: err}
	}
	doc := NewDocument()
	if !ok {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "parsing %s: %v", s.path, err)
	}
	doc.normalize()
	return doc, nil
}

// Update loads the document, applies fn, and writes the result. The write
// is skipped when fn returns an error.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) error {
	if err := paths.EnsureDir(s.dir, 0); err != nil {
		return &errors.IOError{Path: s.dir, Op: "create", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return errors.Wrap(err, "locking master document")
	}
	if !locked {
		return errors.New("could not lock master document")
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("unlocking master document", "error", err)
		}
	}()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	data, err := fileutil.MarshalJSON(doc)
	if err != nil {
		return errors.Wrap(err, "encoding master document")
	}
	if err := s.writer.Write(ctx, s.path, data, 0o600); err != nil {
		return err
	}
	s.logger.Debug("master document saved", "path", s.path, "servers", len(doc.Servers))
	return nil
}

// Log appends an activity entry to doc, pruning the oldest beyond
// MaxActivity.
func (s *Store) Log(doc *Document, kind, description, clientID, serverID string) {
	doc.Activity = append(doc.Activity, ActivityEntry{
		ID:          uuid.NewString(),
		Type:        kind,
		Description: description,
		Timestamp:   s.now().UTC(),
		ClientID:    clientID,
		ServerID:    serverID,
	})
	if n := len(doc.Activity) - MaxActivity; n > 0 {
		doc.Activity = append([]ActivityEntry(nil), doc.Activity[n:]...)
	}
}

// LogActivity records one activity entry in its own update.
func (s *Store) LogActivity(ctx context.Context, kind, description, clientID, serverID string) error {
	return s.Update(ctx, func(doc *Document) error {
		s.Log(doc, kind, description, clientID, serverID)
		return nil
	})
}

// Activity returns the log newest first.
func (s *Store) Activity() ([]ActivityEntry, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]ActivityEntry, len(doc.Activity))
	for i, e := range doc.Activity {
		out[len(out)-1-i] = e
	}
	return out, nil
}

// ClearActivity empties the log.
func (s *Store) ClearActivity(ctx context.Context) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.Activity = []ActivityEntry{}
		return nil
	})
}

// Settings returns the stored settings.
func (s *Store) Settings() (Settings, error) {
	doc, err := s.Load()
	if err != nil {
		return Settings{}, err
	}
	return doc.Settings, nil
}

// SaveSettings replaces the stored settings.
func (s *Store) SaveSettings(ctx context.Context, settings Settings) error {
	return s.Update(ctx, func(doc *Document) error {
		doc.Settings = settings
		return nil
	})
}

// ResetSettings restores the defaults and returns them.
func (s *Store) ResetSettings(ctx context.Context) (Settings, error) {
	def := DefaultSettings()
	return def, s.SaveSettings(ctx, def)
}
