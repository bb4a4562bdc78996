package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/guard"
	"github.com/thoreinstein/conductor/pkg/fileutil"
)

// DefaultRetentionCount is the default number of backups kept per file.
const DefaultRetentionCount = fileutil.DefaultBackupRetention

// Sentinel errors for backup operations.
var (
	// ErrNoBackupsFound indicates no backups exist for the file.
	ErrNoBackupsFound = errors.New("no backups found")

	// ErrBackupCorrupted indicates a backup no longer parses in its format.
	ErrBackupCorrupted = errors.New("backup corrupted")

	// ErrForeignBackup indicates a restore source that is not a backup of the target.
	ErrForeignBackup = errors.New("file is not a backup of the target")
)

// Info describes one backup file.
type Info struct {
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
	SHA256    string    `json:"sha256"`
}

// Manager performs guarded, backed-up writes and manages backups.
type Manager struct {
	retentionCount int
	lock           fileutil.LockFunc
}

// Option configures a Manager.
type Option func(*Manager)

// WithRetentionCount sets the number of backups to retain per file.
func WithRetentionCount(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.retentionCount = n
		}
	}
}

// WithGuard serializes writes through g instead of the process-wide guard.
func WithGuard(g *guard.Guard) Option {
	return func(m *Manager) {
		m.lock = g.Lock
	}
}

// NewManager creates a new backup Manager with the given options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		retentionCount: DefaultRetentionCount,
		lock:           guard.Default().Lock,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Write atomically replaces path with data, backing up any existing
// content first.
func (m *Manager) Write(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	err := fileutil.AtomicWriteFile(ctx, path, data, perm,
		fileutil.WithLock(m.lock),
		fileutil.WithBackups(m.retentionCount),
	)
	if err != nil {
		return &errors.IOError{Path: path, Op: "write", Err: err}
	}
	return nil
}

// List returns the backups of path, newest first.
func (m *Manager) List(path string) ([]Info, error) {
	paths, err := fileutil.ListBackups(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoBackupsFound
	}

	out := make([]Info, 0, len(paths))
	for _, p := range paths {
		info, err := describe(p)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// Latest returns the newest backup of path.
func (m *Manager) Latest(path string) (Info, error) {
	infos, err := m.List(path)
	if err != nil {
		return Info{}, err
	}
	return infos[0], nil
}

// Restore writes the content of backupPath over path. An empty backupPath
// restores the newest backup.
func (m *Manager) Restore(ctx context.Context, path, backupPath string) (Info, error) {
	if backupPath == "" {
		latest, err := m.Latest(path)
		if err != nil {
			return Info{}, err
		}
		backupPath = latest.Path
	}

	if !m.isBackupOf(path, backupPath) {
		return Info{}, errors.Wrapf(ErrForeignBackup, "%s", filepath.Base(backupPath))
	}

	data, err := fileutil.ReadFileWithLimit(backupPath)
	if err != nil {
		return Info{}, errors.Wrap(err, "reading backup")
	}
	if err := fileutil.Validate(path, data); err != nil {
		return Info{}, errors.Wrapf(ErrBackupCorrupted, "%s: %v", filepath.Base(backupPath), err)
	}

	perm := os.FileMode(0o600)
	if st, err := os.Stat(path); err == nil {
		perm = st.Mode().Perm()
	}
	if err := m.Write(ctx, path, data, perm); err != nil {
		return Info{}, err
	}
	return describe(backupPath)
}

// Prune removes all but the newest keep backups of path.
func (m *Manager) Prune(path string, keep int) error {
	if keep < 1 {
		return errors.Newf("keep must be at least 1, got %d", keep)
	}
	return fileutil.PruneBackups(path, keep)
}

func (m *Manager) isBackupOf(path, backupPath string) bool {
	if filepath.Dir(filepath.Clean(backupPath)) != filepath.Dir(filepath.Clean(path)) {
		return false
	}
	backups, err := fileutil.ListBackups(path)
	if err != nil {
		return false
	}
	for _, b := range backups {
		if b == filepath.Clean(backupPath) {
			return true
		}
	}
	return false
}

func describe(path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, errors.Wrapf(err, "reading backup %s", filepath.Base(path))
	}
	sum := sha256.Sum256(data)
	created, _ := fileutil.BackupTime(path)
	return Info{
		Path:      path,
		CreatedAt: created,
		Size:      int64(len(data)),
		SHA256:    hex.EncodeToString(sum[:]),
	}, nil
}
