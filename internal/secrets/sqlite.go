package secrets

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thoreinstein/conductor/internal/errors"
)

const schema = `
	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
`

// opTimeout bounds a single vault statement.
const opTimeout = 10 * time.Second

// SQLiteStore is a file-backed Store. The database file is created with
// owner-only permissions.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the vault at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "secrets")

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "creating vault directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening vault")
	}
	// One connection serializes writers without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enabling WAL mode")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating schema")
	}
	if err := os.Chmod(path, 0o600); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "restricting vault permissions")
	}

	logger.Debug("secret vault opened", "path", path)
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the vault file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Ping verifies the vault is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrInvalidKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM secrets WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading secret %s", key)
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	if key == "" {
		return ErrInvalidKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "writing secret %s", key)
	}
	s.logger.Debug("secret stored", "key", key)
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "deleting secret %s", key)
	}
	return nil
}

func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT key FROM secrets")
	if err != nil {
		return nil, errors.Wrap(err, "listing secrets")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Wrap(err, "scanning secret key")
		}
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "listing secrets")
	}
	sort.Strings(out)
	return out, nil
}

