package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/thoreinstein/conductor/internal/errors"
)

// BackupTimeFormat is the timestamp layout embedded in backup names.
const BackupTimeFormat = "20060102_150405"

// DefaultBackupRetention is the number of backups kept per file.
const DefaultBackupRetention = 5

// now is swapped by tests.
var now = time.Now

// BackupName returns the sibling backup path for path at t:
// {stem}_{YYYYmmdd_HHMMSS}.{ext}.bak.
func BackupName(path string, t time.Time) string {
	stem, ext := splitName(path)
	return filepath.Join(filepath.Dir(path), stem+"_"+t.Format(BackupTimeFormat)+"."+ext+".bak")
}

// CreateBackup copies path to a timestamped sibling and verifies the copy
// can be read back.
func CreateBackup(path string) (string, error) {
	dst := BackupName(path, now())

	src, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening file to back up")
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", errors.Wrap(err, "stat file to back up")
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", errors.Wrap(err, "creating backup")
	}
	n, err := io.Copy(out, src)
	if err != nil {
		out.Close()
		return "", errors.Wrap(err, "copying backup")
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrap(err, "closing backup")
	}

	check, err := os.ReadFile(dst)
	if err != nil {
		return "", errors.Wrap(err, "verifying backup")
	}
	if int64(len(check)) != n {
		return "", errors.Newf("verifying backup: wrote %d bytes, read %d", n, len(check))
	}

	return dst, nil
}

// ListBackups returns the backups of path, newest first.
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading backup directory")
	}

	re := backupPattern(path)
	var out []string
	for _, e := range entries {
		if !e.IsDir() && re.MatchString(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	// The fixed-width timestamp makes lexical order chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// PruneBackups removes all but the newest keep backups of path.
func PruneBackups(path string, keep int) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}
	for _, b := range backups[keep:] {
		if err := os.Remove(b); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing old backup %s", filepath.Base(b))
		}
	}
	return nil
}

// BackupTime parses the timestamp from a backup file name.
func BackupTime(backupPath string) (time.Time, bool) {
	name := strings.TrimSuffix(filepath.Base(backupPath), ".bak")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if len(name) < len(BackupTimeFormat) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(BackupTimeFormat, name[len(name)-len(BackupTimeFormat):], time.Local)
	return t, err == nil
}

func backupPattern(path string) *regexp.Regexp {
	stem, ext := splitName(path)
	return regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `_\d{8}_\d{6}\.` + regexp.QuoteMeta(ext) + `\.bak$`)
}

func splitName(path string) (stem, ext string) {
	base := filepath.Base(path)
	ext = strings.TrimPrefix(filepath.Ext(base), ".")
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "config"
	}
	if ext == "" {
		ext = "json"
	}
	return stem, ext
}
