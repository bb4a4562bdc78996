package fileutil

import (
	"io"
	"os"

	"github.com/thoreinstein/conductor/internal/errors"
)

// MaxFileSize is the maximum file size we'll read (16MB).
// VS Code and Zed settings files hold far more than MCP entries, so the
// limit is generous; it still bounds memory for a corrupt or hostile file.
const MaxFileSize = 16 << 20

// ErrFileTooLarge indicates that a file exceeded MaxFileSize.
var ErrFileTooLarge = errors.Newf("file exceeds maximum size of %d bytes", MaxFileSize)

// ReadFileWithLimit reads a file up to MaxFileSize.
// It returns an error if the file is larger than the limit.
func ReadFileWithLimit(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	defer f.Close()

	// Get file info to fail fast if size is already too large
	info, err := f.Stat()
	if err == nil {
		if info.Size() > MaxFileSize {
			return nil, ErrFileTooLarge
		}
	}

	// Read with limit
	r := io.LimitReader(f, MaxFileSize+1)
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading file")
	}

	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}

	return data, nil
}

// ReadIfExists reads path, returning (nil, false, nil) when it does not exist.
func ReadIfExists(path string) ([]byte, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}
	data, err := ReadFileWithLimit(path)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
