// Package store persists the unlock secret so it survives power loss.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt is returned when the stored record is not a valid
// NUL-terminated secret of the expected size.
var ErrCorrupt = errors.New("store: corrupt secret record")

// FileStore keeps the secret in a fixed-size record: capacity bytes of
// secret, zero padded, followed by a NUL terminator.
// Writes go to a temporary file which is synced and renamed over the
// record, so a power cut leaves either the old or the new secret.
type FileStore struct {
	path     string
	capacity int
}

// NewFileStore returns a FileStore writing to path. capacity is the
// maximum secret length in bytes.
func NewFileStore(path string, capacity int) *FileStore {
	return &FileStore{path: path, capacity: capacity}
}

// Path returns the record location.
func (s *FileStore) Path() string {
	return s.path
}

// ReadSecret returns the stored secret, or "" if none has been written.
func (s *FileStore) ReadSecret() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	if len(data) != s.capacity+1 {
		return "", fmt.Errorf("%w: size %d, want %d", ErrCorrupt, len(data), s.capacity+1)
	}
	end := bytes.IndexByte(data, 0)
	if end < 0 {
		return "", fmt.Errorf("%w: missing terminator", ErrCorrupt)
	}
	return string(data[:end]), nil
}

// WriteSecret durably replaces the stored secret. Values longer than the
// capacity are truncated.
func (s *FileStore) WriteSecret(secret string) error {
	record := make([]byte, s.capacity+1)
	n := copy(record[:s.capacity], secret)
	// A NUL inside the secret ends it; the rest of the record stays zero.
	if i := bytes.IndexByte(record[:n], 0); i >= 0 {
		clear(record[i:])
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create secret dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".secret-*")
	if err != nil {
		return fmt.Errorf("create temp secret: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp secret: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp secret: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp secret: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace secret: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open secret dir: %w", err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync secret dir: %w", err)
	}
	return nil
}
