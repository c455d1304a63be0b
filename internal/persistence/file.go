package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBackend keeps the latest snapshot in a single file. Writes go to a
// temporary file in the same directory and are renamed into place, so a
// crash mid-write leaves the previous snapshot intact.
type FileBackend struct {
	path string
}

// NewFileBackend creates a FileBackend writing to path. Parent directories
// are created on first Save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Name implements Backend.
func (b *FileBackend) Name() string { return "file" }

// Path returns the snapshot file location.
func (b *FileBackend) Path() string { return b.path }

// Save implements Backend.
func (b *FileBackend) Save(_ context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load implements Backend.
func (b *FileBackend) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Decode(data)
}
