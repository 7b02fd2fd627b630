package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robinvdvleuten/salesledger/sales"
)

// FileStore keeps the collection in a JSON file. Saves write a temporary
// file next to the target and rename it into place, so readers never see a
// partial snapshot.
type FileStore struct {
	path string
	opts *options
}

// NewFileStore creates a store for the JSON file at path. The file does not
// need to exist yet.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, opts: newOptions(opts)}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the collection. A missing file is an empty collection.
func (s *FileStore) Load(ctx context.Context) ([]sales.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []sales.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return s.opts.recoverCorrupt(s.path, data), nil
}

// Save replaces the file with the given collection.
func (s *FileStore) Save(ctx context.Context, records []sales.Record) (retErr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeRecords(records)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}
