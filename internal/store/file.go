package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/netcmdb/netcmdb/internal/interfaces"
	"github.com/netcmdb/netcmdb/pkg/logging"
)

// Directory and file permissions for exports
const (
	dirPermissions  = 0o750
	filePermissions = 0o600
)

// FileStore reads a JSON or YAML relationship export from disk. The format
// follows the file extension.
type FileStore struct {
	path string
}

// NewFileStore creates a file store for path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the export location
func (s *FileStore) Path() string {
	return s.path
}

// ListRelationships implements interfaces.RelationshipStore. A missing file
// yields no records.
func (s *FileStore) ListRelationships(ctx context.Context, filter interfaces.RelationshipFilter) ([]interfaces.RelationshipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Store.Warn("Relationship file %s does not exist, starting from an empty graph", s.path)
			return []interfaces.RelationshipRecord{}, nil
		}
		logging.StoreError("list", s.path, err)
		return nil, fmt.Errorf("failed to open relationship file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxExportSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read relationship file: %w", err)
	}

	records, err := DecodeRecords(data, FormatForPath(s.path))
	if err != nil {
		logging.StoreError("decode", s.path, err)
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	out := filter.Apply(records)
	logging.StoreOperation("list", s.path, len(out))
	return out, nil
}

// Save writes records atomically through a temp file and rename
func (s *FileStore) Save(ctx context.Context, records []interfaces.RelationshipRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := EncodeRecords(records, FormatForPath(s.path))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("failed to create relationship directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("failed to write relationship file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace relationship file: %w", err)
	}

	logging.StoreOperation("save", s.path, len(records))
	return nil
}
