package snapshot

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const fileExt = ".snap"

// FileStore keeps one file per snapshot under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Save writes to a temp file and renames it into place.
func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	if err := validateName(snap.Name); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, snap.Name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(snap.Data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(snap.Name))
}

func (s *FileStore) Load(_ context.Context, name string) (Snapshot, error) {
	if err := validateName(name); err != nil {
		return Snapshot{}, err
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Name: name, Data: data}, nil
}

func (s *FileStore) Close() error {
	return nil
}
