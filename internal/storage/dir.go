package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/heartmarshall/hideout-backend/internal/domain"
)

// Dir stores one file per key under a directory. Files are written with
// owner-only permissions since they may hold refresh tokens.
type Dir struct {
	root string
}

// NewDir creates root if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(key string) string {
	return filepath.Join(d.root, Key(key))
}

func (d *Dir) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(d.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("key %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", key, err)
	}
	return b, nil
}

// Set writes through a temp file and a rename so readers never see a
// partial value.
func (d *Dir) Set(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(d.root, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write key %s: %w", key, err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

func (d *Dir) Remove(_ context.Context, key string) error {
	err := os.Remove(d.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove key %s: %w", key, err)
	}
	return nil
}
