package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const fsSuffix = ".json"

// ErrInvalidKey is returned for keys that can not be mapped onto a single file.
var ErrInvalidKey = errors.New("invalid storage key")

// FilesystemStorage keeps one <key>.json file per key in a flat directory.
type FilesystemStorage struct {
	dir string
	mu  sync.RWMutex
}

// NewFilesystemStorage creates the directory if needed.
func NewFilesystemStorage(dir string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create storage dir")
	}
	return &FilesystemStorage{dir: dir}, nil
}

func (f *FilesystemStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errors.Wrapf(ErrInvalidKey, "%q", key)
	}
	return filepath.Join(f.dir, key+fsSuffix), nil
}

func (f *FilesystemStorage) Write(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// write to a temp file first so readers never see a partial document
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (f *FilesystemStorage) Read(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, os.ErrNotExist
	}
	return data, err
}

// List only looks at the top level of the directory.
func (f *FilesystemStorage) List(_ context.Context, prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fsSuffix) {
			continue
		}
		key := strings.TrimSuffix(name, fsSuffix)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return sortDescending(keys), nil
}

func (f *FilesystemStorage) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (f *FilesystemStorage) Close() error {
	return nil
}
