package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileStorageRepository keeps every namespace in one JSON document on disk
type fileStorageRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileStorageRepository creates a storage repository persisted at path
func NewFileStorageRepository(path string) StorageRepository {
	return &fileStorageRepository{path: path}
}

func (r *fileStorageRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return "", false, err
	}
	v, ok := data[namespace][key]
	return v, ok, nil
}

func (r *fileStorageRepository) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	ns := data[namespace]
	if ns == nil {
		ns = make(map[string]string, len(values))
		data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return r.write(data)
}

func (r *fileStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.load()
	if err != nil {
		return err
	}
	ns, ok := data[namespace]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(ns, k)
	}
	if len(ns) == 0 {
		delete(data, namespace)
	}
	return r.write(data)
}

func (r *fileStorageRepository) Ping(ctx context.Context) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage dir: %w", err)
	}
	return nil
}

// load reads the document; a missing or unreadable document is treated as
// empty so the next write replaces it
func (r *fileStorageRepository) load() (map[string]map[string]string, error) {
	data := make(map[string]map[string]string)
	b, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data, nil
		}
		return nil, fmt.Errorf("read storage: %w", err)
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return make(map[string]map[string]string), nil
	}
	return data, nil
}

// write replaces the document through a temp file and rename
func (r *fileStorageRepository) write(data map[string]map[string]string) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage dir: %w", err)
	}
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".storage-*.json")
	if err != nil {
		return fmt.Errorf("create temp storage: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp storage: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}
