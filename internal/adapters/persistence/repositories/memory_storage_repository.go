package repositories

import (
	"context"
	"sync"
)

// MemoryStorageRepository keeps storage in process memory
type MemoryStorageRepository struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

// NewMemoryStorageRepository creates an empty in-memory repository
func NewMemoryStorageRepository() *MemoryStorageRepository {
	return &MemoryStorageRepository{data: make(map[string]map[string]string)}
}

func (r *MemoryStorageRepository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data[namespace][key]
	return v, ok, nil
}

func (r *MemoryStorageRepository) SetMany(ctx context.Context, namespace string, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns := r.data[namespace]
	if ns == nil {
		ns = make(map[string]string, len(values))
		r.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = v
	}
	return nil
}

func (r *MemoryStorageRepository) Delete(ctx context.Context, namespace string, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		delete(r.data[namespace], k)
	}
	if len(r.data[namespace]) == 0 {
		delete(r.data, namespace)
	}
	return nil
}

func (r *MemoryStorageRepository) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of keys stored in namespace
func (r *MemoryStorageRepository) Len(namespace string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data[namespace])
}
