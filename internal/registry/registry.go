package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"csfloat-watch/internal/models"
)

// Registry is the durable map from search key to tracking configuration.
// Mutations rewrite the whole file; the write rate is user actions plus one
// dedup update per alert, so that is cheap. All mutation goes through this
// one owner so concurrent loops cannot lose each other's updates.
type Registry struct {
	path  string
	mu    sync.Mutex
	items map[string]models.TrackedItem
}

// New creates a registry backed by the given JSON file. Call Load before use.
func New(path string) *Registry {
	return &Registry{
		path:  path,
		items: make(map[string]models.TrackedItem),
	}
}

// Load reads the registry file. A missing file yields an empty registry; an
// unreadable or malformed one is an error the caller should surface.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.items = make(map[string]models.TrackedItem)
			return nil
		}
		return fmt.Errorf("failed to read tracked items file: %w", err)
	}

	items := make(map[string]models.TrackedItem)
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to parse tracked items file: %w", err)
	}
	r.items = items
	return nil
}

// Get returns the entry for a key.
func (r *Registry) Get(key string) (models.TrackedItem, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	return item, ok
}

// All returns a copy of every entry.
func (r *Registry) All() map[string]models.TrackedItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]models.TrackedItem, len(r.items))
	for k, v := range r.items {
		out[k] = v
	}
	return out
}

// Upsert stores an entry and persists the registry.
func (r *Registry) Upsert(key string, item models.TrackedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[key] = item
	return r.save()
}

// Update applies fn to an existing entry and persists. A missing key is a
// no-op so a loop whose entry was removed mid-cycle does not resurrect it.
func (r *Registry) Update(key string, fn func(*models.TrackedItem)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[key]
	if !ok {
		return nil
	}
	fn(&item)
	r.items[key] = item
	return r.save()
}

// Remove deletes an entry and persists. Removing an absent key is a no-op.
func (r *Registry) Remove(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		return nil
	}
	delete(r.items, key)
	return r.save()
}

// save rewrites the whole file. Caller holds the mutex.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.items, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode tracked items: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tracked items file: %w", err)
	}
	return nil
}
