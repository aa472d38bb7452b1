package cache

// A JSON file cache shared between processes, e.g. the CLI and a running server.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/mudler/xlog"
)

// File persists entries as JSON at path. Readers and writers take a file lock so several
// processes can share one cache file.
type File[V any] struct {
	path    string
	ttl     time.Duration
	entries map[string]entry[V]
	flock   *flock.Flock
	sync.Mutex
}

// NewFile opens (or creates on first write) the cache file at path.
func NewFile[V any](path string, ttl time.Duration) (*File[V], error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}
	c := &File[V]{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		flock:   flock.New(path + ".lock"),
	}
	return c, c.load()
}

func (c *File[V]) Get(key string) (V, bool) {
	var zero V

	c.flock.Lock()
	defer c.flock.Unlock()
	c.Lock()
	defer c.Unlock()

	if err := c.load(); err != nil {
		xlog.Warn("failed to read cache file", "path", c.path, "error", err)
	}
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !e.fresh(c.ttl, time.Now()) {
		delete(c.entries, key)
		if err := c.save(); err != nil {
			xlog.Warn("failed to write cache file", "path", c.path, "error", err)
		}
		return zero, false
	}
	return e.Value, true
}

func (c *File[V]) Set(key string, value V) {
	c.update(func() { c.entries[key] = entry[V]{Value: value, StoredAt: time.Now()} })
}

func (c *File[V]) Delete(key string) {
	c.update(func() { delete(c.entries, key) })
}

func (c *File[V]) Purge() {
	c.update(func() { c.entries = make(map[string]entry[V]) })
}

func (c *File[V]) update(mutate func()) {
	c.flock.Lock()
	defer c.flock.Unlock()
	c.Lock()
	defer c.Unlock()

	if err := c.load(); err != nil {
		xlog.Warn("failed to read cache file", "path", c.path, "error", err)
	}
	mutate()
	if err := c.save(); err != nil {
		xlog.Warn("failed to write cache file", "path", c.path, "error", err)
	}
}

func (c *File[V]) load() error {
	b, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	entries := make(map[string]entry[V])
	if len(b) > 0 {
		if err := json.Unmarshal(b, &entries); err != nil {
			return fmt.Errorf("decoding %s: %w", c.path, err)
		}
	}
	c.entries = entries
	return nil
}

func (c *File[V]) save() error {
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(c.entries)
}
