package cache

import (
	"time"

	"github.com/canirun/canirun/pkg/xsync"
)

// Memory is an in-process cache.
type Memory[V any] struct {
	ttl     time.Duration
	entries *xsync.SyncedMap[string, entry[V]]
}

func NewMemory[V any](ttl time.Duration) *Memory[V] {
	return &Memory[V]{ttl: ttl, entries: xsync.NewSyncedMap[string, entry[V]]()}
}

func (c *Memory[V]) Get(key string) (V, bool) {
	var zero V
	e, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}
	now := time.Now()
	if !e.fresh(c.ttl, now) {
		// a concurrent Set may have refreshed the entry
		c.entries.DeleteIf(key, func(cur entry[V]) bool { return !cur.fresh(c.ttl, now) })
		return zero, false
	}
	return e.Value, true
}

func (c *Memory[V]) Set(key string, value V) {
	c.entries.Set(key, entry[V]{Value: value, StoredAt: time.Now()})
}

func (c *Memory[V]) Delete(key string) {
	c.entries.Delete(key)
}

func (c *Memory[V]) Purge() {
	c.entries.Clear()
}

// Len counts stored entries, expired ones included until they are read.
func (c *Memory[V]) Len() int {
	return c.entries.Len()
}
