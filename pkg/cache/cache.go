// Package cache holds the TTL caches injected into the catalog and model resolvers.
package cache

import (
	"time"
)

// Cache is a keyed store whose entries expire after a fixed TTL.
type Cache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Purge()
}

type entry[V any] struct {
	Value    V         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// fresh reports whether e is still valid. A ttl <= 0 never expires.
func (e entry[V]) fresh(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Before(e.StoredAt.Add(ttl))
}

// GetOrLoad returns the cached value for key, calling load and storing its result on a
// miss. Errors are not cached.
func GetOrLoad[V any](c Cache[V], key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
