// Package gpudb is the accelerator catalog: a fetched or built-in list of GPUs merged with
// unified-memory presets and user-defined entries.
package gpudb

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/canirun/canirun/pkg/cache"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mudler/xlog"
)

const (
	// DefaultTTL is how long a fetched catalog is reused.
	DefaultTTL = 7 * 24 * time.Hour

	// MinMemoryGB drops accelerators too small to be worth listing.
	MinMemoryGB = 4

	// FailureBackoff is how long a failed fetch is remembered before the source is tried
	// again. Until then the built-in table is served.
	FailureBackoff = time.Minute

	cacheKeyPrefix = "accelerators"
)

var ErrAcceleratorNotFound = errors.New("accelerator not found")

type Catalog struct {
	source Source
	cache  cache.Cache[[]vram.AcceleratorSpec]

	mu       sync.RWMutex
	custom   []vram.AcceleratorSpec
	failedAt time.Time
}

// NewCatalog builds a catalog over source. A nil source uses the built-in table and a nil
// cache keeps fetched lists in memory for DefaultTTL.
func NewCatalog(source Source, c cache.Cache[[]vram.AcceleratorSpec]) *Catalog {
	if source == nil {
		source = BuiltinSource{}
	}
	if c == nil {
		c = cache.NewMemory[[]vram.AcceleratorSpec](DefaultTTL)
	}
	return &Catalog{source: source, cache: c}
}

// SetCustom replaces the user-defined accelerators. They win over catalog entries with
// the same name.
func (c *Catalog) SetCustom(specs []vram.AcceleratorSpec) {
	c.mu.Lock()
	c.custom = slices.Clone(specs)
	c.mu.Unlock()
}

// Refresh drops the cached list so the next call fetches again.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	source := c.source
	c.failedAt = time.Time{}
	c.mu.Unlock()
	c.cache.Delete(cacheKey(source))
}

// cacheKey scopes cached lists to the source they came from, so a list fetched from one
// URL is never served for another.
func cacheKey(source Source) string {
	if k, ok := source.(interface{ Key() string }); ok {
		return cacheKeyPrefix + ":" + k.Key()
	}
	return cacheKeyPrefix
}

// SetSource switches where the catalog is fetched from and drops the cached list.
func (c *Catalog) SetSource(source Source) {
	if source == nil {
		source = BuiltinSource{}
	}
	c.mu.Lock()
	c.source = source
	c.mu.Unlock()
	c.Refresh()
}

func (c *Catalog) fetch(ctx context.Context) ([]vram.AcceleratorSpec, error) {
	c.mu.RLock()
	source, failedAt := c.source, c.failedAt
	c.mu.RUnlock()

	// embedded in the binary, nothing to cache
	if _, ok := source.(BuiltinSource); ok {
		return source.Fetch(ctx)
	}
	if !failedAt.IsZero() && time.Since(failedAt) < FailureBackoff {
		return nil, fmt.Errorf("accelerator catalog unavailable since %s", failedAt.Format(time.RFC3339))
	}

	fetched, err := cache.GetOrLoad(c.cache, cacheKey(source), func() ([]vram.AcceleratorSpec, error) {
		return source.Fetch(ctx)
	})
	if err != nil && ctx.Err() == nil {
		c.mu.Lock()
		c.failedAt = time.Now()
		c.mu.Unlock()
	}
	return fetched, err
}

// Accelerators returns the merged catalog sorted by descending memory, then name.
// Fetch failures fall back to the built-in table.
func (c *Catalog) Accelerators(ctx context.Context) []vram.AcceleratorSpec {
	fetched, err := c.fetch(ctx)
	if err != nil {
		xlog.Warn("failed to fetch accelerator catalog, using built-in table", "error", err)
		fetched, _ = BuiltinSource{}.Fetch(ctx)
	}

	byName := map[string]vram.AcceleratorSpec{}
	for _, a := range fetched {
		if a.Name == "" || a.MemoryGB < MinMemoryGB {
			continue
		}
		byName[strings.ToLower(a.Name)] = a
	}
	for _, a := range UnifiedPresets() {
		byName[strings.ToLower(a.Name)] = a
	}

	c.mu.RLock()
	for _, a := range c.custom {
		byName[strings.ToLower(a.Name)] = a
	}
	c.mu.RUnlock()

	all := make([]vram.AcceleratorSpec, 0, len(byName))
	for _, a := range byName {
		all = append(all, a)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].MemoryGB != all[j].MemoryGB {
			return all[i].MemoryGB > all[j].MemoryGB
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// Find looks name up case-insensitively, falling back to the closest fuzzy match.
func (c *Catalog) Find(ctx context.Context, name string) (vram.AcceleratorSpec, error) {
	all := c.Accelerators(ctx)
	for _, a := range all {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}

	names := make([]string, len(all))
	for i, a := range all {
		names[i] = a.Name
	}
	ranks := fuzzy.RankFindNormalizedFold(name, names)
	if len(ranks) == 0 {
		return vram.AcceleratorSpec{}, fmt.Errorf("%w: %q", ErrAcceleratorNotFound, name)
	}
	sort.Stable(ranks)
	return all[ranks[0].OriginalIndex], nil
}

// Search filters the catalog by term and vendor. Empty filters match everything.
func (c *Catalog) Search(ctx context.Context, term string, vendor vram.Vendor) []vram.AcceleratorSpec {
	term = strings.ToLower(strings.TrimSpace(term))
	var res []vram.AcceleratorSpec
	for _, a := range c.Accelerators(ctx) {
		if vendor != "" && !strings.EqualFold(string(a.Vendor), string(vendor)) {
			continue
		}
		if term == "" ||
			fuzzy.MatchNormalizedFold(term, a.Name) ||
			strings.Contains(strings.ToLower(a.Architecture), term) ||
			strings.Contains(strings.ToLower(a.Generation), term) {
			res = append(res, a)
		}
	}
	return res
}
