package modelspec

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/canirun/canirun/pkg/cache"
	"github.com/canirun/canirun/pkg/downloader"
	hfapi "github.com/canirun/canirun/pkg/huggingface-api"
	"github.com/canirun/canirun/pkg/vram"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mudler/xlog"
)

const (
	// DefaultTTL is how long a hub or GGUF lookup is reused.
	DefaultTTL = 24 * time.Hour

	DefaultSearchLimit = 20
)

var (
	ErrModelNotFound = errors.New("model not found")
	// ErrGatedModel is returned for hub repositories that need an accepted license and a
	// token.
	ErrGatedModel = errors.New("model is gated")
)

// HubClient is the part of the HuggingFace client the resolver uses.
type HubClient interface {
	GetConfig(ctx context.Context, repoID string) (*hfapi.ModelConfig, error)
	GetModelInfo(ctx context.Context, repoID string) (*hfapi.ModelInfo, error)
	SearchModels(ctx context.Context, params hfapi.SearchParams) ([]hfapi.Model, error)
	ListFiles(ctx context.Context, repoID string) ([]hfapi.FileInfo, error)
	FileURL(repoID, file string) string
}

// SearchResult is one row of a model search.
type SearchResult struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Source    vram.ModelSource `json:"source"`
	Params    float64          `json:"params,omitempty"`
	Downloads int              `json:"downloads,omitempty"`
}

type Resolver struct {
	hub   HubClient
	cache cache.Cache[vram.ModelSpec]
	seed  []vram.ModelSpec
	gguf  func(ctx context.Context, uri string) (vram.ModelSpec, error)

	mu     sync.RWMutex
	custom []vram.ModelSpec
}

type ResolverOption func(*Resolver)

// WithGGUFReader replaces the GGUF header reader.
func WithGGUFReader(read func(ctx context.Context, uri string) (vram.ModelSpec, error)) ResolverOption {
	return func(r *Resolver) {
		r.gguf = read
	}
}

// NewResolver returns a resolver over the seed list. A nil hub keeps it offline; a nil
// cache keeps lookups in memory for DefaultTTL.
func NewResolver(hub HubClient, c cache.Cache[vram.ModelSpec], opts ...ResolverOption) *Resolver {
	if c == nil {
		c = cache.NewMemory[vram.ModelSpec](DefaultTTL)
	}
	r := &Resolver{hub: hub, cache: c, seed: Seed(), gguf: FromGGUF}
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetCustom replaces the user-defined models. They are tagged as custom and take
// precedence over every other source.
func (r *Resolver) SetCustom(specs []vram.ModelSpec) {
	custom := slices.Clone(specs)
	for i := range custom {
		custom[i].Source = vram.SourceCustom
	}
	r.mu.Lock()
	r.custom = custom
	r.mu.Unlock()
}

// Local returns the custom models followed by the seed list.
func (r *Resolver) Local() []vram.ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append(slices.Clone(r.custom), r.seed...)
}

// Resolve looks id up in custom models, then the seed list, then reads it as a GGUF file
// when it ends in .gguf, and finally asks the hub.
func (r *Resolver) Resolve(ctx context.Context, id string) (vram.ModelSpec, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return vram.ModelSpec{}, fmt.Errorf("%w: empty id", ErrModelNotFound)
	}

	for _, s := range r.Local() {
		if strings.EqualFold(s.ID, id) || strings.EqualFold(s.Name, id) {
			return s, nil
		}
	}

	if strings.HasSuffix(strings.ToLower(id), ".gguf") {
		uri := r.ggufURI(id)
		return cache.GetOrLoad(r.cache, "gguf:"+uri, func() (vram.ModelSpec, error) {
			xlog.Debug("reading GGUF header", "uri", uri)
			spec, err := r.gguf(ctx, uri)
			if err != nil {
				return spec, err
			}
			spec.ID = id
			return spec, nil
		})
	}

	if r.hub == nil {
		return vram.ModelSpec{}, fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	return cache.GetOrLoad(r.cache, "hub:"+id, func() (vram.ModelSpec, error) {
		return r.fromHub(ctx, id)
	})
}

// ggufURI maps "org/repo/file.gguf" to its hub download URL. huggingface:// and github:
// shorthands are expanded, local paths and other URLs are used as they are.
func (r *Resolver) ggufURI(id string) string {
	if u := downloader.URI(id); u.LooksLikeURL() || u.LooksLikeLocal() {
		return u.ResolveURL()
	}
	if r.hub == nil || strings.Contains(id, "://") {
		return id
	}
	parts := strings.SplitN(id, "/", 3)
	if len(parts) < 3 {
		return id
	}
	return r.hub.FileURL(parts[0]+"/"+parts[1], parts[2])
}

func (r *Resolver) fromHub(ctx context.Context, repoID string) (vram.ModelSpec, error) {
	xlog.Debug("fetching model config from the hub", "model", repoID)
	cfg, err := r.hub.GetConfig(ctx, repoID)
	switch {
	case errors.Is(err, hfapi.ErrNotFound):
		// GGUF-only repositories ship no config.json
		spec, gerr := r.fromHubGGUF(ctx, repoID)
		if gerr != nil {
			xlog.Debug("no GGUF fallback", "model", repoID, "error", gerr)
			return vram.ModelSpec{}, fmt.Errorf("%w: %q: %w", ErrModelNotFound, repoID, err)
		}
		return spec, nil
	case errors.Is(err, hfapi.ErrUnauthorized):
		if info, ierr := r.hub.GetModelInfo(ctx, repoID); ierr == nil && info.IsGated() {
			return vram.ModelSpec{}, fmt.Errorf("%w: %q, accept its license on the hub and set --hf-token", ErrGatedModel, repoID)
		}
		return vram.ModelSpec{}, err
	case err != nil:
		return vram.ModelSpec{}, err
	}

	info, err := r.hub.GetModelInfo(ctx, repoID)
	if err != nil {
		// the parameter count falls back to the estimate
		xlog.Debug("model info unavailable", "model", repoID, "error", err)
		info = nil
	}
	return FromHubConfig(repoID, cfg, info)
}

// fromHubGGUF reads the header of the repository's GGUF file, preferring the default
// quantization.
func (r *Resolver) fromHubGGUF(ctx context.Context, repoID string) (vram.ModelSpec, error) {
	files, err := r.hub.ListFiles(ctx, repoID)
	if err != nil {
		return vram.ModelSpec{}, err
	}
	ggufs := hfapi.GGUFFiles(files)
	if len(ggufs) == 0 {
		return vram.ModelSpec{}, fmt.Errorf("no GGUF files in %s", repoID)
	}
	file := ggufs[0].Path
	for _, f := range ggufs {
		if q, ok := QuantizationFromFilename(f.Path); ok && q == vram.DefaultQuantization {
			file = f.Path
			break
		}
	}

	uri := r.hub.FileURL(repoID, file)
	xlog.Debug("reading GGUF header from the hub", "model", repoID, "uri", uri)
	spec, err := r.gguf(ctx, uri)
	if err != nil {
		return vram.ModelSpec{}, err
	}
	spec.ID = repoID
	return spec, nil
}

// Search matches term against local models and, when a hub is configured, the hub's
// text-generation models. Hub failures only shrink the result.
func (r *Resolver) Search(ctx context.Context, term string, limit int) []SearchResult {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	term = strings.TrimSpace(term)

	seen := map[string]bool{}
	results := []SearchResult{}
	for _, s := range r.Local() {
		if term != "" && !fuzzy.MatchNormalizedFold(term, s.ID) && !fuzzy.MatchNormalizedFold(term, s.Name) {
			continue
		}
		seen[strings.ToLower(s.ID)] = true
		results = append(results, SearchResult{ID: s.ID, Name: s.Name, Source: s.Source, Params: s.Params})
	}

	if r.hub != nil && term != "" && len(results) < limit {
		models, err := r.hub.SearchModels(ctx, hfapi.SearchParams{
			Search:    term,
			Sort:      "downloads",
			Direction: -1,
			Limit:     limit,
			Filter:    "text-generation",
		})
		if err != nil {
			xlog.Warn("hub search failed", "term", term, "error", err)
		}
		for _, m := range models {
			if seen[strings.ToLower(m.ModelID)] {
				continue
			}
			seen[strings.ToLower(m.ModelID)] = true
			_, name := splitRepoID(m.ModelID)
			results = append(results, SearchResult{ID: m.ModelID, Name: name, Source: vram.SourceHub, Downloads: m.Downloads})
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
