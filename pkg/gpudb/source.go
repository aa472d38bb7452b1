package gpudb

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/canirun/canirun/pkg/downloader"
	"github.com/canirun/canirun/pkg/vram"
	"gopkg.in/yaml.v3"
)

//go:embed builtin.yaml
var builtinCatalog []byte

//go:embed unified.yaml
var unifiedCatalog []byte

// Source produces the raw accelerator list.
type Source interface {
	Fetch(ctx context.Context) ([]vram.AcceleratorSpec, error)
}

// BuiltinSource serves the table compiled into the binary.
type BuiltinSource struct{}

func (BuiltinSource) Fetch(context.Context) ([]vram.AcceleratorSpec, error) {
	return parseYAML(builtinCatalog)
}

// UnifiedPresets returns the unified-memory chips known to the catalog.
func UnifiedPresets() []vram.AcceleratorSpec {
	specs, err := parseYAML(unifiedCatalog)
	if err != nil {
		// embedded at build time
		panic(err)
	}
	for i := range specs {
		specs[i].UnifiedMemory = true
	}
	return specs
}

// ParseYAML decodes a YAML list of accelerators, e.g. a custom_accelerators.yaml file.
func ParseYAML(b []byte) ([]vram.AcceleratorSpec, error) {
	return parseYAML(b)
}

func parseYAML(b []byte) ([]vram.AcceleratorSpec, error) {
	var specs []vram.AcceleratorSpec
	if err := yaml.Unmarshal(b, &specs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accelerator catalog: %w", err)
	}
	return specs, nil
}

// RemoteSource downloads an accelerator list in YAML or JSON. URL may use the github:
// shorthand or point to a local file:// path.
type RemoteSource struct {
	URL    string
	Client *http.Client
}

func NewRemoteSource(url string) *RemoteSource {
	return &RemoteSource{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Key identifies the source in the catalog cache.
func (s *RemoteSource) Key() string {
	return s.URL
}

func (s *RemoteSource) Fetch(ctx context.Context) ([]vram.AcceleratorSpec, error) {
	body, err := downloader.URI(s.URL).Read(ctx, s.Client, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accelerator catalog: %w", err)
	}
	// YAML is a superset of JSON
	return parseYAML(body)
}
