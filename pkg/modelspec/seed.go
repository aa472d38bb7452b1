package modelspec

import (
	_ "embed"
	"fmt"

	"github.com/canirun/canirun/pkg/vram"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedCatalog []byte

// Seed returns the curated models shipped with the binary.
func Seed() []vram.ModelSpec {
	specs, err := parseYAML(seedCatalog, vram.SourceSeed)
	if err != nil {
		// embedded at build time
		panic(err)
	}
	return specs
}

// ParseCustom decodes and validates user-defined models, e.g. a custom_models.yaml file.
func ParseCustom(b []byte) ([]vram.ModelSpec, error) {
	specs, err := parseYAML(b, vram.SourceCustom)
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func parseYAML(b []byte, source vram.ModelSource) ([]vram.ModelSpec, error) {
	var specs []vram.ModelSpec
	if err := yaml.Unmarshal(b, &specs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}
	for i := range specs {
		specs[i].Source = source
		if specs[i].Name == "" {
			_, specs[i].Name = splitRepoID(specs[i].ID)
		}
		if specs[i].NumKVHeads <= 0 {
			specs[i].NumKVHeads = specs[i].NumAttentionHeads
		}
	}
	return specs, nil
}
