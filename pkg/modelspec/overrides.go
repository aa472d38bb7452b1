package modelspec

import (
	"fmt"

	"dario.cat/mergo"
	"github.com/canirun/canirun/pkg/vram"
)

// ApplyOverrides overlays the non-zero fields of overrides on spec, e.g. a context
// length or KV head count the user knows better than the config. The identity fields
// of spec are kept.
func ApplyOverrides(spec vram.ModelSpec, overrides vram.ModelSpec) (vram.ModelSpec, error) {
	out := spec
	overrides.ID, overrides.Source = "", ""
	if err := mergo.Merge(&out, overrides, mergo.WithOverride); err != nil {
		return spec, fmt.Errorf("failed to apply model overrides: %w", err)
	}
	if out.ActiveParams > 0 || out.NumExperts > 1 {
		out.IsMoE = true
	}
	return out, out.Validate()
}
