package modelspec

import (
	"errors"
	"fmt"
	"math"
	"strings"

	hfapi "github.com/canirun/canirun/pkg/huggingface-api"
	"github.com/canirun/canirun/pkg/vram"
)

// ErrIncompleteConfig is returned for configs missing the fields the planner needs.
var ErrIncompleteConfig = errors.New("config.json lacks model dimensions")

// FromHubConfig builds a spec from a HuggingFace config. When info carries the
// safetensors total it replaces the estimated parameter count.
func FromHubConfig(repoID string, cfg *hfapi.ModelConfig, info *hfapi.ModelInfo) (vram.ModelSpec, error) {
	if cfg == nil {
		return vram.ModelSpec{}, fmt.Errorf("%w: %s", ErrIncompleteConfig, repoID)
	}
	n := cfg.Normalize()
	if n.NumHiddenLayers <= 0 || n.HiddenSize <= 0 || n.NumAttentionHeads <= 0 {
		return vram.ModelSpec{}, fmt.Errorf("%w: %s", ErrIncompleteConfig, repoID)
	}

	total, active := EstimateParams(n)
	if info != nil && info.Safetensors != nil && info.Safetensors.Total > 0 {
		measured := float64(info.Safetensors.Total) / 1e9
		if total > 0 {
			// keep the estimated active/total ratio for MoE models
			active *= measured / total
		}
		total = measured
	}

	org, name := splitRepoID(repoID)
	spec := vram.ModelSpec{
		ID:                repoID,
		Name:              name,
		Organization:      org,
		Source:            vram.SourceHub,
		Params:            round2(total),
		Layers:            n.NumHiddenLayers,
		NumAttentionHeads: n.NumAttentionHeads,
		NumKVHeads:        n.NumKeyValueHeads,
		HiddenSize:        n.HiddenSize,
		IntermediateSize:  n.IntermediateSize,
		MaxContextLength:  n.MaxPositionEmbeddings,
	}
	if spec.NumKVHeads <= 0 {
		spec.NumKVHeads = spec.NumAttentionHeads
	}
	if experts := n.ExpertCount(); experts > 1 {
		spec.IsMoE = true
		spec.NumExperts = experts
		spec.NumActiveExperts = n.NumExpertsPerTok
		spec.ActiveParams = round2(active)
	}
	return spec, spec.Validate()
}

func splitRepoID(repoID string) (org, name string) {
	if i := strings.LastIndex(repoID, "/"); i >= 0 {
		return repoID[:i], repoID[i+1:]
	}
	return "", repoID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
