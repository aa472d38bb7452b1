// Package modelspec turns model identifiers into vram.ModelSpec values, from the curated
// seed list, user definitions, GGUF headers or HuggingFace configs.
package modelspec

import (
	hfapi "github.com/canirun/canirun/pkg/huggingface-api"
)

// DefaultVocabSize is assumed when a config does not declare its vocabulary.
const DefaultVocabSize = 32000

// EstimateParams counts parameters, in billions, from a transformer config. Per layer,
// attention holds the Q and O projections (2·h·h) plus K and V (2·h·kvHeads·headDim), and
// a gated MLP holds 3·h·intermediate. Embeddings and the LM head add 2·vocab·h. For MoE
// models every expert is counted in total, only the routed ones in active.
func EstimateParams(cfg hfapi.ModelConfig) (total, active float64) {
	n := cfg.Normalize()
	h := float64(n.HiddenSize)
	layers := float64(n.NumHiddenLayers)

	kvHeads := n.NumKeyValueHeads
	if kvHeads <= 0 {
		kvHeads = n.NumAttentionHeads
	}
	headDim := float64(n.HeadDim)
	if headDim <= 0 && n.NumAttentionHeads > 0 {
		headDim = h / float64(n.NumAttentionHeads)
	}
	vocab := n.VocabSize
	if vocab <= 0 {
		vocab = DefaultVocabSize
	}

	experts := n.ExpertCount()
	activeExperts := n.NumExpertsPerTok
	intermediate := n.IntermediateSize
	if experts <= 1 {
		experts, activeExperts = 1, 1
	} else {
		if activeExperts <= 0 || activeExperts > experts {
			activeExperts = experts
		}
		if n.MoEIntermediateSize > 0 {
			intermediate = n.MoEIntermediateSize
		}
	}

	attn := 2*h*h + 2*h*(float64(kvHeads)*headDim)
	mlp := 3 * h * float64(intermediate)
	emb := 2 * float64(vocab) * h

	total = layers*attn + layers*mlp*float64(experts) + emb
	active = layers*attn + layers*mlp*float64(activeExperts) + emb
	return total / 1e9, active / 1e9
}
