package hfapi

// ModelConfig is the subset of a transformers config.json needed to size a model.
// Older GPT-style configs use the n_* names; Normalize folds them into the modern ones.
type ModelConfig struct {
	Architectures []string `json:"architectures,omitempty"`
	ModelType     string   `json:"model_type,omitempty"`

	HiddenSize            int `json:"hidden_size,omitempty"`
	NumHiddenLayers       int `json:"num_hidden_layers,omitempty"`
	NumAttentionHeads     int `json:"num_attention_heads,omitempty"`
	NumKeyValueHeads      int `json:"num_key_value_heads,omitempty"`
	HeadDim               int `json:"head_dim,omitempty"`
	IntermediateSize      int `json:"intermediate_size,omitempty"`
	MaxPositionEmbeddings int `json:"max_position_embeddings,omitempty"`
	VocabSize             int `json:"vocab_size,omitempty"`

	// mixture of experts, under the names used by Mixtral, Qwen-MoE and DeepSeek
	NumLocalExperts     int `json:"num_local_experts,omitempty"`
	NumExperts          int `json:"num_experts,omitempty"`
	NRoutedExperts      int `json:"n_routed_experts,omitempty"`
	NumExpertsPerTok    int `json:"num_experts_per_tok,omitempty"`
	MoEIntermediateSize int `json:"moe_intermediate_size,omitempty"`

	NLayer     int `json:"n_layer,omitempty"`
	NEmbd      int `json:"n_embd,omitempty"`
	NHead      int `json:"n_head,omitempty"`
	NPositions int `json:"n_positions,omitempty"`

	// TextConfig carries the language model of multimodal checkpoints.
	TextConfig *ModelConfig `json:"text_config,omitempty"`
}

// Normalize returns the effective language-model config: text_config fields win over the
// top level, and legacy names fill the gaps.
func (c ModelConfig) Normalize() ModelConfig {
	out := c
	if c.TextConfig != nil {
		t := c.TextConfig.Normalize()
		out.HiddenSize = pick(t.HiddenSize, c.HiddenSize)
		out.NumHiddenLayers = pick(t.NumHiddenLayers, c.NumHiddenLayers)
		out.NumAttentionHeads = pick(t.NumAttentionHeads, c.NumAttentionHeads)
		out.NumKeyValueHeads = pick(t.NumKeyValueHeads, c.NumKeyValueHeads)
		out.HeadDim = pick(t.HeadDim, c.HeadDim)
		out.IntermediateSize = pick(t.IntermediateSize, c.IntermediateSize)
		out.MaxPositionEmbeddings = pick(t.MaxPositionEmbeddings, c.MaxPositionEmbeddings)
		out.VocabSize = pick(t.VocabSize, c.VocabSize)
		out.NumLocalExperts = pick(t.NumLocalExperts, c.NumLocalExperts)
		out.NumExperts = pick(t.NumExperts, c.NumExperts)
		out.NRoutedExperts = pick(t.NRoutedExperts, c.NRoutedExperts)
		out.NumExpertsPerTok = pick(t.NumExpertsPerTok, c.NumExpertsPerTok)
		out.MoEIntermediateSize = pick(t.MoEIntermediateSize, c.MoEIntermediateSize)
		if t.ModelType != "" {
			out.ModelType = t.ModelType
		}
		out.TextConfig = nil
	}

	out.HiddenSize = pick(out.HiddenSize, out.NEmbd)
	out.NumHiddenLayers = pick(out.NumHiddenLayers, out.NLayer)
	out.NumAttentionHeads = pick(out.NumAttentionHeads, out.NHead)
	out.MaxPositionEmbeddings = pick(out.MaxPositionEmbeddings, out.NPositions)
	if out.IntermediateSize == 0 && out.HiddenSize > 0 {
		// GPT-style MLPs are 4x wide
		out.IntermediateSize = 4 * out.HiddenSize
	}
	return out
}

// ExpertCount is the number of experts per MoE layer, 0 for dense models.
func (c ModelConfig) ExpertCount() int {
	return pick(c.NumLocalExperts, pick(c.NumExperts, c.NRoutedExperts))
}

func pick(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
