package modelspec_test

import (
	hfapi "github.com/canirun/canirun/pkg/huggingface-api"
	. "github.com/canirun/canirun/pkg/modelspec"
	"github.com/canirun/canirun/pkg/vram"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func llama2Config() hfapi.ModelConfig {
	return hfapi.ModelConfig{
		Architectures:         []string{"LlamaForCausalLM"},
		HiddenSize:            4096,
		NumHiddenLayers:       32,
		NumAttentionHeads:     32,
		NumKeyValueHeads:      32,
		IntermediateSize:      11008,
		MaxPositionEmbeddings: 4096,
		VocabSize:             32000,
	}
}

func mixtralConfig() hfapi.ModelConfig {
	return hfapi.ModelConfig{
		Architectures:         []string{"MixtralForCausalLM"},
		HiddenSize:            4096,
		NumHiddenLayers:       32,
		NumAttentionHeads:     32,
		NumKeyValueHeads:      8,
		IntermediateSize:      14336,
		MaxPositionEmbeddings: 32768,
		VocabSize:             32000,
		NumLocalExperts:       8,
		NumExpertsPerTok:      2,
	}
}

var _ = Describe("EstimateParams", func() {
	It("counts a dense Llama 2 7B", func() {
		total, active := EstimateParams(llama2Config())
		Expect(total).To(BeNumerically("~", 6.738149376, 1e-9))
		Expect(active).To(Equal(total))
	})

	It("counts every expert in the total and the routed ones in active", func() {
		total, active := EstimateParams(mixtralConfig())
		Expect(total).To(BeNumerically("~", 46.701477888, 1e-9))
		Expect(active).To(BeNumerically("~", 12.878610432, 1e-9))
	})

	It("defaults the vocabulary size", func() {
		cfg := llama2Config()
		cfg.VocabSize = 0
		total, _ := EstimateParams(cfg)
		Expect(total).To(BeNumerically("~", 6.738149376, 1e-9))
	})

	It("treats missing KV heads as multi-head attention", func() {
		cfg := llama2Config()
		cfg.NumKeyValueHeads = 0
		total, _ := EstimateParams(cfg)
		Expect(total).To(BeNumerically("~", 6.738149376, 1e-9))
	})
})

var _ = Describe("FromHubConfig", func() {
	It("builds a spec from the config", func() {
		cfg := mixtralConfig()
		spec, err := FromHubConfig("mistralai/Mixtral-8x7B-v0.1", &cfg, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.ID).To(Equal("mistralai/Mixtral-8x7B-v0.1"))
		Expect(spec.Organization).To(Equal("mistralai"))
		Expect(spec.Name).To(Equal("Mixtral-8x7B-v0.1"))
		Expect(spec.Source).To(Equal(vram.SourceHub))
		Expect(spec.Params).To(Equal(46.7))
		Expect(spec.IsMoE).To(BeTrue())
		Expect(spec.ActiveParams).To(Equal(12.88))
		Expect(spec.NumExperts).To(Equal(8))
		Expect(spec.NumActiveExperts).To(Equal(2))
		Expect(spec.NumKVHeads).To(Equal(8))
		Expect(spec.MaxContextLength).To(Equal(32768))
	})

	It("prefers the safetensors parameter total", func() {
		cfg := llama2Config()
		info := &hfapi.ModelInfo{Safetensors: &hfapi.SafetensorsInfo{Total: 7_000_000_000}}
		spec, err := FromHubConfig("meta-llama/Llama-2-7b-hf", &cfg, info)
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.Params).To(Equal(7.0))
		Expect(spec.IsMoE).To(BeFalse())
	})

	It("reads multimodal configs", func() {
		text := llama2Config()
		cfg := hfapi.ModelConfig{ModelType: "llava", TextConfig: &text}
		spec, err := FromHubConfig("llava-hf/llava-1.5-7b-hf", &cfg, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(spec.Layers).To(Equal(32))
		Expect(spec.HiddenSize).To(Equal(4096))
	})

	It("refuses configs without dimensions", func() {
		_, err := FromHubConfig("org/vision-only", &hfapi.ModelConfig{ModelType: "clip"}, nil)
		Expect(err).To(MatchError(ErrIncompleteConfig))
	})
})

var _ = Describe("GGUFShape", func() {
	It("converts a dense header", func() {
		spec := GGUFShape{
			Name:                 "Llama 3.2 3B Instruct",
			Parameters:           3_212_749_824,
			BlockCount:           28,
			EmbeddingLength:      3072,
			AttentionHeadCount:   24,
			AttentionHeadCountKV: 8,
			FeedForwardLength:    8192,
			MaximumContextLength: 131072,
		}.Spec("./llama-3.2-3b-q4_k_m.gguf")

		Expect(spec.Source).To(Equal(vram.SourceGGUF))
		Expect(spec.Params).To(Equal(3.21))
		Expect(spec.Layers).To(Equal(28))
		Expect(spec.NumKVHeads).To(Equal(8))
		Expect(spec.IntermediateSize).To(Equal(8192))
		Expect(spec.IsMoE).To(BeFalse())
		Expect(spec.Validate()).To(Succeed())
	})

	It("estimates active parameters of MoE headers", func() {
		spec := GGUFShape{
			Parameters:           46_702_792_704,
			BlockCount:           32,
			EmbeddingLength:      4096,
			AttentionHeadCount:   32,
			AttentionHeadCountKV: 8,
			VocabularyLength:     32000,
			ExpertCount:          8,
			ExpertUsedCount:      2,
		}.Spec("mixtral.gguf")

		Expect(spec.IsMoE).To(BeTrue())
		Expect(spec.Params).To(Equal(46.7))
		Expect(spec.ActiveParams).To(Equal(12.88))
	})

	It("falls back to attention heads without a KV head count", func() {
		spec := GGUFShape{Parameters: 1e9, BlockCount: 4, EmbeddingLength: 64, AttentionHeadCount: 4}.Spec("x.gguf")
		Expect(spec.NumKVHeads).To(Equal(4))
	})
})

var _ = Describe("QuantizationFromFilename", func() {
	It("finds the quantization tag", func() {
		q, ok := QuantizationFromFilename("bartowski/Llama-3.2-3B-Instruct-GGUF/Llama-3.2-3B-Instruct-Q4_K_M.gguf")
		Expect(ok).To(BeTrue())
		Expect(q).To(Equal(vram.QuantQ4_KM))

		q, ok = QuantizationFromFilename("tinyllama.f16.gguf")
		Expect(ok).To(BeTrue())
		Expect(q).To(Equal(vram.QuantFP16))

		q, ok = QuantizationFromFilename("model-q8_0.gguf")
		Expect(ok).To(BeTrue())
		Expect(q).To(Equal(vram.QuantQ8_0))
	})

	It("reports names without a known tag", func() {
		_, ok := QuantizationFromFilename("model-IQ2_XXS.gguf")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("ApplyOverrides", func() {
	base := vram.ModelSpec{ID: "org/model", Name: "Model", Source: vram.SourceSeed, Params: 7, Layers: 32, NumAttentionHeads: 32, NumKVHeads: 32, HiddenSize: 4096, MaxContextLength: 4096}

	It("overlays the non-zero fields", func() {
		out, err := ApplyOverrides(base, vram.ModelSpec{MaxContextLength: 32768, NumKVHeads: 8})
		Expect(err).ToNot(HaveOccurred())
		Expect(out.MaxContextLength).To(Equal(32768))
		Expect(out.NumKVHeads).To(Equal(8))
		Expect(out.Layers).To(Equal(32))
	})

	It("keeps the identity of the model", func() {
		out, err := ApplyOverrides(base, vram.ModelSpec{ID: "other", Source: vram.SourceCustom, Params: 8})
		Expect(err).ToNot(HaveOccurred())
		Expect(out.ID).To(Equal("org/model"))
		Expect(out.Source).To(Equal(vram.SourceSeed))
		Expect(out.Params).To(Equal(8.0))
	})

	It("validates the result", func() {
		_, err := ApplyOverrides(base, vram.ModelSpec{ActiveParams: 100})
		Expect(err).To(MatchError(vram.ErrInvalidModel))
	})
})

var _ = Describe("Seed", func() {
	It("ships valid, uniquely named models", func() {
		seen := map[string]bool{}
		for _, s := range Seed() {
			Expect(s.Validate()).To(Succeed(), s.ID)
			Expect(s.Source).To(Equal(vram.SourceSeed))
			Expect(s.NumKVHeads).To(BeNumerically(">", 0), s.ID)
			Expect(seen).ToNot(HaveKey(s.ID))
			seen[s.ID] = true
			if s.IsMoE {
				Expect(s.ActiveParams).To(BeNumerically("<", s.Params), s.ID)
			}
		}
		Expect(seen).To(HaveKey("meta-llama/Llama-3.1-8B-Instruct"))
	})
})

var _ = Describe("ParseCustom", func() {
	It("tags and validates user models", func() {
		specs, err := ParseCustom([]byte(`
- id: acme/llm-13b
  params: 13
  layers: 40
  num_attention_heads: 40
  hidden_size: 5120
  max_context_length: 4096
`))
		Expect(err).ToNot(HaveOccurred())
		Expect(specs).To(HaveLen(1))
		Expect(specs[0].Source).To(Equal(vram.SourceCustom))
		Expect(specs[0].Name).To(Equal("llm-13b"))
		Expect(specs[0].NumKVHeads).To(Equal(40))
	})

	It("rejects models without layers", func() {
		_, err := ParseCustom([]byte(`
- id: acme/broken
  params: 13
`))
		Expect(err).To(MatchError(vram.ErrInvalidModel))
	})
})
