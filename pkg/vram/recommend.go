package vram

import (
	"fmt"
)

// RecommendationContextLength is the context length suggested to shrink the KV cache.
const RecommendationContextLength = 4096

const minContextSavingsGB = 0.5

// Recommend derives advice for a computed fit. mem holds unrounded figures. Every rule is
// evaluated independently and the output order is fixed.
func Recommend(m ModelSpec, hw HardwareSpec, q Quantization, contextLength int, verdict Verdict, mem MemoryBreakdown, availableAcceleratorGB, availableHostGB float64) []Recommendation {
	recs := []Recommendation{}

	if verdict == VerdictCannotRun {
		recs = append(recs, Recommendation{
			Type:  RecommendModel,
			Title: "Try a smaller model",
			Description: fmt.Sprintf("This configuration needs %s but only %s is available across GPU and system memory. Pick a model with fewer parameters.",
				FormatGB(mem.TotalRequiredGB), FormatGB(availableAcceleratorGB+availableHostGB)),
			Impact: ImpactHigh,
		})
	}

	if verdict != VerdictFullGPU && !q.IsAggressive() {
		bpw, _ := DefaultQuantization.BitsPerWeight()
		quantized := modelMemoryGB(m, bpw)
		recs = append(recs, Recommendation{
			Type:  RecommendQuantization,
			Title: fmt.Sprintf("Switch to %s", DefaultQuantization),
			Description: fmt.Sprintf("%s would shrink the model weights from %s to %s (about %s in total), with a small quality loss.",
				DefaultQuantization, FormatGB(mem.ModelGB), FormatGB(quantized), FormatGB(quantized+mem.KVCacheGB+mem.OverheadGB)),
			Impact: ImpactHigh,
		})
	}

	if contextLength > RecommendationContextLength && verdict != VerdictFullGPU {
		reduced := KVCacheGB(m, RecommendationContextLength, DefaultKVBits)
		if savings := mem.KVCacheGB - reduced; savings > minContextSavingsGB {
			recs = append(recs, Recommendation{
				Type:  RecommendContext,
				Title: "Reduce context length",
				Description: fmt.Sprintf("Lowering the context from %d to %d tokens would save %.2f GB of KV cache.",
					contextLength, RecommendationContextLength, savings),
				Impact: ImpactMedium,
			})
		}
	}

	if verdict == VerdictPartialOffload {
		recs = append(recs, Recommendation{
			Type:        RecommendPerformance,
			Title:       "Expect slower generation",
			Description: "Some layers will run on the CPU, which is several times slower than the GPU. Freeing GPU memory or lowering the quantization keeps more layers on the GPU.",
			Impact:      ImpactLow,
		})
	}

	if hw.IsUnifiedMemory {
		recs = append(recs, Recommendation{
			Type:  RecommendHardware,
			Title: "Unified memory",
			Description: fmt.Sprintf("GPU and CPU share one memory pool; about %.0f%% of it is usable for models once the OS and other apps take their share.",
				UsableUnifiedRatio*100),
			Impact: ImpactLow,
		})
	}

	return recs
}
