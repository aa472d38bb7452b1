package vram

import (
	"fmt"
)

const (
	bytesPerGB = 1e9

	// DefaultKVBits is the KV-cache element width when the cache is not quantized.
	DefaultKVBits = 16
)

// memoryParams is the parameter count that has to be resident: every expert of a
// mixture-of-experts model lives in memory even though only some of them run per token.
func memoryParams(m ModelSpec) float64 {
	return m.Params
}

// computeParams is the parameter count read per generated token. For MoE models only
// the active experts are evaluated.
func computeParams(m ModelSpec) float64 {
	if m.IsMoE && m.ActiveParams > 0 {
		return m.ActiveParams
	}
	return m.Params
}

// ModelMemoryGB returns the memory taken by the model weights at quantization q.
func ModelMemoryGB(m ModelSpec, q Quantization) (float64, error) {
	bpw, err := q.BitsPerWeight()
	if err != nil {
		return 0, err
	}
	return modelMemoryGB(m, bpw), nil
}

func modelMemoryGB(m ModelSpec, bpw float64) float64 {
	bytes := memoryParams(m) * 1e9 * bpw / 8
	return bytes / bytesPerGB
}

// KVCacheGB returns the key/value cache size for contextLength tokens, with kvBits bits
// per cached element. Keys and values are stored separately, hence the factor 2.
func KVCacheGB(m ModelSpec, contextLength int, kvBits int) float64 {
	headDim := m.HeadDim()
	if headDim <= 0 || contextLength <= 0 {
		return 0
	}
	kvHeads := m.NumKVHeads
	if kvHeads <= 0 {
		kvHeads = m.NumAttentionHeads
	}
	if kvBits <= 0 {
		kvBits = DefaultKVBits
	}
	bytes := 2 * float64(m.Layers) * float64(kvHeads) * headDim * float64(contextLength) * float64(kvBits) / 8
	return bytes / bytesPerGB
}

// ReferenceContextLength is the context used for comparison tables: the model's
// maximum capped at ComparisonContextLength.
func ReferenceContextLength(m ModelSpec) int {
	if m.MaxContextLength <= 0 {
		return ComparisonContextLength
	}
	return min(m.MaxContextLength, ComparisonContextLength)
}

// FormatGB renders a GB figure the way results are shown to users.
func FormatGB(gb float64) string {
	if gb >= 100 {
		return fmt.Sprintf("%.0f GB", gb)
	}
	return fmt.Sprintf("%.1f GB", gb)
}

// FormatBytes renders n with decimal (SI) units.
func FormatBytes(n uint64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for u := n / unit; u >= unit; u /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
