package vram

import (
	"fmt"
	"slices"
	"strings"
)

// Quantization is a weight quantization level name, e.g. "Q4_K_M".
type Quantization string

const (
	QuantFP32  Quantization = "FP32"
	QuantFP16  Quantization = "FP16"
	QuantQ8_0  Quantization = "Q8_0"
	QuantQ6_K  Quantization = "Q6_K"
	QuantQ5_KM Quantization = "Q5_K_M"
	QuantQ4_KM Quantization = "Q4_K_M"
	QuantQ3_KM Quantization = "Q3_K_M"
	QuantQ2_K  Quantization = "Q2_K"
)

// DefaultQuantization is the balanced 4-bit level suggested when memory is short.
const DefaultQuantization = QuantQ4_KM

// QuantizationInfo describes a level for display.
type QuantizationInfo struct {
	Level         Quantization `json:"level"`
	Label         string       `json:"label"`
	Description   string       `json:"description"`
	BitsPerWeight float64      `json:"bits_per_weight"`
}

// Effective bits per weight include block-scale metadata, so sub-8-bit levels are not
// clean fractions. Ordered from largest to smallest footprint.
var quantizations = []QuantizationInfo{
	{QuantFP32, "FP32 (full precision)", "Original weights, largest footprint, rarely needed for inference", 32},
	{QuantFP16, "FP16 (half precision)", "Reference quality, twice the size of Q8_0", 16},
	{QuantQ8_0, "Q8_0 (8-bit)", "Near-lossless, about half of FP16", 8.5},
	{QuantQ6_K, "Q6_K (6-bit)", "Very high quality, hard to tell apart from Q8_0", 6.59},
	{QuantQ5_KM, "Q5_K_M (5-bit)", "High quality with a noticeable size saving", 5.69},
	{QuantQ4_KM, "Q4_K_M (4-bit, recommended)", "Best quality/size balance for most users", 4.85},
	{QuantQ3_KM, "Q3_K_M (3-bit)", "Small, with visible quality loss on harder tasks", 3.91},
	{QuantQ2_K, "Q2_K (2-bit)", "Extreme compression, significant quality loss", 3.35},
}

// aggressiveQuantizations are compared by name: a model already at one of these levels
// gets no "switch quantization" advice.
var aggressiveQuantizations = []Quantization{QuantQ4_KM, QuantQ3_KM, QuantQ2_K}

// Quantizations returns the table ordered from largest to smallest footprint.
func Quantizations() []QuantizationInfo {
	return slices.Clone(quantizations)
}

// Info returns the table entry for q.
func (q Quantization) Info() (QuantizationInfo, bool) {
	for _, info := range quantizations {
		if info.Level == q {
			return info, true
		}
	}
	return QuantizationInfo{}, false
}

// BitsPerWeight returns the effective bpw of q.
func (q Quantization) BitsPerWeight() (float64, error) {
	info, ok := q.Info()
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownQuantization, string(q))
	}
	return info.BitsPerWeight, nil
}

// IsAggressive reports whether q is one of the three smallest levels.
func (q Quantization) IsAggressive() bool {
	return slices.Contains(aggressiveQuantizations, q)
}

// ParseQuantization matches s case-insensitively against the table. "F16" and "F32"
// are accepted as aliases used by GGUF tooling.
func ParseQuantization(s string) (Quantization, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "F16":
		name = string(QuantFP16)
	case "F32":
		name = string(QuantFP32)
	}
	q := Quantization(name)
	if _, ok := q.Info(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownQuantization, s)
	}
	return q, nil
}
