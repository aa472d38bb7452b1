package vram

import "math"

const (
	// CPUPenalty is how much slower a host-executed layer is than an accelerator one.
	CPUPenalty = 4

	MinTokensPerSecond float64 = 0.5
	MaxTokensPerSecond float64 = 200
)

// TokensPerSecond is a bandwidth-bound estimate: every active parameter is read once per
// token at an effective 2 bytes. Layers running on the host are CPUPenalty times slower.
// The result is clamped to [MinTokensPerSecond, MaxTokensPerSecond] and rounded to one
// decimal.
func TokensPerSecond(hw HardwareSpec, m ModelSpec, layersOnAccelerator, totalLayers int) float64 {
	var ratio float64
	if totalLayers > 0 {
		ratio = float64(layersOnAccelerator) / float64(totalLayers)
	}

	base := memoryBandwidthGBs(hw) / (computeParams(m) * 2)
	tps := base*ratio + (base/CPUPenalty)*(1-ratio)

	if math.IsNaN(tps) {
		tps = MinTokensPerSecond
	}
	tps = math.Max(MinTokensPerSecond, math.Min(MaxTokensPerSecond, tps))
	return roundTo(tps, 1)
}

// SpeedCategoryFor buckets tps; lower bounds are inclusive.
func SpeedCategoryFor(tps float64) SpeedCategory {
	switch {
	case tps >= 30:
		return SpeedFast
	case tps >= 10:
		return SpeedModerate
	case tps >= 3:
		return SpeedSlow
	default:
		return SpeedVerySlow
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
