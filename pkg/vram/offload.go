package vram

import "math"

const (
	// OverheadGB is reserved once for the accelerator runtime, whatever the device count.
	OverheadGB = 0.5

	// ComparisonContextLength caps the context used when comparing models side by side.
	ComparisonContextLength = 4096
)

// PlanLayers splits totalLayers between accelerator and host. Every layer is assumed to
// cost the same share of weights plus KV cache.
func PlanLayers(modelGB, kvCacheGB float64, totalLayers int, availableAcceleratorGB float64) (onAccelerator, onHost int) {
	if totalLayers <= 0 {
		return 0, 0
	}
	if availableAcceleratorGB <= OverheadGB {
		return 0, totalLayers
	}

	budget := availableAcceleratorGB - OverheadGB
	perLayer := (modelGB + kvCacheGB) / float64(totalLayers)
	if perLayer <= 0 {
		return totalLayers, 0
	}

	fit := math.Floor(budget / perLayer)
	if fit >= float64(totalLayers) {
		onAccelerator = totalLayers
	} else {
		onAccelerator = int(fit)
	}
	return onAccelerator, totalLayers - onAccelerator
}

// ClassifyVerdict applies the verdict ladder. Order matters: a configuration whose
// total fits accelerator+host but with no layer on the accelerator is not a partial
// offload and falls through to the host-only check.
func ClassifyVerdict(totalRequiredGB, availableAcceleratorGB, availableHostGB float64, layersOnAccelerator int) Verdict {
	if totalRequiredGB <= availableAcceleratorGB {
		return VerdictFullGPU
	}
	if totalRequiredGB <= availableAcceleratorGB+availableHostGB && layersOnAccelerator > 0 {
		return VerdictPartialOffload
	}
	if totalRequiredGB <= availableHostGB {
		return VerdictCPUOnly
	}
	return VerdictCannotRun
}

func offloadPercent(onHost, totalLayers int) float64 {
	if totalLayers <= 0 {
		return 0
	}
	return float64(onHost) / float64(totalLayers) * 100
}
