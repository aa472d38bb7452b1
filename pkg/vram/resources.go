package vram

const (
	// UsableUnifiedRatio is the share of a unified memory pool left for ML workloads once
	// the OS and other processes have taken theirs.
	UsableUnifiedRatio = 0.75

	defaultBandwidthGBs        = 50
	defaultUnifiedBandwidthGBs = 100
)

// AvailableAcceleratorMemoryGB resolves the accelerator memory a model may use.
func AvailableAcceleratorMemoryGB(hw HardwareSpec) float64 {
	if hw.CustomMemoryOverrideGB != nil {
		return *hw.CustomMemoryOverrideGB
	}
	if hw.Accelerator == nil {
		return 0
	}
	if hw.IsUnifiedMemory {
		// acceleratorCount does not apply to a shared pool
		return hw.Accelerator.MemoryGB * UsableUnifiedRatio
	}
	count := hw.AcceleratorCount
	if count < 1 {
		count = 1
	}
	return hw.Accelerator.MemoryGB * float64(count)
}

// AvailableHostMemoryGB is the system RAM, unadjusted.
func AvailableHostMemoryGB(hw HardwareSpec) float64 {
	return hw.SystemMemoryGB
}

func memoryBandwidthGBs(hw HardwareSpec) float64 {
	if hw.Accelerator != nil && hw.Accelerator.MemoryBandwidthGBs > 0 {
		return hw.Accelerator.MemoryBandwidthGBs
	}
	if hw.IsUnifiedMemory {
		return defaultUnifiedBandwidthGBs
	}
	return defaultBandwidthGBs
}
