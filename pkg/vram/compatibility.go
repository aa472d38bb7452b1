package vram

import (
	"fmt"
	"math"
)

// CalculateCompatibility estimates how model m runs on hw at quantization q with
// contextLength tokens of context. It is a pure function of its inputs; errors only
// report inputs that cannot be planned.
func CalculateCompatibility(m ModelSpec, hw HardwareSpec, q Quantization, contextLength int) (CalculationResult, error) {
	if err := m.Validate(); err != nil {
		return CalculationResult{}, err
	}
	if contextLength <= 0 {
		return CalculationResult{}, fmt.Errorf("%w: %d", ErrInvalidContextLength, contextLength)
	}
	modelGB, err := ModelMemoryGB(m, q)
	if err != nil {
		return CalculationResult{}, err
	}

	kvGB := KVCacheGB(m, contextLength, DefaultKVBits)
	mem := MemoryBreakdown{
		ModelGB:         modelGB,
		KVCacheGB:       kvGB,
		OverheadGB:      OverheadGB,
		TotalRequiredGB: modelGB + kvGB + OverheadGB,
	}

	accelGB := AvailableAcceleratorMemoryGB(hw)
	hostGB := AvailableHostMemoryGB(hw)

	onAccel, onHost := PlanLayers(modelGB, kvGB, m.Layers, accelGB)
	verdict := ClassifyVerdict(mem.TotalRequiredGB, accelGB, hostGB, onAccel)
	tps := TokensPerSecond(hw, m, onAccel, m.Layers)

	return CalculationResult{
		Verdict:       verdict,
		Quantization:  q,
		ContextLength: contextLength,
		Memory: MemoryBreakdown{
			ModelGB:         roundTo(mem.ModelGB, 2),
			KVCacheGB:       roundTo(mem.KVCacheGB, 2),
			OverheadGB:      roundTo(mem.OverheadGB, 2),
			TotalRequiredGB: roundTo(mem.TotalRequiredGB, 2),
		},
		AvailableAcceleratorGB: roundTo(accelGB, 2),
		AvailableHostGB:        roundTo(hostGB, 2),
		Layers: LayerPlan{
			Total:          m.Layers,
			OnAccelerator:  onAccel,
			OnHost:         onHost,
			OffloadPercent: int(math.Round(offloadPercent(onHost, m.Layers))),
		},
		Throughput: Throughput{
			TokensPerSecond: tps,
			Category:        SpeedCategoryFor(tps),
		},
		Recommendations: Recommend(m, hw, q, contextLength, verdict, mem, accelGB, hostGB),
	}, nil
}

// QuickCheck runs the verdict ladder at the reference context length. It is meant to be
// called once per row of a comparison table.
func QuickCheck(m ModelSpec, hw HardwareSpec, q Quantization) (QuickCheckResult, error) {
	if err := m.Validate(); err != nil {
		return QuickCheckResult{}, err
	}
	modelGB, err := ModelMemoryGB(m, q)
	if err != nil {
		return QuickCheckResult{}, err
	}

	kvGB := KVCacheGB(m, ReferenceContextLength(m), DefaultKVBits)
	total := modelGB + kvGB + OverheadGB
	accelGB := AvailableAcceleratorMemoryGB(hw)
	onAccel, _ := PlanLayers(modelGB, kvGB, m.Layers, accelGB)

	return QuickCheckResult{
		Verdict:      ClassifyVerdict(total, accelGB, AvailableHostMemoryGB(hw), onAccel),
		VRAMNeededGB: roundTo(total, 2),
	}, nil
}
