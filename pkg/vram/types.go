package vram

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidModel is returned when a model spec cannot be planned (e.g. zero layers).
	ErrInvalidModel = errors.New("invalid model spec")
	// ErrInvalidContextLength is returned for context lengths <= 0.
	ErrInvalidContextLength = errors.New("context length must be positive")
	// ErrUnknownQuantization is returned for quantization levels missing from the table.
	ErrUnknownQuantization = errors.New("unknown quantization level")
)

// ModelSource tells where a ModelSpec came from.
type ModelSource string

const (
	SourceHub    ModelSource = "hub"
	SourceSeed   ModelSource = "seed"
	SourceCustom ModelSource = "custom"
	SourceGGUF   ModelSource = "gguf"
)

// ModelSpec describes one LLM architecture variant. Params and ActiveParams are in billions.
type ModelSpec struct {
	ID           string      `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Organization string      `json:"organization,omitempty" yaml:"organization,omitempty"`
	Source       ModelSource `json:"source" yaml:"source,omitempty"`

	Params            float64 `json:"params" yaml:"params"`
	Layers            int     `json:"layers" yaml:"layers"`
	NumAttentionHeads int     `json:"num_attention_heads" yaml:"num_attention_heads"`
	NumKVHeads        int     `json:"num_kv_heads" yaml:"num_kv_heads"`
	HiddenSize        int     `json:"hidden_size" yaml:"hidden_size"`
	IntermediateSize  int     `json:"intermediate_size,omitempty" yaml:"intermediate_size,omitempty"`
	MaxContextLength  int     `json:"max_context_length" yaml:"max_context_length"`

	IsMoE            bool    `json:"is_moe,omitempty" yaml:"is_moe,omitempty"`
	ActiveParams     float64 `json:"active_params,omitempty" yaml:"active_params,omitempty"`
	NumExperts       int     `json:"num_experts,omitempty" yaml:"num_experts,omitempty"`
	NumActiveExperts int     `json:"num_active_experts,omitempty" yaml:"num_active_experts,omitempty"`
}

// HeadDim returns HiddenSize / NumAttentionHeads, or 0 when the head count is unknown.
func (m ModelSpec) HeadDim() float64 {
	if m.NumAttentionHeads <= 0 {
		return 0
	}
	return float64(m.HiddenSize) / float64(m.NumAttentionHeads)
}

// HasExactHeadDim reports whether the head dimension is a positive integer.
// KV-cache figures for models where it is not are approximate.
func (m ModelSpec) HasExactHeadDim() bool {
	return m.NumAttentionHeads > 0 && m.HiddenSize > 0 && m.HiddenSize%m.NumAttentionHeads == 0
}

// Validate checks the fields the planner divides by.
func (m ModelSpec) Validate() error {
	if m.Layers <= 0 {
		return fmt.Errorf("%w: %q has no layers", ErrInvalidModel, m.ID)
	}
	if m.Params <= 0 || math.IsNaN(m.Params) {
		return fmt.Errorf("%w: %q has no parameter count", ErrInvalidModel, m.ID)
	}
	if m.IsMoE && m.ActiveParams > m.Params {
		return fmt.Errorf("%w: %q has more active than total parameters", ErrInvalidModel, m.ID)
	}
	return nil
}

// Vendor of an accelerator.
type Vendor string

const (
	VendorNVIDIA Vendor = "nvidia"
	VendorAMD    Vendor = "amd"
	VendorIntel  Vendor = "intel"
	VendorApple  Vendor = "apple"
)

// AcceleratorSpec is a catalog entry for a GPU or unified-memory chip.
type AcceleratorSpec struct {
	Name               string  `json:"name" yaml:"name"`
	Vendor             Vendor  `json:"vendor" yaml:"vendor"`
	MemoryGB           float64 `json:"memory_gb" yaml:"memory_gb"`
	MemoryBandwidthGBs float64 `json:"memory_bandwidth_gbs" yaml:"memory_bandwidth_gbs"`
	MemoryType         string  `json:"memory_type,omitempty" yaml:"memory_type,omitempty"`
	Architecture       string  `json:"architecture,omitempty" yaml:"architecture,omitempty"`
	Generation         string  `json:"generation,omitempty" yaml:"generation,omitempty"`
	TDPWatts           int     `json:"tdp_watts,omitempty" yaml:"tdp_watts,omitempty"`
	UnifiedMemory      bool    `json:"unified_memory,omitempty" yaml:"unified_memory,omitempty"`
}

// HardwareSpec describes the target machine.
type HardwareSpec struct {
	// Accelerator is nil for CPU-only machines.
	Accelerator             *AcceleratorSpec `json:"accelerator,omitempty"`
	AcceleratorCount        int              `json:"accelerator_count"`
	SystemMemoryGB          float64          `json:"system_memory_gb"`
	IsUnifiedMemory         bool             `json:"is_unified_memory"`
	UnifiedMemoryModelLabel string           `json:"unified_memory_model_label,omitempty"`

	// CustomMemoryOverrideGB replaces the accelerator's nominal memory when set.
	CustomMemoryOverrideGB *float64 `json:"custom_memory_override_gb,omitempty"`
}

// Verdict is the overall fit classification.
type Verdict string

const (
	VerdictFullGPU        Verdict = "full-gpu"
	VerdictPartialOffload Verdict = "partial-offload"
	VerdictCPUOnly        Verdict = "cpu-only"
	VerdictCannotRun      Verdict = "cannot-run"
)

func (v Verdict) Label() string {
	switch v {
	case VerdictFullGPU:
		return "Full GPU"
	case VerdictPartialOffload:
		return "Partial Offload"
	case VerdictCPUOnly:
		return "CPU Only"
	default:
		return "Cannot Run"
	}
}

func (v Verdict) Emoji() string {
	switch v {
	case VerdictFullGPU:
		return "✅"
	case VerdictPartialOffload:
		return "⚡"
	case VerdictCPUOnly:
		return "🐢"
	default:
		return "❌"
	}
}

// SpeedCategory buckets a tokens/s estimate.
type SpeedCategory string

const (
	SpeedFast     SpeedCategory = "fast"
	SpeedModerate SpeedCategory = "moderate"
	SpeedSlow     SpeedCategory = "slow"
	SpeedVerySlow SpeedCategory = "very-slow"
)

type Impact string

const (
	ImpactHigh   Impact = "high"
	ImpactMedium Impact = "medium"
	ImpactLow    Impact = "low"
)

type RecommendationType string

const (
	RecommendModel        RecommendationType = "model"
	RecommendQuantization RecommendationType = "quantization"
	RecommendContext      RecommendationType = "context"
	RecommendPerformance  RecommendationType = "performance"
	RecommendHardware     RecommendationType = "hardware"
)

type Recommendation struct {
	Type        RecommendationType `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Impact      Impact             `json:"impact"`
}

// MemoryBreakdown is expressed in GB.
type MemoryBreakdown struct {
	ModelGB         float64 `json:"model_gb"`
	KVCacheGB       float64 `json:"kv_cache_gb"`
	OverheadGB      float64 `json:"overhead_gb"`
	TotalRequiredGB float64 `json:"total_required_gb"`
}

type LayerPlan struct {
	Total          int `json:"total"`
	OnAccelerator  int `json:"on_accelerator"`
	OnHost         int `json:"on_host"`
	OffloadPercent int `json:"offload_percent"`
}

type Throughput struct {
	TokensPerSecond float64       `json:"tokens_per_second"`
	Category        SpeedCategory `json:"category"`
}

// CalculationResult is fully derived from the inputs of CalculateCompatibility.
type CalculationResult struct {
	Verdict                Verdict          `json:"verdict"`
	Quantization           Quantization     `json:"quantization"`
	ContextLength          int              `json:"context_length"`
	Memory                 MemoryBreakdown  `json:"memory"`
	AvailableAcceleratorGB float64          `json:"available_accelerator_gb"`
	AvailableHostGB        float64          `json:"available_host_gb"`
	Layers                 LayerPlan        `json:"layers"`
	Throughput             Throughput       `json:"throughput"`
	Recommendations        []Recommendation `json:"recommendations"`
}

// QuickCheckResult is the reduced result used for comparison tables.
type QuickCheckResult struct {
	Verdict      Verdict `json:"verdict"`
	VRAMNeededGB float64 `json:"vram_needed_gb"`
}
