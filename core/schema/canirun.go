package schema

import (
	"github.com/canirun/canirun/pkg/vram"
)

// @Description Hardware selection. Either name a catalog accelerator, or ask the server
// to use what it detects locally.
type HardwareRequest struct {
	Accelerator      string   `json:"accelerator,omitempty" yaml:"accelerator,omitempty"`
	AcceleratorCount int      `json:"accelerator_count,omitempty" yaml:"accelerator_count,omitempty"`
	SystemMemoryGB   float64  `json:"system_memory_gb" yaml:"system_memory_gb"`
	UnifiedMemory    bool     `json:"unified_memory,omitempty" yaml:"unified_memory,omitempty"`
	MemoryOverrideGB *float64 `json:"memory_override_gb,omitempty" yaml:"memory_override_gb,omitempty"` // replaces the accelerator memory
	Detect           bool     `json:"detect,omitempty" yaml:"detect,omitempty"`
}

// @Description Compatibility request body
type CompatibilityRequest struct {
	Model         string          `json:"model,omitempty" yaml:"model,omitempty"`           // seed/custom id, hub repo or .gguf path
	ModelSpec     *vram.ModelSpec `json:"model_spec,omitempty" yaml:"model_spec,omitempty"` // inline spec, used instead of Model
	Overrides     *vram.ModelSpec `json:"overrides,omitempty" yaml:"overrides,omitempty"`   // shape fields merged over the resolved spec
	Hardware      HardwareRequest `json:"hardware" yaml:"hardware"`
	Quantization  string          `json:"quantization,omitempty" yaml:"quantization,omitempty"`
	ContextLength int             `json:"context_length,omitempty" yaml:"context_length,omitempty"`
}

type CompatibilityResponse struct {
	Model    vram.ModelSpec         `json:"model"`
	Hardware vram.HardwareSpec      `json:"hardware"`
	Result   vram.CalculationResult `json:"result"`
	Warnings []string               `json:"warnings,omitempty"`
}

// @Description Compare request body
type CompareRequest struct {
	Models       []string        `json:"models" yaml:"models"`
	Hardware     HardwareRequest `json:"hardware" yaml:"hardware"`
	Quantization string          `json:"quantization,omitempty" yaml:"quantization,omitempty"`
}

type CompareRow struct {
	Model         string       `json:"model"`
	Name          string       `json:"name,omitempty"`
	Params        float64      `json:"params,omitempty"`
	ContextLength int          `json:"context_length,omitempty"`
	Verdict       vram.Verdict `json:"verdict,omitempty"`
	VRAMNeededGB  float64      `json:"vram_needed_gb,omitempty"`
	Error         string       `json:"error,omitempty"`
}

type CompareResponse struct {
	Quantization vram.Quantization `json:"quantization"`
	Hardware     vram.HardwareSpec `json:"hardware"`
	Rows         []CompareRow      `json:"rows"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
