package xsysinfo

import (
	"sort"

	"github.com/klauspost/cpuid/v2"
)

// CPUInfo summarizes the host processor for the detect report.
type CPUInfo struct {
	Brand         string   `json:"brand"`
	Vendor        string   `json:"vendor"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	Features      []string `json:"features,omitempty"`
}

// inferenceFeatures are the instruction sets llama.cpp-style CPU backends use.
var inferenceFeatures = map[cpuid.FeatureID]string{
	cpuid.AVX:        "AVX",
	cpuid.AVX2:       "AVX2",
	cpuid.FMA3:       "FMA",
	cpuid.F16C:       "F16C",
	cpuid.AVX512F:    "AVX512F",
	cpuid.AVX512BF16: "AVX512_BF16",
	cpuid.AVX512VNNI: "AVX512_VNNI",
	cpuid.AMXBF16:    "AMX_BF16",
	cpuid.ASIMD:      "NEON",
	cpuid.ASIMDDP:    "DOTPROD",
	cpuid.SVE:        "SVE",
}

func GetCPUInfo() CPUInfo {
	info := CPUInfo{
		Brand:         cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: CPUPhysicalCores(),
		LogicalCores:  cpuid.CPU.LogicalCores,
	}
	for id, name := range inferenceFeatures {
		if cpuid.CPU.Supports(id) {
			info.Features = append(info.Features, name)
		}
	}
	sort.Strings(info.Features)
	return info
}

func CPUPhysicalCores() int {
	if cpuid.CPU.PhysicalCores == 0 {
		return 1
	}
	return cpuid.CPU.PhysicalCores
}
