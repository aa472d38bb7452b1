package xsysinfo

import (
	"context"
	"strings"

	"github.com/canirun/canirun/pkg/vram"
	"github.com/mudler/xlog"
)

// AcceleratorLookup finds catalog data, bandwidth in particular, for a detected device.
type AcceleratorLookup interface {
	Find(ctx context.Context, name string) (vram.AcceleratorSpec, error)
}

// Probe gathers raw facts about the machine.
type Probe struct {
	GPUs      func(ctx context.Context) []GPUMemoryInfo
	RAM       func() (*SystemRAMInfo, error)
	AppleChip func(ctx context.Context) string
	CPU       func() CPUInfo
}

// LocalProbe queries the machine the process runs on.
func LocalProbe() Probe {
	return Probe{
		GPUs:      GetGPUMemoryUsage,
		RAM:       GetSystemRAMInfo,
		AppleChip: AppleChip,
		CPU:       GetCPUInfo,
	}
}

// Detection is what DetectHardware found, with the HardwareSpec built from it.
type Detection struct {
	Hardware vram.HardwareSpec `json:"hardware"`
	GPUs     []GPUMemoryInfo   `json:"gpus,omitempty"`
	CPU      CPUInfo           `json:"cpu"`
	RAM      *SystemRAMInfo    `json:"ram,omitempty"`
	// InCatalog reports whether the accelerator matched a catalog entry.
	InCatalog bool `json:"in_catalog"`
}

// DetectHardware inspects the local machine.
func DetectHardware(ctx context.Context, lookup AcceleratorLookup) (*Detection, error) {
	return Detect(ctx, LocalProbe(), lookup)
}

// Detect builds a HardwareSpec from probe. Apple Silicon and unified memory devices get
// their memory from system RAM; discrete GPUs keep the detected VRAM, counted once per
// identical card.
func Detect(ctx context.Context, probe Probe, lookup AcceleratorLookup) (*Detection, error) {
	d := &Detection{}
	if probe.CPU != nil {
		d.CPU = probe.CPU()
	}

	ram, err := probe.RAM()
	if err != nil {
		return nil, err
	}
	d.RAM = ram
	d.Hardware.SystemMemoryGB = ram.TotalGB()

	if probe.AppleChip != nil {
		if chip := probe.AppleChip(ctx); chip != "" {
			acc := d.match(ctx, lookup, chip, vram.VendorApple)
			acc.MemoryGB = d.Hardware.SystemMemoryGB
			acc.UnifiedMemory = true
			d.Hardware.Accelerator = &acc
			d.Hardware.AcceleratorCount = 1
			d.Hardware.IsUnifiedMemory = true
			d.Hardware.UnifiedMemoryModelLabel = chip
			return d, nil
		}
	}

	if probe.GPUs != nil {
		d.GPUs = probe.GPUs(ctx)
	}
	if len(d.GPUs) == 0 {
		xlog.Debug("no GPU detected, planning for CPU only")
		return d, nil
	}

	first := d.GPUs[0]
	count := 0
	for _, g := range d.GPUs {
		if g.Name == first.Name {
			count++
		}
	}

	acc := d.match(ctx, lookup, first.Name, first.Vendor)
	switch {
	case first.Unified:
		acc.MemoryGB = d.Hardware.SystemMemoryGB
		acc.UnifiedMemory = true
		d.Hardware.IsUnifiedMemory = true
		d.Hardware.UnifiedMemoryModelLabel = first.Name
		count = 1
	case first.TotalVRAM > 0:
		acc.MemoryGB = BytesToGB(first.TotalVRAM)
	}
	d.Hardware.Accelerator = &acc
	d.Hardware.AcceleratorCount = count
	return d, nil
}

func (d *Detection) match(ctx context.Context, lookup AcceleratorLookup, name string, vendor vram.Vendor) vram.AcceleratorSpec {
	if lookup != nil && name != "" {
		acc, err := lookup.Find(ctx, normalizeDeviceName(name))
		if err == nil {
			d.InCatalog = true
			return acc
		}
		xlog.Debug("detected accelerator not in catalog", "name", name, "error", err)
	}
	return vram.AcceleratorSpec{Name: name, Vendor: vendor}
}

// normalizeDeviceName strips vendor decorations so driver names line up with catalog
// names, e.g. "NVIDIA GeForce RTX 4090 Laptop GPU".
func normalizeDeviceName(name string) string {
	name = strings.TrimSpace(name)
	for _, suffix := range []string{" Laptop GPU", " GPU"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return name
}
