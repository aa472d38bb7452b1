package xsysinfo

import (
	"context"
	"errors"
	"strings"

	"github.com/canirun/canirun/pkg/vram"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeLookup map[string]vram.AcceleratorSpec

func (f fakeLookup) Find(_ context.Context, name string) (vram.AcceleratorSpec, error) {
	for k, v := range f {
		if strings.EqualFold(k, name) {
			return v, nil
		}
	}
	return vram.AcceleratorSpec{}, errors.New("not found")
}

var _ = Describe("Detect", func() {
	var (
		ctx    context.Context
		lookup fakeLookup
		probe  Probe
	)

	BeforeEach(func() {
		ctx = context.Background()
		lookup = fakeLookup{
			"NVIDIA GeForce RTX 4090": {Name: "NVIDIA GeForce RTX 4090", Vendor: vram.VendorNVIDIA, MemoryGB: 24, MemoryBandwidthGBs: 1008},
			"Apple M2 Max (96GB)":     {Name: "Apple M2 Max (96GB)", Vendor: vram.VendorApple, MemoryGB: 96, MemoryBandwidthGBs: 400, UnifiedMemory: true},
			"Apple M2 Max":            {Name: "Apple M2 Max (96GB)", Vendor: vram.VendorApple, MemoryGB: 96, MemoryBandwidthGBs: 400, UnifiedMemory: true},
		}
		probe = Probe{
			RAM: func() (*SystemRAMInfo, error) {
				return &SystemRAMInfo{Total: 64 << 30, Available: 32 << 30}, nil
			},
			GPUs:      func(context.Context) []GPUMemoryInfo { return nil },
			AppleChip: func(context.Context) string { return "" },
		}
	})

	It("falls back to CPU only without accelerators", func() {
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Hardware.Accelerator).To(BeNil())
		Expect(d.Hardware.SystemMemoryGB).To(Equal(64.0))
		Expect(d.InCatalog).To(BeFalse())
	})

	It("counts identical cards and keeps catalog bandwidth", func() {
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			return []GPUMemoryInfo{
				{Index: 0, Name: "NVIDIA GeForce RTX 4090", Vendor: vram.VendorNVIDIA, TotalVRAM: 24564 * mib},
				{Index: 1, Name: "NVIDIA GeForce RTX 4090", Vendor: vram.VendorNVIDIA, TotalVRAM: 24564 * mib},
			}
		}
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.InCatalog).To(BeTrue())
		Expect(d.Hardware.AcceleratorCount).To(Equal(2))
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(24.0))
		Expect(d.Hardware.Accelerator.MemoryBandwidthGBs).To(Equal(1008.0))
		Expect(d.Hardware.IsUnifiedMemory).To(BeFalse())
	})

	It("matches laptop variants by their desktop name", func() {
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			return []GPUMemoryInfo{{Name: "NVIDIA GeForce RTX 4090 Laptop GPU", Vendor: vram.VendorNVIDIA, TotalVRAM: 16376 * mib}}
		}
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.InCatalog).To(BeTrue())
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(16.0))
	})

	It("synthesizes a spec for unknown cards", func() {
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			return []GPUMemoryInfo{{Name: "Mystery Accelerator", Vendor: vram.VendorIntel, TotalVRAM: 12 << 30}}
		}
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.InCatalog).To(BeFalse())
		Expect(d.Hardware.Accelerator.Name).To(Equal("Mystery Accelerator"))
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(12.0))
		Expect(d.Hardware.Accelerator.MemoryBandwidthGBs).To(BeZero())
	})

	It("treats devices without VRAM of their own as unified memory", func() {
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			return []GPUMemoryInfo{{Name: "NVIDIA GB10", Vendor: vram.VendorNVIDIA, Unified: true}}
		}
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Hardware.IsUnifiedMemory).To(BeTrue())
		Expect(d.Hardware.UnifiedMemoryModelLabel).To(Equal("NVIDIA GB10"))
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(64.0))
		Expect(vram.AvailableAcceleratorMemoryGB(d.Hardware)).To(Equal(48.0))
	})

	It("uses system RAM on Apple Silicon", func() {
		probe.AppleChip = func(context.Context) string { return "Apple M2 Max" }
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			Fail("GPUs should not be probed on Apple Silicon")
			return nil
		}
		d, err := Detect(ctx, probe, lookup)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.InCatalog).To(BeTrue())
		Expect(d.Hardware.IsUnifiedMemory).To(BeTrue())
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(64.0))
		Expect(d.Hardware.Accelerator.MemoryBandwidthGBs).To(Equal(400.0))
	})

	It("propagates RAM probe failures", func() {
		probe.RAM = func() (*SystemRAMInfo, error) { return nil, errors.New("boom") }
		_, err := Detect(ctx, probe, lookup)
		Expect(err).To(MatchError("boom"))
	})

	It("works without a catalog", func() {
		probe.GPUs = func(context.Context) []GPUMemoryInfo {
			return []GPUMemoryInfo{{Name: "NVIDIA GeForce RTX 4090", TotalVRAM: 24564 * mib}}
		}
		d, err := Detect(ctx, probe, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(d.Hardware.Accelerator.MemoryGB).To(Equal(24.0))
	})
})
