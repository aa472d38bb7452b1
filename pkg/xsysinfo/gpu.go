package xsysinfo

import (
	"bytes"
	"context"
	"os/exec"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/canirun/canirun/pkg/vram"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/gpu"
	"github.com/mudler/xlog"
)

const mib = 1024 * 1024

// GPUMemoryInfo is the memory of one detected GPU.
type GPUMemoryInfo struct {
	Index        int         `json:"index"`
	Name         string      `json:"name"`
	Vendor       vram.Vendor `json:"vendor"`
	TotalVRAM    uint64      `json:"total_vram"`
	UsedVRAM     uint64      `json:"used_vram"`
	FreeVRAM     uint64      `json:"free_vram"`
	UsagePercent float64     `json:"usage_percent"`
	// Unified is set for devices that report no VRAM of their own and share system RAM.
	Unified bool `json:"unified,omitempty"`
}

var (
	gpuCache     []*gpu.GraphicsCard
	gpuCacheOnce sync.Once
	gpuCacheErr  error
)

// GPUs enumerates graphics cards through PCI, once per process.
func GPUs() ([]*gpu.GraphicsCard, error) {
	gpuCacheOnce.Do(func() {
		info, err := ghw.GPU()
		if err != nil {
			gpuCacheErr = err
			return
		}
		gpuCache = info.GraphicsCards
	})
	return gpuCache, gpuCacheErr
}

// GetGPUMemoryUsage asks nvidia-smi, then rocm-smi, and falls back to PCI enumeration,
// which knows names but not always memory.
func GetGPUMemoryUsage(ctx context.Context) []GPUMemoryInfo {
	var gpus []GPUMemoryInfo

	if out, ok := run(ctx, "nvidia-smi",
		"--query-gpu=index,name,memory.total,memory.used,memory.free",
		"--format=csv,noheader,nounits"); ok {
		gpus = append(gpus, parseNvidiaSMI(out)...)
	}

	if out, ok := run(ctx, "rocm-smi", "--showproductname", "--showmeminfo", "vram", "--csv"); ok {
		amd := parseROCmSMI(out)
		for i := range amd {
			amd[i].Index = len(gpus) + i
		}
		gpus = append(gpus, amd...)
	}

	if len(gpus) == 0 {
		gpus = ghwGPUs()
	}
	return gpus
}

func run(ctx context.Context, name string, args ...string) (string, bool) {
	if _, err := exec.LookPath(name); err != nil {
		return "", false
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		xlog.Debug("GPU query failed", "command", name, "error", err, "stderr", stderr.String())
		return "", false
	}
	return stdout.String(), true
}

// parseNvidiaSMI reads "index, name, total, used, free" lines in MiB. Unified memory
// devices such as the GB10 print [N/A] for memory.
func parseNvidiaSMI(out string) []GPUMemoryInfo {
	var gpus []GPUMemoryInfo
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		parts := strings.Split(line, ",")
		if len(parts) < 5 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		idx, _ := strconv.Atoi(parts[0])
		info := GPUMemoryInfo{Index: idx, Name: parts[1], Vendor: vram.VendorNVIDIA}

		if strings.Contains(parts[2], "N/A") {
			info.Unified = IsUnifiedMemoryDevice(info.Name)
			if !info.Unified {
				xlog.Debug("nvidia-smi returned N/A for unknown device", "device", info.Name)
			}
			gpus = append(gpus, info)
			continue
		}

		total, _ := strconv.ParseFloat(parts[2], 64)
		used, _ := strconv.ParseFloat(parts[3], 64)
		free, _ := strconv.ParseFloat(parts[4], 64)
		info.TotalVRAM = uint64(total * mib)
		info.UsedVRAM = uint64(used * mib)
		info.FreeVRAM = uint64(free * mib)
		if info.TotalVRAM > 0 {
			info.UsagePercent = float64(info.UsedVRAM) / float64(info.TotalVRAM) * 100
		}
		gpus = append(gpus, info)
	}
	return gpus
}

// parseROCmSMI reads the CSV printed by rocm-smi. Columns are matched by header name
// because they move between ROCm releases.
func parseROCmSMI(out string) []GPUMemoryInfo {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return nil
	}

	nameCol, totalCol, usedCol := -1, -1, -1
	for i, h := range strings.Split(lines[0], ",") {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case nameCol < 0 && (strings.Contains(h, "card series") || strings.Contains(h, "card model")):
			nameCol = i
		case strings.Contains(h, "total memory"):
			totalCol = i
		case strings.Contains(h, "total used memory"):
			usedCol = i
		}
	}
	if totalCol < 0 {
		return nil
	}

	var gpus []GPUMemoryInfo
	for i, line := range lines[1:] {
		parts := strings.Split(line, ",")
		if len(parts) <= totalCol {
			continue
		}
		info := GPUMemoryInfo{Index: i, Name: "AMD GPU", Vendor: vram.VendorAMD}
		if nameCol >= 0 && nameCol < len(parts) {
			if name := strings.TrimSpace(parts[nameCol]); name != "" {
				info.Name = name
			}
		}
		info.TotalVRAM, _ = strconv.ParseUint(strings.TrimSpace(parts[totalCol]), 10, 64)
		if usedCol >= 0 && usedCol < len(parts) {
			info.UsedVRAM, _ = strconv.ParseUint(strings.TrimSpace(parts[usedCol]), 10, 64)
		}
		if info.TotalVRAM > info.UsedVRAM {
			info.FreeVRAM = info.TotalVRAM - info.UsedVRAM
		}
		if info.TotalVRAM > 0 {
			info.UsagePercent = float64(info.UsedVRAM) / float64(info.TotalVRAM) * 100
		}
		gpus = append(gpus, info)
	}
	return gpus
}

func ghwGPUs() []GPUMemoryInfo {
	cards, err := GPUs()
	if err != nil {
		xlog.Debug("PCI GPU enumeration failed", "error", err)
		return nil
	}

	var gpus []GPUMemoryInfo
	for i, card := range cards {
		if card == nil || card.DeviceInfo == nil {
			continue
		}
		info := GPUMemoryInfo{Index: i}
		if card.DeviceInfo.Product != nil {
			info.Name = card.DeviceInfo.Product.Name
		}
		if card.DeviceInfo.Vendor != nil {
			info.Vendor = vendorFromName(card.DeviceInfo.Vendor.Name)
		}
		if card.Node != nil && card.Node.Memory != nil && card.Node.Memory.TotalUsableBytes > 0 {
			info.TotalVRAM = uint64(card.Node.Memory.TotalUsableBytes)
			info.FreeVRAM = info.TotalVRAM
		}
		info.Unified = IsUnifiedMemoryDevice(info.Name)
		gpus = append(gpus, info)
	}
	return gpus
}

func vendorFromName(name string) vram.Vendor {
	n := strings.ToUpper(name)
	words := strings.FieldsFunc(n, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch {
	case strings.Contains(n, "NVIDIA"):
		return vram.VendorNVIDIA
	case strings.Contains(n, "INTEL"):
		return vram.VendorIntel
	case strings.Contains(n, "APPLE"):
		return vram.VendorApple
	case strings.Contains(n, "ADVANCED MICRO DEVICES") || strings.Contains(n, "RADEON"),
		slices.Contains(words, "AMD"), slices.Contains(words, "ATI"):
		return vram.VendorAMD
	}
	return vram.Vendor(strings.ToLower(name))
}
