package xsysinfo

import (
	"context"
	"math"
	"runtime"
	"strings"
)

// UnifiedMemoryDevices are name patterns of accelerators that share system RAM.
var UnifiedMemoryDevices = []string{
	"GB10",
	"DGX Spark",
	"Apple M",
	"Ryzen AI Max",
	"Strix Halo",
}

// IsUnifiedMemoryDevice checks if the given device name matches a known unified memory
// device.
func IsUnifiedMemoryDevice(name string) bool {
	upper := strings.ToUpper(name)
	for _, pattern := range UnifiedMemoryDevices {
		if strings.Contains(upper, strings.ToUpper(pattern)) {
			return true
		}
	}
	return false
}

// AppleChip returns the chip name, e.g. "Apple M2 Max", on Apple Silicon Macs.
func AppleChip(ctx context.Context) string {
	if runtime.GOOS != "darwin" || runtime.GOARCH != "arm64" {
		return ""
	}
	out, ok := run(ctx, "sysctl", "-n", "machdep.cpu.brand_string")
	if !ok {
		return ""
	}
	return parseAppleChip(out)
}

func parseAppleChip(out string) string {
	chip := strings.TrimSpace(out)
	if !strings.HasPrefix(chip, "Apple M") {
		return ""
	}
	return chip
}

// BytesToGB converts bytes to GiB rounded to one decimal, matching how memory sizes
// are advertised (a 24576 MiB card is a 24 GB card).
func BytesToGB(b uint64) float64 {
	return math.Round(float64(b)/(1<<30)*10) / 10
}
