package xsysinfo

import (
	"github.com/mudler/memory"
	"github.com/mudler/xlog"
)

// SystemRAMInfo contains system RAM usage information
type SystemRAMInfo struct {
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Available    uint64  `json:"available"`
	UsagePercent float64 `json:"usage_percent"`
}

// TotalGB is the installed RAM in GiB, which is how RAM is sold.
func (r SystemRAMInfo) TotalGB() float64 {
	return BytesToGB(r.Total)
}

// GetSystemRAMInfo returns real-time system RAM usage
func GetSystemRAMInfo() (*SystemRAMInfo, error) {
	total := memory.TotalMemory()
	available := memory.AvailableMemory()

	info := &SystemRAMInfo{Total: total, Available: available}
	if total > available {
		info.Used = total - available
	}
	if total > 0 {
		info.UsagePercent = float64(info.Used) / float64(total) * 100
	}
	xlog.Debug("System RAM Info", "total", total, "used", info.Used, "available", available, "usage_percent", info.UsagePercent)
	return info, nil
}
