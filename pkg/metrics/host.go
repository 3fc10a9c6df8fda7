package metrics

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// HostInfo describes the machine a benchmark ran on. Timings are only
// comparable between runs on similar hosts.
type HostInfo struct {
	Hostname        string  `json:"hostname"`
	Platform        string  `json:"platform"`
	KernelVersion   string  `json:"kernel_version"`
	CPUModel        string  `json:"cpu_model"`
	LogicalCPUs     int     `json:"logical_cpus"`
	TotalMemory     uint64  `json:"total_memory_bytes"`
	AvailableMemory uint64  `json:"available_memory_bytes"`
	MemoryPercent   float64 `json:"memory_used_percent"`
	GoVersion       string  `json:"go_version"`
}

// CollectHostInfo gathers host details. Fields that cannot be read are left
// empty; the call never fails.
func CollectHostInfo() HostInfo {
	info := HostInfo{GoVersion: runtime.Version(), LogicalCPUs: runtime.NumCPU()}

	if h, err := host.Info(); err == nil {
		info.Hostname = h.Hostname
		info.Platform = h.Platform + " " + h.PlatformVersion
		info.KernelVersion = h.KernelVersion
	}
	if cpus, err := cpu.Info(); err == nil && len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		info.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
		info.AvailableMemory = vm.Available
		info.MemoryPercent = vm.UsedPercent
	}
	return info
}

// Fields returns the host info as zap fields
func (h HostInfo) Fields() []zap.Field {
	return []zap.Field{
		zap.String("hostname", h.Hostname),
		zap.String("platform", h.Platform),
		zap.String("cpu_model", h.CPUModel),
		zap.Int("logical_cpus", h.LogicalCPUs),
		zap.Uint64("total_memory_bytes", h.TotalMemory),
		zap.Uint64("available_memory_bytes", h.AvailableMemory),
		zap.String("go_version", h.GoVersion),
	}
}

// ResourceUsage contains the resource usage of the current process
type ResourceUsage struct {
	CPUSeconds     float64 `json:"cpu_seconds"`
	MemoryRSS      uint64  `json:"memory_rss_bytes"`
	GoroutineCount int     `json:"goroutines"`
}

// ProcessUsage samples the resource usage of the current process.
func ProcessUsage() (ResourceUsage, error) {
	usage := ResourceUsage{GoroutineCount: runtime.NumGoroutine()}

	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // G115: pids fit in int32
	if err != nil {
		return usage, err
	}
	if times, err := proc.Times(); err == nil {
		usage.CPUSeconds = times.User + times.System
	}
	if memInfo, err := proc.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
	}
	return usage, nil
}
