package crawlers

import (
	"runtime"
	"sync"

	"github.com/RecoveryAshes/newscrawl/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultMemoryWarnPercent 默认内存告警阈值(%)
const DefaultMemoryWarnPercent = 90

// ResourceMonitor 系统资源监控器
// 每个块结束时采样一次,记录峰值内存占用,在内存紧张时告警
// 块内的并发度由配置决定,监控器不做自动降级
type ResourceMonitor struct {
	mu sync.Mutex

	// 系统总内存(字节)
	totalMemory uint64

	peakUsedPercent float64
	samples         int

	// warnPercent 内存占用告警阈值(%)
	warnPercent float64

	virtualMemory func() (*mem.VirtualMemoryStat, error)
	cpuPercent    func() float64
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64  // 系统总内存(字节)
	AllocatedMemory uint64  // 当前程序已分配内存(字节)
	AvailableMemory uint64  // 可用内存(字节)
	UsedPercent     float64 // 系统内存占用(%)
	CPUPercent      float64 // 系统CPU占用(%)
	MemoryPressure  string  // 内存压力等级
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(warnPercent float64) *ResourceMonitor {
	if warnPercent <= 0 || warnPercent > 100 {
		warnPercent = DefaultMemoryWarnPercent
	}
	return &ResourceMonitor{
		warnPercent:   warnPercent,
		virtualMemory: mem.VirtualMemory,
		cpuPercent:    sampleCPU,
	}
}

// sampleCPU 自上次调用以来的CPU平均占用,不阻塞
func sampleCPU() float64 {
	percentages, err := cpu.Percent(0, false)
	if err != nil || len(percentages) == 0 {
		return 0
	}
	return percentages[0]
}

// Sample 采样一次内存与CPU
func (rm *ResourceMonitor) Sample() MemoryStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := MemoryStatus{
		AllocatedMemory: memStats.Alloc,
		CPUPercent:      rm.cpuPercent(),
		MemoryPressure:  "unknown",
	}

	vm, err := rm.virtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
		return status
	}

	status.TotalMemory = vm.Total
	status.AvailableMemory = vm.Available
	status.UsedPercent = vm.UsedPercent
	status.MemoryPressure = pressureLevel(vm.UsedPercent, rm.warnPercent)

	rm.mu.Lock()
	rm.totalMemory = vm.Total
	rm.samples++
	if vm.UsedPercent > rm.peakUsedPercent {
		rm.peakUsedPercent = vm.UsedPercent
	}
	rm.mu.Unlock()

	if status.MemoryPressure != "normal" {
		log.Warn().
			Float64("used_percent", vm.UsedPercent).
			Uint64("available_mb", vm.Available/(1024*1024)).
			Str("pressure", status.MemoryPressure).
			Msg("⚠️  系统内存紧张")
	}

	return status
}

// Snapshot 汇总采样结果,用于运行报告
func (rm *ResourceMonitor) Snapshot() *models.HostSnapshot {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.samples == 0 {
		return nil
	}
	return &models.HostSnapshot{
		TotalMemory:     rm.totalMemory,
		PeakUsedPercent: rm.peakUsedPercent,
		Samples:         rm.samples,
	}
}

func pressureLevel(usedPercent, warnPercent float64) string {
	switch {
	case usedPercent >= 98:
		return "emergency"
	case usedPercent >= (warnPercent+100)/2:
		return "critical"
	case usedPercent >= warnPercent:
		return "warning"
	default:
		return "normal"
	}
}
