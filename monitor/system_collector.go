package monitor

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"intradesk/metrics"
)

// SystemMetrics 系统资源快照
type SystemMetrics struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryMB      float64   `json:"memory_mb"`
	MemoryPercent float64   `json:"memory_percent"` // 进程内存占系统内存百分比
	DiskPercent   float64   `json:"disk_percent"`   // 数据目录所在磁盘使用率
	Goroutines    int       `json:"goroutines"`
	ProcessID     int       `json:"process_id"`
}

// CollectSystemMetrics 采集当前进程的资源指标，dataDir 用于磁盘用量统计
func CollectSystemMetrics(dataDir string) (*SystemMetrics, error) {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("获取进程失败: %w", err)
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		// 进程级获取失败时退回系统级
		cpuPercent, err = systemCPUPercent()
		if err != nil {
			return nil, fmt.Errorf("获取CPU占用率失败: %w", err)
		}
	}

	// RSS 实际物理内存
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return nil, fmt.Errorf("获取内存信息失败: %w", err)
	}
	memoryMB := float64(memInfo.RSS) / 1024 / 1024

	var memoryPercent float64
	if memStat, err := mem.VirtualMemory(); err == nil && memStat.Total > 0 {
		memoryPercent = float64(memInfo.RSS) / float64(memStat.Total) * 100
	}

	var diskPercent float64
	if dataDir == "" {
		dataDir = "."
	}
	if usage, err := disk.Usage(dataDir); err == nil {
		diskPercent = usage.UsedPercent
	}

	return &SystemMetrics{
		Timestamp:     time.Now(),
		CPUPercent:    cpuPercent,
		MemoryMB:      memoryMB,
		MemoryPercent: memoryPercent,
		DiskPercent:   diskPercent,
		Goroutines:    runtime.NumGoroutine(),
		ProcessID:     pid,
	}, nil
}

// systemCPUPercent 系统级CPU使用率（进程级获取失败时的备用方法）
func systemCPUPercent() (float64, error) {
	percentages, err := cpu.Percent(time.Second, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("无法获取CPU使用率")
	}
	return percentages[0], nil
}

// 上次已上报的 GC 次数，PushRuntimeMetrics 仅由看门狗协程调用
var lastReportedGC uint32

// PushRuntimeMetrics 将 Go 运行时指标写入 Prometheus
func PushRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	pm := metrics.GetPrometheusMetrics()
	pm.SetGoroutineCount(runtime.NumGoroutine())
	pm.SetMemoryAlloc(m.Alloc)

	// PauseNs 是环形缓冲，最近一次停顿在 (NumGC+255)%256
	if m.NumGC > 0 && m.NumGC != lastReportedGC {
		if pause := m.PauseNs[(m.NumGC+255)%256]; pause > 0 {
			pm.RecordGCPause(time.Duration(pause))
		}
		lastReportedGC = m.NumGC
	}
}

// RuntimeStats Go 运行时统计信息（调试接口使用）
func RuntimeStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"goroutines":      runtime.NumGoroutine(),
		"alloc_mb":        float64(m.Alloc) / 1024 / 1024,
		"total_alloc_mb":  float64(m.TotalAlloc) / 1024 / 1024,
		"sys_mb":          float64(m.Sys) / 1024 / 1024,
		"heap_alloc_mb":   float64(m.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":   float64(m.HeapInuse) / 1024 / 1024,
		"next_gc_mb":      float64(m.NextGC) / 1024 / 1024,
		"num_gc":          m.NumGC,
		"gc_cpu_fraction": m.GCCPUFraction,
	}
}
