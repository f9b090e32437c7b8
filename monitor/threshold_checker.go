package monitor

import (
	"time"

	"intradesk/config"
)

// ThresholdChecker 资源阈值检查器
type ThresholdChecker struct {
	cfg *config.Config
}

// NewThresholdChecker 创建阈值检查器
func NewThresholdChecker(cfg *config.Config) *ThresholdChecker {
	return &ThresholdChecker{cfg: cfg}
}

// CheckCPU 检查CPU使用率是否超过固定阈值
func (tc *ThresholdChecker) CheckCPU(current *SystemMetrics) bool {
	return current.CPUPercent >= tc.cfg.Metrics.CPUThreshold
}

// CheckMemory 检查进程内存占比是否超过固定阈值
func (tc *ThresholdChecker) CheckMemory(current *SystemMetrics) bool {
	return current.MemoryPercent >= tc.cfg.Metrics.MemoryThreshold
}

// CheckCPURate 检查窗口内CPU涨幅
func (tc *ThresholdChecker) CheckCPURate(current *SystemMetrics, history []*SystemMetrics) bool {
	increase := tc.cfg.Metrics.CPUIncrease
	if increase <= 0 {
		return false
	}

	oldest := oldestInWindow(history, current.Timestamp, tc.cfg.Metrics.RateWindowMinutes)
	if oldest == nil {
		return false
	}
	return current.CPUPercent-oldest.CPUPercent >= increase
}

// CheckMemoryRate 检查窗口内内存涨幅（MB）
func (tc *ThresholdChecker) CheckMemoryRate(current *SystemMetrics, history []*SystemMetrics) bool {
	increase := tc.cfg.Metrics.MemoryIncreaseMB
	if increase <= 0 {
		return false
	}

	oldest := oldestInWindow(history, current.Timestamp, tc.cfg.Metrics.RateWindowMinutes)
	if oldest == nil {
		return false
	}
	return current.MemoryMB-oldest.MemoryMB >= increase
}

// oldestInWindow 返回时间窗口内最旧的采样点
func oldestInWindow(history []*SystemMetrics, currentTime time.Time, windowMinutes int) *SystemMetrics {
	windowStart := currentTime.Add(-time.Duration(windowMinutes) * time.Minute)

	var oldest *SystemMetrics
	for _, m := range history {
		if m.Timestamp.After(windowStart) && m.Timestamp.Before(currentTime) {
			if oldest == nil || m.Timestamp.Before(oldest.Timestamp) {
				oldest = m
			}
		}
	}
	return oldest
}
