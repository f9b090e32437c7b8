package monitor

import (
	"testing"
	"time"

	"intradesk/config"
)

func watchdogConfig() *config.Config {
	cfg := config.CreateMinimalConfig()
	cfg.Metrics.CPUThreshold = 80
	cfg.Metrics.MemoryThreshold = 75
	cfg.Metrics.RateWindowMinutes = 5
	cfg.Metrics.CPUIncrease = 30
	cfg.Metrics.MemoryIncreaseMB = 200
	cfg.Metrics.CooldownMinutes = 30
	return cfg
}

func TestFixedThresholds(t *testing.T) {
	tc := NewThresholdChecker(watchdogConfig())

	if !tc.CheckCPU(&SystemMetrics{CPUPercent: 85}) {
		t.Error("CPU 85%% 超过阈值 80%% 应触发")
	}
	if tc.CheckCPU(&SystemMetrics{CPUPercent: 79.9}) {
		t.Error("CPU 79.9%% 未达阈值不应触发")
	}
	if !tc.CheckCPU(&SystemMetrics{CPUPercent: 80}) {
		t.Error("CPU 恰好达到阈值应触发")
	}

	if !tc.CheckMemory(&SystemMetrics{MemoryPercent: 76}) {
		t.Error("内存 76%% 超过阈值 75%% 应触发")
	}
	if tc.CheckMemory(&SystemMetrics{MemoryPercent: 60}) {
		t.Error("内存 60%% 未达阈值不应触发")
	}
}

func TestRateThresholds(t *testing.T) {
	tc := NewThresholdChecker(watchdogConfig())
	now := time.Now()

	history := []*SystemMetrics{
		{Timestamp: now.Add(-10 * time.Minute), CPUPercent: 5, MemoryMB: 100}, // 窗口外
		{Timestamp: now.Add(-4 * time.Minute), CPUPercent: 10, MemoryMB: 300},
		{Timestamp: now.Add(-2 * time.Minute), CPUPercent: 35, MemoryMB: 450},
	}
	current := &SystemMetrics{Timestamp: now, CPUPercent: 45, MemoryMB: 520}

	// 窗口内最旧点为 4 分钟前：CPU 45-10=35 >= 30
	if !tc.CheckCPURate(current, history) {
		t.Error("窗口内 CPU 涨幅 35 超过 30 应触发")
	}
	// 内存 520-300=220 >= 200
	if !tc.CheckMemoryRate(current, history) {
		t.Error("窗口内内存涨幅 220MB 超过 200MB 应触发")
	}

	if tc.CheckCPURate(current, nil) {
		t.Error("无历史采样不应触发变化率告警")
	}

	disabled := watchdogConfig()
	disabled.Metrics.CPUIncrease = 0
	if NewThresholdChecker(disabled).CheckCPURate(current, history) {
		t.Error("涨幅阈值为 0 时不应检查")
	}
}

func TestNotificationCooldown(t *testing.T) {
	w := NewSystemWatchdog(watchdogConfig(), nil)

	if !w.shouldNotify("cpu") {
		t.Error("首次告警应放行")
	}
	w.markNotified("cpu")
	if w.shouldNotify("cpu") {
		t.Error("冷却期内不应重复告警")
	}
	if !w.shouldNotify("memory") {
		t.Error("不同资源的冷却互不影响")
	}

	w.mu.Lock()
	w.lastNotified["cpu"] = time.Now().Add(-31 * time.Minute)
	w.mu.Unlock()
	if !w.shouldNotify("cpu") {
		t.Error("冷却到期后应再次放行")
	}
}
