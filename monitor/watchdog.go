package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"intradesk/config"
	"intradesk/event"
	"intradesk/logger"
	"intradesk/metrics"
)

// SystemWatchdog 系统资源看门狗。
// 周期性采集进程资源并推送运行时指标，超过阈值时
// 通过事件总线发出资源告警，同类告警受冷却时间约束。
type SystemWatchdog struct {
	cfg      *config.Config
	eventBus *event.EventBus
	checker  *ThresholdChecker

	sampleInterval time.Duration
	cooldown       time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex

	// 通知冷却
	lastNotified map[string]time.Time

	// 历史采样（变化率检查用）
	history    []*SystemMetrics
	maxHistory int

	// 上次GC后的堆分配量，翻倍时主动触发GC
	lastGCAlloc uint64

	latest *SystemMetrics
}

// NewSystemWatchdog 创建系统资源看门狗
func NewSystemWatchdog(cfg *config.Config, eventBus *event.EventBus) *SystemWatchdog {
	ctx, cancel := context.WithCancel(context.Background())

	sampleInterval := time.Duration(cfg.Metrics.CollectInterval) * time.Second
	if sampleInterval <= 0 {
		sampleInterval = 60 * time.Second
	}

	cooldown := time.Duration(cfg.Metrics.CooldownMinutes) * time.Minute
	if cooldown <= 0 {
		cooldown = 30 * time.Minute
	}

	// 历史缓存覆盖变化率窗口，多留一些余量
	windowMinutes := cfg.Metrics.RateWindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 5
	}
	maxHistory := (windowMinutes*60)/int(sampleInterval.Seconds()) + 10

	return &SystemWatchdog{
		cfg:            cfg,
		eventBus:       eventBus,
		checker:        NewThresholdChecker(cfg),
		sampleInterval: sampleInterval,
		cooldown:       cooldown,
		ctx:            ctx,
		cancel:         cancel,
		lastNotified:   make(map[string]time.Time),
		history:        make([]*SystemMetrics, 0, maxHistory),
		maxHistory:     maxHistory,
	}
}

// Start 启动看门狗
func (w *SystemWatchdog) Start() {
	if !w.cfg.Metrics.Enabled {
		logger.Info("ℹ️ 系统资源监控未启用")
		return
	}
	logger.Info("✅ 系统资源看门狗已启动 (采样间隔: %v)", w.sampleInterval)

	go w.samplingLoop()
}

// Stop 停止看门狗
func (w *SystemWatchdog) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	logger.Info("✅ 系统资源看门狗已停止")
}

// Latest 返回最近一次采样结果
func (w *SystemWatchdog) Latest() *SystemMetrics {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.latest == nil {
		return nil
	}
	snap := *w.latest
	return &snap
}

// samplingLoop 采样循环
func (w *SystemWatchdog) samplingLoop() {
	ticker := time.NewTicker(w.sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.sampleOnce()
		}
	}
}

// sampleOnce 采集一轮并检查阈值
func (w *SystemWatchdog) sampleOnce() {
	current, err := CollectSystemMetrics(w.cfg.App.DataDir)
	if err != nil {
		logger.Error("❌ 采集系统指标失败: %v", err)
		return
	}

	PushRuntimeMetrics()

	w.mu.Lock()
	w.latest = current
	w.history = append(w.history, current)
	if len(w.history) > w.maxHistory {
		w.history = w.history[len(w.history)-w.maxHistory:]
	}
	history := make([]*SystemMetrics, len(w.history))
	copy(history, w.history)
	w.mu.Unlock()

	w.checkThresholds(current, history)
	w.maybeForceGC()
}

// checkThresholds 检查固定阈值与变化率阈值
func (w *SystemWatchdog) checkThresholds(current *SystemMetrics, history []*SystemMetrics) {
	if w.checker.CheckCPU(current) && w.shouldNotify("cpu") {
		logger.Warn("🚨 CPU占用超过阈值: %.2f%% (阈值: %.2f%%)",
			current.CPUPercent, w.cfg.Metrics.CPUThreshold)
		w.publishResourceAlert(event.EventTypeSystemCPUHigh, "CPU",
			current.CPUPercent, w.cfg.Metrics.CPUThreshold)
		w.markNotified("cpu")
	}

	if w.checker.CheckMemory(current) && w.shouldNotify("memory") {
		logger.Warn("🚨 内存占用超过阈值: %.2f%% (阈值: %.2f%%)",
			current.MemoryPercent, w.cfg.Metrics.MemoryThreshold)
		w.publishResourceAlert(event.EventTypeSystemMemHigh, "内存",
			current.MemoryPercent, w.cfg.Metrics.MemoryThreshold)
		w.markNotified("memory")
	}

	// 变化率告警只记录日志，不走事件总线
	if w.checker.CheckCPURate(current, history) && w.shouldNotify("cpu_rate") {
		logger.Warn("⚠️ CPU占用在%d分钟内上涨超过%.2f%% (当前 %.2f%%)",
			w.cfg.Metrics.RateWindowMinutes, w.cfg.Metrics.CPUIncrease, current.CPUPercent)
		w.markNotified("cpu_rate")
	}
	if w.checker.CheckMemoryRate(current, history) && w.shouldNotify("memory_rate") {
		logger.Warn("⚠️ 内存占用在%d分钟内上涨超过%.2f MB (当前 %.2f MB)",
			w.cfg.Metrics.RateWindowMinutes, w.cfg.Metrics.MemoryIncreaseMB, current.MemoryMB)
		w.markNotified("memory_rate")
	}

	if current.Goroutines > 1000 {
		logger.Warn("⚠️ Goroutine 数量较多: %d", current.Goroutines)
	}
}

// maybeForceGC 堆分配量较上次GC翻倍时主动触发GC
func (w *SystemWatchdog) maybeForceGC() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.mu.RLock()
	last := w.lastGCAlloc
	w.mu.RUnlock()

	if last > 0 && m.Alloc > last*2 {
		before := m.Alloc
		start := time.Now()
		runtime.GC()
		pause := time.Since(start)
		runtime.ReadMemStats(&m)

		var freedMB float64
		if before > m.Alloc {
			freedMB = float64(before-m.Alloc) / 1024 / 1024
		}
		metrics.GetPrometheusMetrics().RecordGCPause(pause)
		logger.Debug("🧹 检测到内存持续增长，触发GC: 释放=%.2f MB, 当前分配=%.2f MB, 耗时=%v",
			freedMB, float64(m.Alloc)/1024/1024, pause)
	}

	w.mu.Lock()
	w.lastGCAlloc = m.Alloc
	w.mu.Unlock()
}

// shouldNotify 冷却期内不重复告警
func (w *SystemWatchdog) shouldNotify(key string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	last, exists := w.lastNotified[key]
	if !exists {
		return true
	}
	return time.Since(last) >= w.cooldown
}

func (w *SystemWatchdog) markNotified(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastNotified[key] = time.Now()
}

func (w *SystemWatchdog) publishResourceAlert(eventType event.EventType, resource string, usage, threshold float64) {
	if w.eventBus == nil {
		return
	}
	w.eventBus.Publish(&event.Event{
		Type: eventType,
		Data: map[string]interface{}{
			"resource_type": resource,
			"usage":         usage,
			"threshold":     threshold,
		},
	})
}
