package monitor

import (
	"context"
	"sort"
	"time"

	"intradesk/event"
	"intradesk/logger"
	"intradesk/position"
)

// ExposureMonitor 敞口监控器。
// 周期性检查总敞口，超过上限时从盈亏最差的持仓开始强制平仓，
// 单轮最多平 closeBatch 笔，降到上限以内即停止。
type ExposureMonitor struct {
	ledger      *position.Ledger
	eventBus    *event.EventBus
	maxExposure float64
	closeBatch  int
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewExposureMonitor 创建敞口监控器
func NewExposureMonitor(ledger *position.Ledger, eventBus *event.EventBus,
	maxExposure float64, intervalSeconds int) *ExposureMonitor {

	ctx, cancel := context.WithCancel(context.Background())

	interval := time.Duration(intervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second // 默认5秒
	}

	return &ExposureMonitor{
		ledger:      ledger,
		eventBus:    eventBus,
		maxExposure: maxExposure,
		closeBatch:  2,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start 启动敞口监控
func (em *ExposureMonitor) Start() {
	if em.maxExposure <= 0 {
		logger.Warn("⚠️ 未设置敞口上限，敞口监控不启动")
		return
	}
	logger.Info("📊 启动敞口监控服务 (上限: %.2f, 间隔: %v)", em.maxExposure, em.interval)

	go em.monitorLoop()
}

// Stop 停止敞口监控
func (em *ExposureMonitor) Stop() {
	if em.cancel != nil {
		em.cancel()
	}
	logger.Info("⏹️ 敞口监控服务已停止")
}

// Exposure 返回当前敞口与上限
func (em *ExposureMonitor) Exposure() (current, limit float64) {
	return em.ledger.TotalExposure(), em.maxExposure
}

// monitorLoop 监控循环
func (em *ExposureMonitor) monitorLoop() {
	// 立即执行一次
	em.checkOnce(em.ctx)

	ticker := time.NewTicker(em.interval)
	defer ticker.Stop()

	for {
		select {
		case <-em.ctx.Done():
			return
		case <-ticker.C:
			em.checkOnce(em.ctx)
		}
	}
}

// checkOnce 检查一轮敞口，必要时强制减仓
func (em *ExposureMonitor) checkOnce(ctx context.Context) {
	exposure := em.ledger.TotalExposure()
	if exposure <= em.maxExposure {
		return
	}

	logger.Warn("🚨 总敞口 %.2f 超过上限 %.2f，开始强制减仓", exposure, em.maxExposure)

	// 盈亏最差的优先
	snaps := em.ledger.Snapshot()
	candidates := snaps[:0]
	for _, pos := range snaps {
		if pos.Status == position.StatusOpen {
			candidates = append(candidates, pos)
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].PnL < candidates[j].PnL })

	closed := 0
	for _, pos := range candidates {
		if closed >= em.closeBatch {
			break
		}
		// 降到上限以内即停止，不做最优组合求解
		if em.ledger.TotalExposure() <= em.maxExposure {
			break
		}
		if err := em.ledger.Close(ctx, pos.ID, position.CloseReasonExposure); err != nil {
			logger.Warn("⚠️ 强制平仓 #%d %s 失败: %v", pos.ID, pos.Symbol, err)
			continue
		}
		logger.Info("📉 强制平仓 #%d %s (盈亏 %+.2f)", pos.ID, pos.Symbol, pos.PnL)
		closed++
	}

	if closed > 0 && em.eventBus != nil {
		em.eventBus.Publish(&event.Event{
			Type: event.EventTypeExposureReduced,
			Data: map[string]interface{}{
				"exposure":     exposure,
				"cap":          em.maxExposure,
				"closed_count": float64(closed),
			},
		})
	}
	logger.Info("✅ 强制减仓完成，平仓 %d 笔，当前敞口 %.2f", closed, em.ledger.TotalExposure())
}
