package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"intradesk/database"
	"intradesk/logger"
)

// EventCenter 事件中心
type EventCenter struct {
	db                       database.Database
	eventBus                 *EventBus
	notifier                 NotificationService
	archive                  ArchiveSink
	broadcast                func(*Event)
	config                   *EventCenterConfig
	ctx                      context.Context
	cancel                   context.CancelFunc
	wg                       sync.WaitGroup
	priceVolatilityThreshold float64
	monitoredSymbols         map[string]bool
}

// EventCenterConfig 事件中心配置
type EventCenterConfig struct {
	Enabled                  bool
	PriceVolatilityThreshold float64
	MonitoredSymbols         []string
	CleanupInterval          int
	Retention                RetentionConfig
}

// RetentionConfig 保留策略配置
type RetentionConfig struct {
	CriticalDays     int
	WarningDays      int
	InfoDays         int
	CriticalMaxCount int
	WarningMaxCount  int
	InfoMaxCount     int
}

// NotificationService 通知服务接口
type NotificationService interface {
	Send(event *Event)
}

// ArchiveSink 事件归档接口（异步写入，不允许阻塞）
type ArchiveSink interface {
	Save(eventType string, data map[string]interface{})
}

// NewEventCenter 创建事件中心
func NewEventCenter(db database.Database, eventBus *EventBus, notifier NotificationService, config *EventCenterConfig) *EventCenter {
	ctx, cancel := context.WithCancel(context.Background())

	// 构建监控标的映射
	monitoredSymbols := make(map[string]bool)
	for _, symbol := range config.MonitoredSymbols {
		monitoredSymbols[symbol] = true
	}

	ec := &EventCenter{
		db:                       db,
		eventBus:                 eventBus,
		notifier:                 notifier,
		config:                   config,
		ctx:                      ctx,
		cancel:                   cancel,
		priceVolatilityThreshold: config.PriceVolatilityThreshold,
		monitoredSymbols:         monitoredSymbols,
	}

	return ec
}

// SetArchive 设置事件归档（可选）
func (ec *EventCenter) SetArchive(sink ArchiveSink) {
	ec.archive = sink
}

// SetBroadcast 设置事件广播回调（可选，用于 WebSocket 推送）
func (ec *EventCenter) SetBroadcast(fn func(*Event)) {
	ec.broadcast = fn
}

// Start 启动事件中心。
// 事件总线只有事件中心一个消费者，即使未启用也要把队列排空，
// 否则总线缓冲填满后所有发布方都会持续丢弃告警。
func (ec *EventCenter) Start() error {
	ec.wg.Add(1)
	go ec.processEvents()

	if !ec.config.Enabled {
		logger.Info("⏸️ 事件中心未启用（仅转发归档与推送）")
		return nil
	}

	// 启动清理任务（仅在报表库可用时）
	if ec.db != nil {
		ec.wg.Add(1)
		go ec.cleanupTask()
	}

	logger.Info("✅ 事件中心已启动")
	return nil
}

// Stop 停止事件中心
func (ec *EventCenter) Stop() {
	logger.Info("🛑 停止事件中心...")
	ec.cancel()
	ec.wg.Wait()
	logger.Info("✅ 事件中心已停止")
}

// processEvents 处理事件
func (ec *EventCenter) processEvents() {
	defer ec.wg.Done()

	eventCh := ec.eventBus.Subscribe()

	for {
		select {
		case <-ec.ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			ec.handleEvent(event)
		}
	}
}

// handleEvent 处理单个事件
func (ec *EventCenter) handleEvent(event *Event) {
	if event == nil {
		return
	}

	// 写入原始事件归档
	if ec.archive != nil {
		ec.archive.Save(string(event.Type), event.Data)
	}

	// 推送给 WebSocket 客户端
	if ec.broadcast != nil {
		ec.broadcast(event)
	}

	// 未启用时只做归档和推送，不落库也不通知
	if !ec.config.Enabled {
		return
	}

	// 获取事件元数据
	severity := GetEventSeverity(event.Type)
	source := GetEventSource(event.Type)
	title := GetEventTitle(event.Type)

	// 提取券商和标的信息
	broker := ec.extractString(event.Data, "broker")
	symbol := ec.extractString(event.Data, "symbol")

	// 构建消息
	message := ec.buildMessage(event)

	// 序列化详细信息
	detailsJSON, err := json.Marshal(event.Data)
	if err != nil {
		logger.Warn("⚠️ 序列化事件详情失败: %v", err)
		detailsJSON = []byte("{}")
	}

	// 报表库不可用时跳过落库，通知照常
	if ec.db != nil {
		record := &database.EventRecord{
			Type:      string(event.Type),
			Severity:  string(severity),
			Source:    string(source),
			Broker:    broker,
			Symbol:    symbol,
			Title:     title,
			Message:   message,
			Details:   string(detailsJSON),
			CreatedAt: event.Timestamp,
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := ec.db.SaveEvent(ctx, record); err != nil {
			logger.Error("❌ 保存事件失败: %v", err)
		}
	}

	// 触发通知（如果需要）
	if ec.shouldNotify(event.Type, severity) {
		ec.notifier.Send(event)
	}
}

// extractString 从事件数据中提取字符串字段
func (ec *EventCenter) extractString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// extractFloat 从事件数据中提取浮点字段
func (ec *EventCenter) extractFloat(data map[string]interface{}, key string) float64 {
	if val, ok := data[key]; ok {
		if f, ok := val.(float64); ok {
			return f
		}
	}
	return 0
}

// buildMessage 构建事件消息
func (ec *EventCenter) buildMessage(event *Event) string {
	switch event.Type {
	case EventTypeSignalGenerated, EventTypeSignalRejected:
		return ec.buildSignalMessage(event)
	case EventTypeOrderPlaced, EventTypeOrderFailed:
		return ec.buildOrderMessage(event)
	case EventTypePositionOpened, EventTypePositionClosed, EventTypeStopLoss, EventTypeTakeProfit:
		return ec.buildPositionMessage(event)
	case EventTypeExposureReduced:
		return ec.buildExposureMessage(event)
	case EventTypeAlertTriggered, EventTypeAlertConfirmed, EventTypeAlertCancelled:
		return ec.buildAlertMessage(event)
	case EventTypePriceVolatility:
		return ec.buildPriceVolatilityMessage(event)
	case EventTypeDataUnavailable:
		return ec.buildDataMessage(event)
	case EventTypeSystemCPUHigh, EventTypeSystemMemHigh:
		return ec.buildSystemResourceMessage(event)
	default:
		if msg, ok := event.Data["message"].(string); ok {
			return msg
		}
		if err, ok := event.Data["error"].(string); ok {
			return err
		}
		return fmt.Sprintf("事件类型: %s", event.Type)
	}
}

// buildSignalMessage 构建信号消息
func (ec *EventCenter) buildSignalMessage(event *Event) string {
	symbol := ec.extractString(event.Data, "symbol")
	side := ec.extractString(event.Data, "side")
	strategy := ec.extractString(event.Data, "strategy")
	price := ec.extractFloat(event.Data, "price")

	if reason := ec.extractString(event.Data, "reason"); reason != "" {
		return fmt.Sprintf("[%s] %s %s @ %.2f 被拒绝: %s", strategy, symbol, side, price, reason)
	}
	return fmt.Sprintf("[%s] %s %s @ %.2f", strategy, symbol, side, price)
}

// buildOrderMessage 构建订单消息
func (ec *EventCenter) buildOrderMessage(event *Event) string {
	broker := ec.extractString(event.Data, "broker")
	symbol := ec.extractString(event.Data, "symbol")
	side := ec.extractString(event.Data, "side")
	price := ec.extractFloat(event.Data, "price")
	quantity := ec.extractFloat(event.Data, "quantity")

	if errMsg := ec.extractString(event.Data, "error"); errMsg != "" {
		return fmt.Sprintf("%s %s %s %.0f @ %.2f 失败: %s", broker, symbol, side, quantity, price, errMsg)
	}
	return fmt.Sprintf("%s %s %s %.0f @ %.2f", broker, symbol, side, quantity, price)
}

// buildPositionMessage 构建持仓消息
func (ec *EventCenter) buildPositionMessage(event *Event) string {
	symbol := ec.extractString(event.Data, "symbol")
	side := ec.extractString(event.Data, "side")
	quantity := ec.extractFloat(event.Data, "quantity")
	entry := ec.extractFloat(event.Data, "entry_price")

	if pnl, ok := event.Data["pnl"].(float64); ok {
		return fmt.Sprintf("%s %s %.0f 入场 %.2f 盈亏 %+.2f", symbol, side, quantity, entry, pnl)
	}
	return fmt.Sprintf("%s %s %.0f 入场 %.2f", symbol, side, quantity, entry)
}

// buildExposureMessage 构建敞口消息
func (ec *EventCenter) buildExposureMessage(event *Event) string {
	exposure := ec.extractFloat(event.Data, "exposure")
	cap := ec.extractFloat(event.Data, "cap")
	closed := ec.extractFloat(event.Data, "closed_count")

	return fmt.Sprintf("总敞口 %.2f 超过上限 %.2f，强制平仓 %.0f 个持仓", exposure, cap, closed)
}

// buildAlertMessage 构建预警消息
func (ec *EventCenter) buildAlertMessage(event *Event) string {
	symbol := ec.extractString(event.Data, "symbol")
	kind := ec.extractString(event.Data, "kind")
	level := ec.extractFloat(event.Data, "level")
	price := ec.extractFloat(event.Data, "price")

	if level > 0 {
		return fmt.Sprintf("%s %s 预警: 价格 %.2f 关口 %.2f", symbol, kind, price, level)
	}
	return fmt.Sprintf("%s %s 预警", symbol, kind)
}

// buildPriceVolatilityMessage 构建价格波动消息
func (ec *EventCenter) buildPriceVolatilityMessage(event *Event) string {
	symbol := ec.extractString(event.Data, "symbol")
	oldPrice := ec.extractFloat(event.Data, "old_price")
	newPrice := ec.extractFloat(event.Data, "new_price")
	changePercent := ec.extractFloat(event.Data, "change_percent")

	return fmt.Sprintf("%s 价格波动: %.2f → %.2f (%.2f%%)",
		symbol, oldPrice, newPrice, changePercent)
}

// buildDataMessage 构建行情缺失消息
func (ec *EventCenter) buildDataMessage(event *Event) string {
	symbol := ec.extractString(event.Data, "symbol")
	source := ec.extractString(event.Data, "source")

	if source != "" {
		return fmt.Sprintf("%s 行情不可用 (来源: %s)，本轮跳过", symbol, source)
	}
	return fmt.Sprintf("%s 行情不可用，本轮跳过", symbol)
}

// buildSystemResourceMessage 构建系统资源消息
func (ec *EventCenter) buildSystemResourceMessage(event *Event) string {
	resourceType := ec.extractString(event.Data, "resource_type")
	usage := ec.extractFloat(event.Data, "usage")
	threshold := ec.extractFloat(event.Data, "threshold")

	return fmt.Sprintf("%s 使用率 %.2f%% (阈值: %.2f%%)",
		resourceType, usage, threshold)
}

// shouldNotify 判断是否需要发送通知。
// 配置里有明确开关的事件类型直接放行，由通知服务按规则过滤；
// 其余事件按级别兜底。
func (ec *EventCenter) shouldNotify(eventType EventType, severity EventSeverity) bool {
	switch eventType {
	case EventTypeSignalRejected, EventTypeOrderPlaced, EventTypeOrderFailed,
		EventTypeStopLoss, EventTypeTakeProfit, EventTypeExposureReduced,
		EventTypeDailyLossLimit, EventTypeAlertTriggered, EventTypeAlertConfirmed,
		EventTypeError, EventTypeSystemStart, EventTypeSystemStop:
		return true
	}

	// Critical 级别的事件总是通知
	if severity == SeverityCritical {
		return true
	}

	// Warning 级别的某些重要事件需要通知
	if severity == SeverityWarning {
		switch eventType {
		case EventTypePriceVolatility, EventTypeSystemCPUHigh, EventTypeSystemMemHigh:
			return true
		}
	}

	// Info 级别的事件通常不通知
	return false
}

// cleanupTask 清理任务
func (ec *EventCenter) cleanupTask() {
	defer ec.wg.Done()

	// 首次等待1小时后再开始清理
	timer := time.NewTimer(1 * time.Hour)
	defer timer.Stop()

	for {
		select {
		case <-ec.ctx.Done():
			return
		case <-timer.C:
			ec.performCleanup()
			// 重置定时器
			timer.Reset(time.Duration(ec.config.CleanupInterval) * time.Hour)
		}
	}
}

// performCleanup 执行清理
func (ec *EventCenter) performCleanup() {
	logger.Info("🧹 开始清理旧事件...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// 清理 Critical 事件
	if err := ec.db.CleanupOldEvents(ctx, "critical",
		ec.config.Retention.CriticalMaxCount,
		ec.config.Retention.CriticalDays); err != nil {
		logger.Error("❌ 清理 Critical 事件失败: %v", err)
	}

	// 清理 Warning 事件
	if err := ec.db.CleanupOldEvents(ctx, "warning",
		ec.config.Retention.WarningMaxCount,
		ec.config.Retention.WarningDays); err != nil {
		logger.Error("❌ 清理 Warning 事件失败: %v", err)
	}

	// 清理 Info 事件
	if err := ec.db.CleanupOldEvents(ctx, "info",
		ec.config.Retention.InfoMaxCount,
		ec.config.Retention.InfoDays); err != nil {
		logger.Error("❌ 清理 Info 事件失败: %v", err)
	}

	logger.Info("✅ 事件清理完成")
}

// PublishEvent 发布事件（便捷方法）
func (ec *EventCenter) PublishEvent(eventType EventType, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
	ec.eventBus.Publish(event)
}

// CheckPriceVolatility 检查价格波动
func (ec *EventCenter) CheckPriceVolatility(symbol string, oldPrice, newPrice float64) {
	// 检查是否监控此标的
	if len(ec.monitoredSymbols) > 0 && !ec.monitoredSymbols[symbol] {
		return
	}

	if oldPrice <= 0 || newPrice <= 0 {
		return
	}

	// 计算变化百分比
	changePercent := ((newPrice - oldPrice) / oldPrice) * 100
	absChangePercent := changePercent
	if absChangePercent < 0 {
		absChangePercent = -absChangePercent
	}

	// 检查是否超过阈值
	if absChangePercent >= ec.priceVolatilityThreshold {
		ec.PublishEvent(EventTypePriceVolatility, map[string]interface{}{
			"symbol":         symbol,
			"old_price":      oldPrice,
			"new_price":      newPrice,
			"change_percent": changePercent,
			"threshold":      ec.priceVolatilityThreshold,
		})
	}
}
