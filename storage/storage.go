package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"intradesk/config"
	"intradesk/logger"
	"intradesk/utils"
)

// Storage 存储接口
type Storage interface {
	SaveSignal(signal *SignalRecord) error
	SaveOrder(order *OrderRecord) error
	SaveTrade(trade *TradeRecord) error
	SaveAlert(alert *AlertEntry) error
	SaveEvent(eventType string, data map[string]interface{}) error
	QuerySignals(limit, offset int, strategy, symbol string) ([]*SignalRecord, error)
	QueryOrders(limit, offset int, status string) ([]*OrderRecord, error)
	QueryTrades(startTime, endTime time.Time, limit, offset int) ([]*TradeRecord, error)
	QueryAlerts(limit, offset int, kind string) ([]*AlertEntry, error)
	QueryEvents(limit, offset int, eventType string) ([]*EventRow, error)
	CleanupOldEvents(days int) (int64, error)
	Close() error
}

// storageEvent 存储事件
type storageEvent struct {
	eventType string
	data      map[string]interface{}
}

// StorageService 存储服务
type StorageService struct {
	storage      Storage
	cfg          *config.Config
	eventCh      chan *storageEvent
	buffer       []*storageEvent
	mu           sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	fallbackPath string
	stopped      bool
	stopMu       sync.Mutex
}

// NewStorageService 创建存储服务
func NewStorageService(cfg *config.Config, ctx context.Context) (*StorageService, error) {
	if !cfg.Storage.Enabled {
		return &StorageService{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)

	ss := &StorageService{
		cfg:          cfg,
		eventCh:      make(chan *storageEvent, cfg.Storage.BufferSize),
		buffer:       make([]*storageEvent, 0, cfg.Storage.BatchSize),
		ctx:          ctx,
		cancel:       cancel,
		fallbackPath: "./data/storage_fallback.log",
	}

	// 创建数据目录
	dataDir := filepath.Dir(cfg.Storage.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		cancel()
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	// 初始化存储实现
	switch cfg.Storage.Type {
	case "sqlite":
		sqliteStorage, err := NewSQLiteStorage(cfg.Storage.Path)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("初始化 SQLite 存储失败: %w", err)
		}
		ss.storage = sqliteStorage
	default:
		cancel()
		return nil, fmt.Errorf("不支持的存储类型: %s", cfg.Storage.Type)
	}

	return ss, nil
}

// GetStorage 获取底层存储接口（用于查询接口直接调用）
func (ss *StorageService) GetStorage() Storage {
	return ss.storage
}

// Start 启动存储服务
func (ss *StorageService) Start() {
	if ss.storage == nil {
		return
	}

	go ss.processEvents()
	logger.Info("✅ 存储服务已启动 (类型: %s, 路径: %s)", ss.cfg.Storage.Type, ss.cfg.Storage.Path)
}

// Stop 停止存储服务
func (ss *StorageService) Stop() {
	ss.stopMu.Lock()
	if ss.stopped {
		ss.stopMu.Unlock()
		return
	}
	ss.stopped = true
	ss.stopMu.Unlock()

	// 取消 context（通知 processEvents 协程退出）
	if ss.cancel != nil {
		ss.cancel()
	}

	// 等待 processEvents 协程处理完队列中的事件
	time.Sleep(100 * time.Millisecond)

	// 最后刷新缓冲区（确保所有事件都被处理）
	ss.flush()

	// 关闭存储（关闭数据库连接）
	if ss.storage != nil {
		ss.storage.Close()
	}
}

// Save 保存数据（完全异步，不阻塞）
func (ss *StorageService) Save(eventType string, data map[string]interface{}) {
	if ss.storage == nil {
		return
	}

	// 检查服务是否已停止
	ss.stopMu.Lock()
	stopped := ss.stopped
	ss.stopMu.Unlock()

	if stopped {
		// 服务已停止，不再接受新事件
		return
	}

	select {
	case ss.eventCh <- &storageEvent{eventType: eventType, data: data}:
		// 成功加入队列
	default:
		// Channel 满了，记录警告但不阻塞
		logger.Warn("⚠️ 存储队列已满，丢弃事件: %s", eventType)
	}
}

// processEvents 处理事件（在独立 goroutine 中运行）
func (ss *StorageService) processEvents() {
	flushInterval := time.Duration(ss.cfg.Storage.FlushInterval) * time.Second
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ss.ctx.Done():
			// 退出前刷新缓冲区
			ss.flush()
			return

		case event := <-ss.eventCh:
			// 添加到缓冲区
			ss.mu.Lock()
			ss.buffer = append(ss.buffer, event)
			bufferSize := len(ss.buffer)
			ss.mu.Unlock()

			// 达到批量大小时立即刷新
			if bufferSize >= ss.cfg.Storage.BatchSize {
				ss.flush()
			}

		case <-ticker.C:
			// 定期刷新
			ss.flush()
		}
	}
}

// flush 刷新缓冲区到数据库
func (ss *StorageService) flush() {
	ss.mu.Lock()
	if len(ss.buffer) == 0 {
		ss.mu.Unlock()
		return
	}

	events := make([]*storageEvent, len(ss.buffer))
	copy(events, ss.buffer)
	ss.buffer = ss.buffer[:0]
	ss.mu.Unlock()

	// 批量写入数据库（带保底方案）
	if err := ss.batchSave(events); err != nil {
		logger.Error("❌ 数据库写入失败: %v", err)
		// 保底方案：写入日志文件
		ss.fallbackToLog(events)
	}
}

// batchSave 批量保存
func (ss *StorageService) batchSave(events []*storageEvent) error {
	if ss.storage == nil {
		return fmt.Errorf("存储服务未初始化")
	}

	for _, event := range events {
		var err error
		switch event.eventType {
		case "signal_generated", "signal_rejected":
			err = ss.saveSignalFromMap(event.eventType, event.data)
		case "order_placed", "order_failed":
			err = ss.saveOrderFromMap(event.eventType, event.data)
		case "position_closed", "stop_loss", "take_profit":
			err = ss.saveTradeFromMap(event.data)
		case "alert_triggered", "alert_confirmed":
			err = ss.saveAlertFromMap(event.eventType, event.data)
		default:
			// 其余类型保存为原始事件
			err = ss.storage.SaveEvent(event.eventType, event.data)
		}

		if err != nil {
			// 检查是否是数据库关闭错误
			if err.Error() == "sql: database is closed" {
				return fmt.Errorf("数据库已关闭，停止保存")
			}
			return fmt.Errorf("保存 %s 失败: %w", event.eventType, err)
		}
	}

	return nil
}

// saveSignalFromMap 从 map 保存信号
func (ss *StorageService) saveSignalFromMap(eventType string, data map[string]interface{}) error {
	signal := &SignalRecord{CreatedAt: utils.NowUTC()}
	if eventType == "signal_rejected" {
		signal.Status = "rejected"
	} else {
		signal.Status = "generated"
	}

	if strategy, ok := data["strategy"].(string); ok {
		signal.Strategy = strategy
	}
	if symbol, ok := data["symbol"].(string); ok {
		signal.Symbol = symbol
	}
	if side, ok := data["side"].(string); ok {
		signal.Side = side
	}
	if price, ok := data["price"].(float64); ok {
		signal.Price = price
	}
	if quantity, ok := data["quantity"].(float64); ok {
		signal.Quantity = quantity
	}
	if stopLoss, ok := data["stop_loss"].(float64); ok {
		signal.StopLoss = stopLoss
	}
	if takeProfit, ok := data["take_profit"].(float64); ok {
		signal.TakeProfit = takeProfit
	}
	if confidence, ok := data["confidence"].(float64); ok {
		signal.Confidence = confidence
	}
	if broker, ok := data["broker"].(string); ok {
		signal.Broker = broker
	}
	if reason, ok := data["reason"].(string); ok {
		signal.Reason = reason
	}

	return ss.storage.SaveSignal(signal)
}

// saveOrderFromMap 从 map 保存订单
func (ss *StorageService) saveOrderFromMap(eventType string, data map[string]interface{}) error {
	order := &OrderRecord{CreatedAt: utils.NowUTC()}
	if eventType == "order_failed" {
		order.Status = "failed"
	} else {
		order.Status = "placed"
	}

	if orderID, ok := data["order_id"].(string); ok {
		order.OrderID = orderID
	}
	if clientOID, ok := data["client_order_id"].(string); ok {
		order.ClientOrderID = clientOID
	}
	if broker, ok := data["broker"].(string); ok {
		order.Broker = broker
	}
	if symbol, ok := data["symbol"].(string); ok {
		order.Symbol = symbol
	}
	if side, ok := data["side"].(string); ok {
		order.Side = side
	}
	if strategy, ok := data["strategy"].(string); ok {
		order.Strategy = strategy
	}
	if price, ok := data["price"].(float64); ok {
		order.Price = price
	}
	if quantity, ok := data["quantity"].(float64); ok {
		order.Quantity = quantity
	}
	if errMsg, ok := data["error"].(string); ok {
		order.Error = errMsg
	}

	return ss.storage.SaveOrder(order)
}

// saveTradeFromMap 从 map 保存平仓记录
func (ss *StorageService) saveTradeFromMap(data map[string]interface{}) error {
	trade := &TradeRecord{CreatedAt: utils.NowUTC()}

	if symbol, ok := data["symbol"].(string); ok {
		trade.Symbol = symbol
	}
	if strategy, ok := data["strategy"].(string); ok {
		trade.Strategy = strategy
	}
	if side, ok := data["side"].(string); ok {
		trade.Side = side
	}
	if entryPrice, ok := data["entry_price"].(float64); ok {
		trade.EntryPrice = entryPrice
	}
	if exitPrice, ok := data["exit_price"].(float64); ok {
		trade.ExitPrice = exitPrice
	}
	if quantity, ok := data["quantity"].(float64); ok {
		trade.Quantity = quantity
	}
	if pnl, ok := data["pnl"].(float64); ok {
		trade.PnL = pnl
	}
	if reason, ok := data["reason"].(string); ok {
		trade.Reason = reason
	}
	if broker, ok := data["broker"].(string); ok {
		trade.Broker = broker
	}

	return ss.storage.SaveTrade(trade)
}

// saveAlertFromMap 从 map 保存预警
func (ss *StorageService) saveAlertFromMap(eventType string, data map[string]interface{}) error {
	alert := &AlertEntry{CreatedAt: utils.NowUTC()}
	if eventType == "alert_confirmed" {
		alert.Status = "confirmed"
	} else {
		alert.Status = "triggered"
	}

	if symbol, ok := data["symbol"].(string); ok {
		alert.Symbol = symbol
	}
	if kind, ok := data["kind"].(string); ok {
		alert.Kind = kind
	}
	if level, ok := data["level"].(float64); ok {
		alert.Level = level
	}
	if price, ok := data["price"].(float64); ok {
		alert.Price = price
	}

	return ss.storage.SaveAlert(alert)
}

// fallbackToLog 保底方案：写入日志文件
func (ss *StorageService) fallbackToLog(events []*storageEvent) {
	// 确保目录存在
	dataDir := filepath.Dir(ss.fallbackPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Error("❌ 创建日志目录失败: %v", err)
		return
	}

	file, err := os.OpenFile(ss.fallbackPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Error("❌ 打开日志文件失败: %v", err)
		return
	}
	defer file.Close()

	for _, event := range events {
		payload := map[string]interface{}{
			"event_type": event.eventType,
			"data":       event.data,
		}
		data, err := json.Marshal(payload)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339), string(data))
		file.WriteString(line)
	}
}
