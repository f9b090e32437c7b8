// Package position 实现持仓台账。
// 台账是持仓集合的唯一写入者：开仓、行情刷新、触发平仓
// 都经由台账方法完成，外部只能拿到快照副本。
package position

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"intradesk/broker"
	"intradesk/database"
	"intradesk/event"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/metrics"
	"intradesk/risk"
	"intradesk/strategy"
)

// Status 持仓状态
type Status string

const (
	StatusOpen    Status = "OPEN"    // 持有中
	StatusClosing Status = "CLOSING" // 平仓单已发出，等待提交结果
)

// CloseReason 平仓原因
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "stop_loss"
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonManual     CloseReason = "manual"
	CloseReasonExposure   CloseReason = "exposure"
	CloseReasonShutdown   CloseReason = "shutdown"
)

// Position 持仓
type Position struct {
	ID            int64         `json:"id"`
	Symbol        string        `json:"symbol"`
	Side          strategy.Side `json:"side"`
	Quantity      int           `json:"quantity"`
	EntryPrice    float64       `json:"entry_price"`
	MarkPrice     float64       `json:"mark_price"`
	PnL           float64       `json:"pnl"`
	StopLoss      float64       `json:"stop_loss"`
	TakeProfit    float64       `json:"take_profit"`
	Broker        string        `json:"broker"`
	Strategy      string        `json:"strategy"`
	OrderID       string        `json:"order_id"`
	ClientOrderID string        `json:"client_order_id"`
	Status        Status        `json:"status"`
	OpenedAt      time.Time     `json:"opened_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Ledger 持仓台账
type Ledger struct {
	source   marketdata.Source
	router   *broker.Router
	tracker  *risk.DailyTracker
	db       database.Database
	eventBus *event.EventBus
	interval time.Duration

	mu        sync.RWMutex
	positions map[int64]*Position
	nextID    int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLedger 创建持仓台账，db 与 eventBus 允许为 nil
func NewLedger(source marketdata.Source, router *broker.Router, tracker *risk.DailyTracker,
	db database.Database, eventBus *event.EventBus, interval time.Duration) *Ledger {

	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Ledger{
		source:    source,
		router:    router,
		tracker:   tracker,
		db:        db,
		eventBus:  eventBus,
		interval:  interval,
		positions: make(map[int64]*Position),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start 启动行情刷新循环
func (l *Ledger) Start() {
	l.wg.Add(1)
	go l.refreshLoop()
	logger.Info("📒 持仓台账已启动 (刷新间隔 %v)", l.interval)
}

// Stop 停止刷新循环
func (l *Ledger) Stop() {
	l.cancel()
	l.wg.Wait()
	logger.Info("✅ 持仓台账已停止")
}

// Open 根据已提交的订单建仓，入场价取信号参考价
func (l *Ledger) Open(signal *strategy.TradingSignal, orderID, clientOrderID string) Position {
	now := time.Now()

	l.mu.Lock()
	l.nextID++
	pos := &Position{
		ID:            l.nextID,
		Symbol:        signal.Symbol,
		Side:          signal.Side,
		Quantity:      signal.Quantity,
		EntryPrice:    signal.Price,
		MarkPrice:     signal.Price,
		StopLoss:      signal.StopLoss,
		TakeProfit:    signal.TakeProfit,
		Broker:        signal.Broker,
		Strategy:      signal.Strategy,
		OrderID:       orderID,
		ClientOrderID: clientOrderID,
		Status:        StatusOpen,
		OpenedAt:      now,
		UpdatedAt:     now,
	}
	l.positions[pos.ID] = pos
	open := len(l.positions)
	snap := *pos
	l.mu.Unlock()

	metrics.GetPrometheusMetrics().SetOpenPositions(open)
	logger.Info("📈 开仓 #%d %s %s %d股 @ %.2f (止损 %.2f 止盈 %.2f, %s)",
		snap.ID, snap.Symbol, snap.Side, snap.Quantity, snap.EntryPrice,
		snap.StopLoss, snap.TakeProfit, snap.Broker)
	l.publish(event.EventTypePositionOpened, map[string]interface{}{
		"symbol":      snap.Symbol,
		"side":        string(snap.Side),
		"quantity":    float64(snap.Quantity),
		"entry_price": snap.EntryPrice,
		"broker":      snap.Broker,
		"strategy":    snap.Strategy,
	})

	return snap
}

// Snapshot 返回全部持仓的副本，按 ID 升序
func (l *Ledger) Snapshot() []Position {
	l.mu.RLock()
	out := make([]Position, 0, len(l.positions))
	for _, pos := range l.positions {
		out = append(out, *pos)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get 返回指定持仓的副本
func (l *Ledger) Get(id int64) (Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.positions[id]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Count 返回持仓数量（含 CLOSING 状态）
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// TotalPnL 返回当前浮动盈亏合计
func (l *Ledger) TotalPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.positions {
		total += pos.PnL
	}
	return total
}

// TotalExposure 返回总敞口 Σ|数量×最新价|
func (l *Ledger) TotalExposure() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, pos := range l.positions {
		total += math.Abs(float64(pos.Quantity) * pos.MarkPrice)
	}
	return total
}

// PortfolioState 返回风控闸门所需的组合快照
func (l *Ledger) PortfolioState() risk.PortfolioState {
	l.mu.RLock()
	open := len(l.positions)
	var unrealized float64
	for _, pos := range l.positions {
		unrealized += pos.PnL
	}
	l.mu.RUnlock()

	return risk.PortfolioState{
		OpenPositions: open,
		RealizedPnL:   l.tracker.Realized(),
		UnrealizedPnL: unrealized,
	}
}

// Close 平仓：标记 CLOSING 后向券商提交反向市价单。
// 提交被接受即从台账移除并结算已实现盈亏；
// 提交失败恢复为 OPEN，触发条件下一轮重新生效。
func (l *Ledger) Close(ctx context.Context, id int64, reason CloseReason) error {
	l.mu.Lock()
	pos, ok := l.positions[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("持仓 #%d 不存在", id)
	}
	if pos.Status != StatusOpen {
		l.mu.Unlock()
		return fmt.Errorf("持仓 #%d 正在平仓中", id)
	}
	pos.Status = StatusClosing
	snap := *pos
	l.mu.Unlock()

	closeSignal := &strategy.TradingSignal{
		Symbol:    snap.Symbol,
		Side:      snap.Side.Opposite(),
		Kind:      strategy.OrderKindMarket,
		Quantity:  snap.Quantity,
		Price:     snap.MarkPrice,
		Strategy:  snap.Strategy,
		Broker:    snap.Broker,
		CreatedAt: time.Now(),
	}

	closeOrderID, _, err := l.router.Route(ctx, closeSignal)
	if err != nil {
		l.mu.Lock()
		if p, ok := l.positions[id]; ok && p.Status == StatusClosing {
			p.Status = StatusOpen
		}
		l.mu.Unlock()
		return fmt.Errorf("平仓提交失败: %w", err)
	}

	l.mu.Lock()
	var realized float64
	if p, ok := l.positions[id]; ok {
		realized = p.PnL
		delete(l.positions, id)
	}
	remaining := len(l.positions)
	l.mu.Unlock()

	l.tracker.Add(realized)

	pm := metrics.GetPrometheusMetrics()
	pm.SetOpenPositions(remaining)
	pm.SetDailyRealizedPnL(l.tracker.Realized())
	switch reason {
	case CloseReasonStopLoss:
		pm.RecordStopLoss(snap.Symbol)
	case CloseReasonTakeProfit:
		pm.RecordTakeProfit(snap.Symbol)
	case CloseReasonExposure:
		pm.RecordForcedClose(snap.Symbol)
	}

	logger.Info("📉 平仓 #%d %s %s %d股 入场 %.2f 离场 %.2f 盈亏 %+.2f (%s)",
		snap.ID, snap.Symbol, snap.Side, snap.Quantity,
		snap.EntryPrice, snap.MarkPrice, realized, reason)

	eventType := event.EventTypePositionClosed
	switch reason {
	case CloseReasonStopLoss:
		eventType = event.EventTypeStopLoss
	case CloseReasonTakeProfit:
		eventType = event.EventTypeTakeProfit
	}
	l.publish(eventType, map[string]interface{}{
		"symbol":      snap.Symbol,
		"side":        string(snap.Side),
		"strategy":    snap.Strategy,
		"quantity":    float64(snap.Quantity),
		"entry_price": snap.EntryPrice,
		"exit_price":  snap.MarkPrice,
		"pnl":         realized,
		"reason":      string(reason),
		"broker":      snap.Broker,
	})

	l.saveTrade(&snap, realized, closeOrderID, reason)

	return nil
}

// CloseAll 平掉所有持仓，逐个提交
func (l *Ledger) CloseAll(ctx context.Context, reason CloseReason) {
	l.mu.RLock()
	ids := make([]int64, 0, len(l.positions))
	for id, pos := range l.positions {
		if pos.Status == StatusOpen {
			ids = append(ids, id)
		}
	}
	l.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if err := l.Close(ctx, id, reason); err != nil {
			logger.Warn("⚠️ 持仓 #%d 平仓失败: %v", id, err)
		}
	}
}

// refreshLoop 行情刷新循环
func (l *Ledger) refreshLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.RefreshOnce(l.ctx)
		}
	}
}

// RefreshOnce 刷新一轮：逐个更新最新价并检查触发条件
func (l *Ledger) RefreshOnce(ctx context.Context) {
	l.mu.RLock()
	ids := make([]int64, 0, len(l.positions))
	for id, pos := range l.positions {
		if pos.Status == StatusOpen {
			ids = append(ids, id)
		}
	}
	l.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pm := metrics.GetPrometheusMetrics()

	for _, id := range ids {
		pos, ok := l.Get(id)
		if !ok {
			continue
		}

		quote, err := l.source.GetQuote(ctx, pos.Symbol)
		if err != nil {
			// 行情缺失时跳过本轮，持仓保持原状
			logger.Debug("⏭️ %s 行情不可用，本轮跳过持仓 #%d: %v", pos.Symbol, id, err)
			pm.RecordDataUnavailable(pos.Symbol)
			continue
		}

		reason := l.applyMark(id, quote.Price)
		if reason != "" {
			if err := l.Close(ctx, id, reason); err != nil {
				logger.Warn("⚠️ 持仓 #%d 触发 %s 但平仓失败: %v", id, reason, err)
			}
		}
	}

	l.updateGauges(pm)
}

// applyMark 更新最新价与浮动盈亏，返回触发的平仓原因。
// 止损先于止盈判定，两者同时满足时按止损处理。
func (l *Ledger) applyMark(id int64, mark float64) CloseReason {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[id]
	if !ok || pos.Status != StatusOpen {
		return ""
	}

	pos.MarkPrice = mark
	pos.PnL = computePnL(pos.Side, pos.EntryPrice, mark, pos.Quantity)
	pos.UpdatedAt = time.Now()

	switch pos.Side {
	case strategy.SideBuy:
		if pos.StopLoss > 0 && mark <= pos.StopLoss {
			return CloseReasonStopLoss
		}
		if pos.TakeProfit > 0 && mark >= pos.TakeProfit {
			return CloseReasonTakeProfit
		}
	case strategy.SideSell:
		if pos.StopLoss > 0 && mark >= pos.StopLoss {
			return CloseReasonStopLoss
		}
		if pos.TakeProfit > 0 && mark <= pos.TakeProfit {
			return CloseReasonTakeProfit
		}
	}
	return ""
}

// updateGauges 更新持仓相关指标
func (l *Ledger) updateGauges(pm *metrics.PrometheusMetrics) {
	l.mu.RLock()
	var unrealized, exposure float64
	pnlBySymbol := make(map[string]float64)
	valueBySymbol := make(map[string]float64)
	for _, pos := range l.positions {
		unrealized += pos.PnL
		value := math.Abs(float64(pos.Quantity) * pos.MarkPrice)
		exposure += value
		pnlBySymbol[pos.Symbol] += pos.PnL
		valueBySymbol[pos.Symbol] += value
	}
	count := len(l.positions)
	l.mu.RUnlock()

	pm.SetOpenPositions(count)
	pm.SetUnrealizedPnL(unrealized)
	pm.SetTotalExposure(exposure)
	pm.SetDailyRealizedPnL(l.tracker.Realized())
	for symbol, pnl := range pnlBySymbol {
		pm.SetPositionPnL(symbol, pnl)
		pm.SetPositionValue(symbol, valueBySymbol[symbol])
	}
}

// saveTrade 写入成交记录与日统计
func (l *Ledger) saveTrade(snap *Position, realized float64, closeOrderID string, reason CloseReason) {
	if l.db == nil {
		return
	}

	now := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	trade := &database.Trade{
		Broker:        snap.Broker,
		Symbol:        snap.Symbol,
		Side:          string(snap.Side),
		Strategy:      snap.Strategy,
		Quantity:      snap.Quantity,
		EntryPrice:    snap.EntryPrice,
		ExitPrice:     snap.MarkPrice,
		PnL:           realized,
		Reason:        string(reason),
		OrderID:       closeOrderID,
		ClientOrderID: snap.ClientOrderID,
		OpenedAt:      snap.OpenedAt,
		ClosedAt:      now,
		CreatedAt:     now,
	}
	if err := l.db.SaveTrade(ctx, trade); err != nil {
		logger.Error("❌ 保存成交记录失败: %v", err)
	}

	realizedDay, wins, losses := l.tracker.Stats()
	stat := &database.DailyStat{
		Day:         l.tracker.Day(),
		RealizedPnL: realizedDay,
		TradeCount:  wins + losses,
		WinCount:    wins,
		LossCount:   losses,
		CreatedAt:   now,
	}
	if err := l.db.SaveDailyStat(ctx, stat); err != nil {
		logger.Error("❌ 保存日统计失败: %v", err)
	}
}

func (l *Ledger) publish(eventType event.EventType, data map[string]interface{}) {
	if l.eventBus == nil {
		return
	}
	l.eventBus.Publish(&event.Event{Type: eventType, Data: data})
}

func computePnL(side strategy.Side, entry, mark float64, qty int) float64 {
	if side == strategy.SideBuy {
		return (mark - entry) * float64(qty)
	}
	return (entry - mark) * float64(qty)
}
