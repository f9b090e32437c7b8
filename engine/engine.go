// Package engine 交易主循环。
// 每个信号周期内：交易时段判定、逐标的拉行情算指标跑策略、
// 信号过风控闸门后提交券商并登记持仓。
// 外部信号（webhook）经 Submit 入队，由同一循环走同样的风控路径。
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"intradesk/broker"
	"intradesk/config"
	"intradesk/database"
	"intradesk/event"
	"intradesk/indicators"
	"intradesk/logger"
	"intradesk/marketdata"
	"intradesk/metrics"
	"intradesk/position"
	"intradesk/risk"
	"intradesk/strategy"
	"intradesk/utils"
)

const externalQueueSize = 256

// Engine 信号生成与执行引擎
type Engine struct {
	cfg      *config.Config
	source   marketdata.Source
	manager  *strategy.Manager
	gate     *risk.Gate
	router   *broker.Router
	ledger   *position.Ledger
	db       database.Database
	eventBus *event.EventBus
	builder  *indicators.SnapshotBuilder
	hours    *marketdata.MarketHours

	interval time.Duration
	lookback int
	kline    string
	external chan *strategy.TradingSignal

	mu          sync.Mutex
	lossHaltDay string                // 当日亏损熔断事件已发出的交易日
	watchlist   []config.SymbolConfig // 热更新的自选列表，非空时优先于配置

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine 创建交易引擎
func NewEngine(cfg *config.Config, source marketdata.Source, manager *strategy.Manager,
	gate *risk.Gate, router *broker.Router, ledger *position.Ledger,
	db database.Database, eventBus *event.EventBus) *Engine {

	intervalSec := cfg.Timing.SignalInterval
	if intervalSec <= 0 {
		intervalSec = 1
	}
	lookback := cfg.MarketData.LookbackDays
	if lookback <= 0 {
		lookback = 5
	}
	kline := cfg.MarketData.Interval
	if kline == "" {
		kline = "5m"
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:      cfg,
		source:   source,
		manager:  manager,
		gate:     gate,
		router:   router,
		ledger:   ledger,
		db:       db,
		eventBus: eventBus,
		builder:  indicators.DefaultSnapshotBuilder(),
		hours:    newMarketHours(cfg.Trading.MarketOpen, cfg.Trading.MarketClose),
		interval: time.Duration(intervalSec) * time.Second,
		lookback: lookback,
		kline:    kline,
		external: make(chan *strategy.TradingSignal, externalQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// newMarketHours 构建交易时段日历，配置无效时回落到 09:15-15:30
func newMarketHours(open, close string) *marketdata.MarketHours {
	hours, err := marketdata.NewMarketHours(open, close, utils.GlobalLocation)
	if err != nil {
		logger.Warn("⚠️ 交易时段配置无效，回落到 09:15-15:30: %v", err)
		hours, _ = marketdata.NewMarketHours("09:15", "15:30", utils.GlobalLocation)
	}
	return hours
}

// Start 启动信号循环
func (e *Engine) Start() {
	logger.Info("🚀 启动交易引擎: 周期 %v，策略 %d 个，标的 %d 个",
		e.interval, e.manager.Count(), len(e.Symbols()))
	e.wg.Add(1)
	go e.run()
}

// Stop 停止信号循环。正在执行的信号走完提交登记后才退出。
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	logger.Info("⏹️ 交易引擎已停止")
}

// Submit 外部信号入队，队列满时丢弃
func (e *Engine) Submit(signal *strategy.TradingSignal) bool {
	if signal == nil {
		return false
	}
	select {
	case e.external <- signal:
		return true
	default:
		logger.Warn("⚠️ 外部信号队列已满，丢弃 %s %s", signal.Symbol, signal.Side)
		return false
	}
}

// MarketOpen 当前是否交易时段
func (e *Engine) MarketOpen() bool {
	return e.hours.IsOpen(utils.NowConfiguredTimezone())
}

// NextMarketOpen 下一个开盘时间
func (e *Engine) NextMarketOpen() time.Time {
	return e.hours.NextOpen(utils.NowConfiguredTimezone())
}

// SetWatchlist 原子替换参与信号生成的标的集合（自选列表热更新）
func (e *Engine) SetWatchlist(symbols []config.SymbolConfig) {
	e.mu.Lock()
	e.watchlist = symbols
	e.mu.Unlock()
	logger.Info("📋 自选列表已更新: %d 个标的", len(symbols))
}

// Symbols 参与信号生成的标的，自选列表生效时覆盖配置
func (e *Engine) Symbols() []config.SymbolConfig {
	e.mu.Lock()
	pool := e.cfg.Trading.Symbols
	if e.watchlist != nil {
		pool = e.watchlist
	}
	e.mu.Unlock()

	var out []config.SymbolConfig
	for _, sc := range pool {
		if sc.Enabled {
			out = append(out, sc)
		}
	}
	return out
}

func (e *Engine) run() {
	defer e.wg.Done()

	e.RunCycle(e.ctx)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.RunCycle(e.ctx)
		}
	}
}

// RunCycle 跑一个信号周期。
// 外部信号先于行情轮询消化，保证 webhook 延迟不超过一个周期；
// 行情轮询只在交易时段进行。
func (e *Engine) RunCycle(ctx context.Context) {
	e.drainExternal(ctx)

	if !e.hours.IsOpen(utils.NowConfiguredTimezone()) {
		return
	}

	for _, sc := range e.Symbols() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		e.processSymbol(ctx, sc)
	}
}

// drainExternal 消化本周期积压的外部信号
func (e *Engine) drainExternal(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-e.external:
			e.Execute(ctx, signal)
		default:
			return
		}
	}
}

// processSymbol 单标的的行情拉取、指标计算与策略评估
func (e *Engine) processSymbol(ctx context.Context, sc config.SymbolConfig) {
	pm := metrics.GetPrometheusMetrics()

	quote, err := e.source.GetQuote(ctx, sc.Name)
	if err != nil {
		logger.Debug("⏭️ %s 行情不可用，本轮跳过: %v", sc.Name, err)
		pm.RecordDataUnavailable(sc.Name)
		e.publishData(sc.Name, err)
		return
	}

	pm.SetCurrentPrice(sc.Name, quote.Price)
	pm.RecordPriceUpdate(sc.Name)
	// 行情同时喂给券商层，模拟盘用它撮合，实盘用它兜底查价
	e.router.FeedPrice(sc.Name, quote.Price)

	var snap *indicators.Snapshot
	series, err := e.source.GetSeries(ctx, sc.Name, e.lookback, e.kline)
	if err != nil {
		// K线缺失时指标类策略自行退出，报价类策略照常运行
		logger.Debug("📉 %s K线不可用: %v", sc.Name, err)
		series = nil
	} else {
		snap = e.builder.Compute(sc.Name, series.Candles())
	}

	for _, signal := range e.manager.EvaluateAll(quote, snap, series) {
		if sc.Quantity > 0 {
			signal.Quantity = sc.Quantity
		}
		e.publishSignal(event.EventTypeSignalGenerated, signal, "")
		e.Execute(ctx, signal)
	}
}

// Execute 风控校验后提交并登记。
// 过闸之后的提交与登记是一个不可中断的步骤：改用独立超时上下文，
// 引擎停止只会在两个信号之间生效，不会把已放行的信号丢在半路。
func (e *Engine) Execute(ctx context.Context, signal *strategy.TradingSignal) {
	if signal == nil || signal.Quantity <= 0 || signal.Price <= 0 {
		return
	}

	if err := e.gate.Validate(signal, e.ledger.PortfolioState()); err != nil {
		e.reject(signal, err)
		return
	}

	submitCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	orderID, clientOrderID, err := e.router.Route(submitCtx, signal)
	if err != nil {
		// 指标和 order_failed 事件由路由层负责
		logger.Error("❌ 信号执行失败 %s %s %s: %v",
			signal.Strategy, signal.Symbol, signal.Side, err)
		return
	}

	e.ledger.Open(signal, orderID, clientOrderID)
}

// reject 信号被风控拒绝后的记录动作
func (e *Engine) reject(signal *strategy.TradingSignal, err error) {
	reason := risk.ReasonLabel(err)
	logger.Warn("🚫 信号被拒 [%s] %s %s %d股 @ %.2f: %v",
		signal.Strategy, signal.Symbol, signal.Side, signal.Quantity, signal.Price, err)
	metrics.GetPrometheusMetrics().RecordSignalRejected(signal.Strategy, signal.Symbol, reason)
	e.publishSignal(event.EventTypeSignalRejected, signal, reason)
	e.notifyLossHalt(err)
	e.saveDecision(signal, reason, err)
}

// notifyLossHalt 当日首次触及亏损熔断时发事件，熔断期内不重复发
func (e *Engine) notifyLossHalt(err error) {
	if !errors.Is(err, risk.ErrDailyLossLimit) {
		return
	}
	today := utils.NowConfiguredTimezone().Format("2006-01-02")

	e.mu.Lock()
	already := e.lossHaltDay == today
	if !already {
		e.lossHaltDay = today
	}
	e.mu.Unlock()

	if already || e.eventBus == nil {
		return
	}
	e.eventBus.Publish(&event.Event{
		Type:      event.EventTypeDailyLossLimit,
		Timestamp: utils.NowConfiguredTimezone(),
		Data: map[string]interface{}{
			"message": "当日亏损触及熔断线，今日不再接受新信号",
		},
	})
}

func (e *Engine) saveDecision(signal *strategy.TradingSignal, reason string, cause error) {
	if e.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	decision := &database.RiskDecision{
		Strategy:  signal.Strategy,
		Symbol:    signal.Symbol,
		Side:      string(signal.Side),
		Reason:    reason,
		Detail:    cause.Error(),
		Price:     signal.Price,
		Quantity:  signal.Quantity,
		CreatedAt: utils.NowConfiguredTimezone(),
	}
	if err := e.db.SaveRiskDecision(ctx, decision); err != nil {
		logger.Error("❌ 保存风控决策失败: %v", err)
	}
}

func (e *Engine) publishSignal(eventType event.EventType, signal *strategy.TradingSignal, reason string) {
	if e.eventBus == nil {
		return
	}
	data := map[string]interface{}{
		"symbol":      signal.Symbol,
		"side":        string(signal.Side),
		"strategy":    signal.Strategy,
		"price":       signal.Price,
		"quantity":    float64(signal.Quantity),
		"stop_loss":   signal.StopLoss,
		"take_profit": signal.TakeProfit,
		"confidence":  signal.Confidence,
		"broker":      signal.Broker,
	}
	if reason != "" {
		data["reason"] = reason
	}
	e.eventBus.Publish(&event.Event{
		Type:      eventType,
		Timestamp: utils.NowConfiguredTimezone(),
		Data:      data,
	})
}

func (e *Engine) publishData(symbol string, cause error) {
	if e.eventBus == nil {
		return
	}
	e.eventBus.Publish(&event.Event{
		Type:      event.EventTypeDataUnavailable,
		Timestamp: utils.NowConfiguredTimezone(),
		Data: map[string]interface{}{
			"symbol": symbol,
			"source": e.source.Name(),
			"error":  cause.Error(),
		},
	})
}
