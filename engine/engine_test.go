package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"intradesk/broker"
	"intradesk/config"
	"intradesk/event"
	"intradesk/marketdata"
	"intradesk/position"
	"intradesk/risk"
	"intradesk/strategy"
	"intradesk/utils"
)

type stubSource struct {
	mu     sync.Mutex
	quotes map[string]*marketdata.Quote
	series map[string]marketdata.Series
}

func newStubSource() *stubSource {
	return &stubSource{
		quotes: make(map[string]*marketdata.Quote),
		series: make(map[string]marketdata.Series),
	}
}

func (s *stubSource) setQuote(symbol string, price, changePct float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = &marketdata.Quote{
		Symbol:        symbol,
		Price:         price,
		ChangePercent: changePct,
		Timestamp:     time.Now(),
	}
}

func (s *stubSource) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return q, nil
}

func (s *stubSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (marketdata.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	series, ok := s.series[symbol]
	if !ok || len(series) == 0 {
		return nil, marketdata.ErrNoData
	}
	return series, nil
}

func (s *stubSource) Name() string { return "stub" }

type harness struct {
	engine  *Engine
	source  *stubSource
	ledger  *position.Ledger
	tracker *risk.DailyTracker
	bus     *event.EventBus
}

func newHarness(t *testing.T, mutate func(cfg *config.Config)) *harness {
	t.Helper()

	cfg := config.CreateMinimalConfig()
	// 放宽单笔风险上限，让动量信号默认过闸，各用例自行收紧要测的限制
	cfg.Trading.MaxRiskPerTrade = 0.1
	cfg.Strategies.Enabled = true
	cfg.Strategies.Momentum.Enabled = true
	cfg.Strategies.Momentum.ThresholdPct = 0.5
	cfg.Strategies.Momentum.StopLossRatio = 0.02
	cfg.Strategies.Momentum.TakeProfitRatio = 0.02
	cfg.Strategies.Momentum.Confidence = 0.7
	cfg.Strategies.Momentum.Broker = "dhan"
	cfg.Trading.Symbols = []config.SymbolConfig{
		{Name: "NIFTY50", Ticker: "^NSEI", Enabled: true, Quantity: 10},
	}
	if mutate != nil {
		mutate(cfg)
	}

	source := newStubSource()
	bus := event.NewEventBus(200)
	router, err := broker.NewRouter(cfg, nil, nil)
	if err != nil {
		t.Fatalf("创建路由器失败: %v", err)
	}
	tracker := risk.NewDailyTracker()
	ledger := position.NewLedger(source, router, tracker, nil, nil, time.Hour)
	manager := strategy.NewManager(cfg)
	gate := risk.NewGate(cfg)

	return &harness{
		engine:  NewEngine(cfg, source, manager, gate, router, ledger, nil, bus),
		source:  source,
		ledger:  ledger,
		tracker: tracker,
		bus:     bus,
	}
}

func drainEvents(bus *event.EventBus) map[event.EventType]int {
	counts := make(map[event.EventType]int)
	for {
		select {
		case ev := <-bus.Subscribe():
			counts[ev.Type]++
		default:
			return counts
		}
	}
}

func TestMarketHoursFallback(t *testing.T) {
	// 配置损坏时回落到默认时段 09:15-15:30
	hours := newMarketHours("bad", "25:99")
	if hours.IsOpen(time.Date(2026, 8, 25, 9, 14, 0, 0, utils.GlobalLocation)) {
		t.Error("默认开盘应为 09:15")
	}
	if !hours.IsOpen(time.Date(2026, 8, 25, 9, 15, 0, 0, utils.GlobalLocation)) {
		t.Error("默认时段 09:15 应开市")
	}
}

func TestProcessSymbolOpensPosition(t *testing.T) {
	h := newHarness(t, nil)
	h.source.setQuote("NIFTY50", 24500, 1.2)

	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])

	if h.ledger.Count() != 1 {
		t.Fatalf("持仓数 %d, 期望 1", h.ledger.Count())
	}
	pos := h.ledger.Snapshot()[0]
	if pos.Symbol != "NIFTY50" || pos.Side != strategy.SideBuy {
		t.Errorf("持仓 %s %s, 期望 NIFTY50 BUY", pos.Symbol, pos.Side)
	}
	if pos.EntryPrice != 24500 {
		t.Errorf("开仓价 %.2f, 期望 24500", pos.EntryPrice)
	}
	// 标的级数量覆盖全局默认
	if pos.Quantity != 10 {
		t.Errorf("数量 %d, 期望标的配置的 10", pos.Quantity)
	}

	counts := drainEvents(h.bus)
	if counts[event.EventTypeSignalGenerated] != 1 {
		t.Errorf("信号事件 %d 次, 期望 1 次", counts[event.EventTypeSignalGenerated])
	}
}

func TestProcessSymbolSkipsOnQuoteError(t *testing.T) {
	h := newHarness(t, nil)
	// 不设报价，GetQuote 返回 ErrNoData

	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])

	if h.ledger.Count() != 0 {
		t.Errorf("行情缺失不应开仓, 持仓数 %d", h.ledger.Count())
	}
	counts := drainEvents(h.bus)
	if counts[event.EventTypeDataUnavailable] != 1 {
		t.Errorf("行情缺失事件 %d 次, 期望 1 次", counts[event.EventTypeDataUnavailable])
	}
}

func TestExecuteRejectedByPositionLimit(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Trading.MaxPositions = 1
	})
	h.source.setQuote("NIFTY50", 24500, 1.2)

	// 先占满仓位
	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])
	if h.ledger.Count() != 1 {
		t.Fatalf("预置持仓失败, 持仓数 %d", h.ledger.Count())
	}
	drainEvents(h.bus)

	// 再来的信号应被仓位上限拒绝
	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])
	if h.ledger.Count() != 1 {
		t.Errorf("超限信号不应开仓, 持仓数 %d", h.ledger.Count())
	}
	counts := drainEvents(h.bus)
	if counts[event.EventTypeSignalRejected] != 1 {
		t.Errorf("拒绝事件 %d 次, 期望 1 次", counts[event.EventTypeSignalRejected])
	}
}

func TestDailyLossHaltNotifiesOnce(t *testing.T) {
	h := newHarness(t, nil)
	// 本金100000、日亏上限5%：已实现-6000触发熔断
	h.tracker.Add(-6000)
	h.source.setQuote("NIFTY50", 24500, 1.2)

	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])
	h.engine.processSymbol(context.Background(), h.engine.Symbols()[0])

	if h.ledger.Count() != 0 {
		t.Errorf("熔断期间不应开仓, 持仓数 %d", h.ledger.Count())
	}
	counts := drainEvents(h.bus)
	if counts[event.EventTypeSignalRejected] != 2 {
		t.Errorf("拒绝事件 %d 次, 期望 2 次", counts[event.EventTypeSignalRejected])
	}
	if counts[event.EventTypeDailyLossLimit] != 1 {
		t.Errorf("熔断事件 %d 次, 期望当日只发 1 次", counts[event.EventTypeDailyLossLimit])
	}
}

func TestSubmitAndDrainExternal(t *testing.T) {
	h := newHarness(t, nil)

	ok := h.engine.Submit(&strategy.TradingSignal{
		Symbol:     "BANKNIFTY",
		Side:       strategy.SideBuy,
		Kind:       strategy.OrderKindMarket,
		Quantity:   5,
		Price:      52000,
		StopLoss:   51500,
		TakeProfit: 53000,
		Strategy:   "TradingView",
		Broker:     "dhan",
		CreatedAt:  time.Now(),
	})
	if !ok {
		t.Fatal("入队失败")
	}
	if h.engine.Submit(nil) {
		t.Error("nil 信号不应入队")
	}

	h.engine.drainExternal(context.Background())
	if h.ledger.Count() != 1 {
		t.Fatalf("外部信号应开仓, 持仓数 %d", h.ledger.Count())
	}
	pos := h.ledger.Snapshot()[0]
	if pos.Strategy != "TradingView" || pos.Quantity != 5 {
		t.Errorf("持仓 %s 数量 %d, 期望 TradingView 5", pos.Strategy, pos.Quantity)
	}
}

func TestExecuteIgnoresCancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 过闸后的提交不受外层取消影响
	h.engine.Execute(ctx, &strategy.TradingSignal{
		Symbol:    "NIFTY50",
		Side:      strategy.SideBuy,
		Kind:      strategy.OrderKindMarket,
		Quantity:  10,
		Price:     24500,
		StopLoss:  24000,
		Strategy:  "momentum",
		Broker:    "dhan",
		CreatedAt: time.Now(),
	})
	if h.ledger.Count() != 1 {
		t.Errorf("已放行的信号应完成提交登记, 持仓数 %d", h.ledger.Count())
	}
}

func TestExecuteDropsInvalidSignal(t *testing.T) {
	h := newHarness(t, nil)

	h.engine.Execute(context.Background(), nil)
	h.engine.Execute(context.Background(), &strategy.TradingSignal{
		Symbol: "NIFTY50", Side: strategy.SideBuy, Quantity: 0, Price: 24500,
	})
	h.engine.Execute(context.Background(), &strategy.TradingSignal{
		Symbol: "NIFTY50", Side: strategy.SideBuy, Quantity: 10, Price: 0,
	})

	if h.ledger.Count() != 0 {
		t.Errorf("无效信号不应开仓, 持仓数 %d", h.ledger.Count())
	}
}
