package position

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"intradesk/broker"
	"intradesk/config"
	"intradesk/marketdata"
	"intradesk/risk"
	"intradesk/strategy"
)

// stubSource 可控行情源
type stubSource struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
}

func newStubSource() *stubSource {
	return &stubSource{prices: make(map[string]float64), errs: make(map[string]error)}
}

func (s *stubSource) setPrice(symbol string, price float64) {
	s.mu.Lock()
	s.prices[symbol] = price
	delete(s.errs, symbol)
	s.mu.Unlock()
}

func (s *stubSource) setError(symbol string, err error) {
	s.mu.Lock()
	s.errs[symbol] = err
	s.mu.Unlock()
}

func (s *stubSource) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.errs[symbol]; ok {
		return nil, err
	}
	price, ok := s.prices[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return &marketdata.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
}

func (s *stubSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (marketdata.Series, error) {
	return nil, marketdata.ErrNoData
}

func (s *stubSource) Name() string { return "stub" }

// paperRouter 基于最小配置的路由器，订单全部落到模拟券商
func paperRouter(t *testing.T) *broker.Router {
	t.Helper()
	r, err := broker.NewRouter(config.CreateMinimalConfig(), nil, nil)
	if err != nil {
		t.Fatalf("创建路由器失败: %v", err)
	}
	return r
}

// failingRouter 非模拟模式且只接入 paper：dhan 订单必然失败
func failingRouter(t *testing.T) *broker.Router {
	t.Helper()
	cfg := &config.Config{}
	cfg.Brokers = map[string]config.BrokerConfig{"paper": {Enabled: true}}
	r, err := broker.NewRouter(cfg, nil, nil)
	if err != nil {
		t.Fatalf("创建路由器失败: %v", err)
	}
	return r
}

func testLedger(t *testing.T, source *stubSource, router *broker.Router) *Ledger {
	t.Helper()
	return NewLedger(source, router, risk.NewDailyTracker(), nil, nil, time.Hour)
}

func openSignal(symbol string, side strategy.Side, qty int, price, stopLoss, takeProfit float64) *strategy.TradingSignal {
	return &strategy.TradingSignal{
		Symbol:     symbol,
		Side:       side,
		Kind:       strategy.OrderKindMarket,
		Quantity:   qty,
		Price:      price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   "momentum",
		Broker:     "dhan",
		CreatedAt:  time.Now(),
	}
}

func TestOpenFromSignal(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	sig := openSignal("NIFTY50", strategy.SideBuy, 100, 24500, 23275, 28175)
	pos := l.Open(sig, "DH-1", "momentum_B_123")

	if pos.ID != 1 {
		t.Errorf("首个持仓 ID 应为 1, 得到 %d", pos.ID)
	}
	if pos.EntryPrice != 24500 || pos.MarkPrice != 24500 {
		t.Errorf("入场价应取信号参考价 24500, 得到 entry=%.2f mark=%.2f", pos.EntryPrice, pos.MarkPrice)
	}
	if pos.Status != StatusOpen {
		t.Errorf("新开持仓状态应为 OPEN, 得到 %s", pos.Status)
	}
	if l.Count() != 1 {
		t.Errorf("持仓数量应为 1, 得到 %d", l.Count())
	}

	// 快照是副本，修改不影响台账
	snap := l.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("快照应包含 1 个持仓, 得到 %d", len(snap))
	}
	snap[0].MarkPrice = 0
	got, _ := l.Get(1)
	if got.MarkPrice != 24500 {
		t.Error("修改快照不应影响台账内部状态")
	}
}

func TestPnLComputation(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	// 多头：(标记价-入场价)×数量
	buy := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 0, 0), "O1", "C1")
	if reason := l.applyMark(buy.ID, 105); reason != "" {
		t.Fatalf("未设置止损止盈不应触发平仓, 得到 %s", reason)
	}
	got, _ := l.Get(buy.ID)
	if got.PnL != 50 {
		t.Errorf("多头盈亏应为 50, 得到 %.2f", got.PnL)
	}

	l.applyMark(buy.ID, 95)
	got, _ = l.Get(buy.ID)
	if got.PnL != -50 {
		t.Errorf("多头回撤盈亏应为 -50, 得到 %.2f", got.PnL)
	}

	// 空头：(入场价-标记价)×数量
	sell := l.Open(openSignal("BANKNIFTY", strategy.SideSell, 10, 100, 0, 0), "O2", "C2")
	l.applyMark(sell.ID, 95)
	got, _ = l.Get(sell.ID)
	if got.PnL != 50 {
		t.Errorf("空头盈亏应为 50, 得到 %.2f", got.PnL)
	}
}

func TestStopLossBeforeTakeProfit(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	// 止损与止盈同时满足时按止损处理
	both := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 100, 100), "O1", "C1")
	if reason := l.applyMark(both.ID, 100); reason != CloseReasonStopLoss {
		t.Errorf("同时满足时应判定为止损, 得到 %s", reason)
	}

	buy := l.Open(openSignal("BANKNIFTY", strategy.SideBuy, 10, 100, 95, 110), "O2", "C2")
	if reason := l.applyMark(buy.ID, 100); reason != "" {
		t.Errorf("区间内不应触发, 得到 %s", reason)
	}
	if reason := l.applyMark(buy.ID, 95); reason != CloseReasonStopLoss {
		t.Errorf("触及止损价应触发止损, 得到 %s", reason)
	}
}

func TestSellSideTriggers(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	sell := l.Open(openSignal("NIFTY50", strategy.SideSell, 10, 100, 105, 90), "O1", "C1")
	if reason := l.applyMark(sell.ID, 106); reason != CloseReasonStopLoss {
		t.Errorf("空头价格上穿止损应触发止损, 得到 %s", reason)
	}

	sell2 := l.Open(openSignal("BANKNIFTY", strategy.SideSell, 10, 100, 105, 90), "O2", "C2")
	if reason := l.applyMark(sell2.ID, 89); reason != CloseReasonTakeProfit {
		t.Errorf("空头价格下穿止盈应触发止盈, 得到 %s", reason)
	}
}

func TestCloseSettlesRealizedPnL(t *testing.T) {
	router := paperRouter(t)
	l := testLedger(t, newStubSource(), router)

	pos := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 24500, 0, 0), "O1", "C1")
	l.applyMark(pos.ID, 24600)

	if err := l.Close(context.Background(), pos.ID, CloseReasonManual); err != nil {
		t.Fatalf("平仓不应失败: %v", err)
	}
	if l.Count() != 0 {
		t.Errorf("平仓后持仓数量应为 0, 得到 %d", l.Count())
	}
	if realized := l.tracker.Realized(); realized != 1000 {
		t.Errorf("已实现盈亏应为 1000, 得到 %.2f", realized)
	}

	// 模拟券商按平仓单价格成交
	price, err := router.LivePrice(context.Background(), "paper", "NIFTY50")
	if err != nil || price != 24600 {
		t.Errorf("平仓单应以 24600 成交, 得到 %.2f err=%v", price, err)
	}

	// 重复平仓应报错
	if err := l.Close(context.Background(), pos.ID, CloseReasonManual); err == nil {
		t.Error("平掉不存在的持仓应返回错误")
	}
}

func TestCloseFailureRevertsToOpen(t *testing.T) {
	l := testLedger(t, newStubSource(), failingRouter(t))

	pos := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 95, 110), "O1", "C1")
	l.applyMark(pos.ID, 94)

	if err := l.Close(context.Background(), pos.ID, CloseReasonStopLoss); err == nil {
		t.Fatal("券商未配置时平仓应失败")
	}

	got, ok := l.Get(pos.ID)
	if !ok {
		t.Fatal("平仓失败后持仓不应被移除")
	}
	if got.Status != StatusOpen {
		t.Errorf("平仓失败后状态应恢复为 OPEN, 得到 %s", got.Status)
	}
	if l.tracker.Realized() != 0 {
		t.Errorf("平仓失败不应结算盈亏, 得到 %.2f", l.tracker.Realized())
	}

	// 触发条件下一轮重新生效
	if reason := l.applyMark(pos.ID, 94); reason != CloseReasonStopLoss {
		t.Errorf("恢复后触发条件应再次生效, 得到 %s", reason)
	}
}

func TestRefreshSkipsOnQuoteError(t *testing.T) {
	source := newStubSource()
	l := testLedger(t, source, paperRouter(t))

	pos := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 95, 110), "O1", "C1")
	source.setError("NIFTY50", fmt.Errorf("上游超时"))

	l.RefreshOnce(context.Background())

	got, _ := l.Get(pos.ID)
	if got.MarkPrice != 100 || got.Status != StatusOpen {
		t.Errorf("行情缺失时持仓应保持原状, 得到 mark=%.2f status=%s", got.MarkPrice, got.Status)
	}
}

func TestRefreshTriggersClose(t *testing.T) {
	source := newStubSource()
	l := testLedger(t, source, paperRouter(t))

	l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 95, 110), "O1", "C1")
	source.setPrice("NIFTY50", 94)

	l.RefreshOnce(context.Background())

	if l.Count() != 0 {
		t.Errorf("刷新触发止损后持仓应被移除, 剩余 %d", l.Count())
	}
	if realized := l.tracker.Realized(); realized != -60 {
		t.Errorf("止损平仓已实现盈亏应为 -60, 得到 %.2f", realized)
	}
}

func TestCloseAll(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	p1 := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 0, 0), "O1", "C1")
	p2 := l.Open(openSignal("BANKNIFTY", strategy.SideSell, 5, 200, 0, 0), "O2", "C2")
	l.applyMark(p1.ID, 110)
	l.applyMark(p2.ID, 190)

	l.CloseAll(context.Background(), CloseReasonShutdown)

	if l.Count() != 0 {
		t.Errorf("全部平仓后持仓数量应为 0, 得到 %d", l.Count())
	}
	if realized := l.tracker.Realized(); realized != 150 {
		t.Errorf("已实现盈亏应为 100+50=150, 得到 %.2f", realized)
	}
}

func TestPortfolioState(t *testing.T) {
	l := testLedger(t, newStubSource(), paperRouter(t))

	p1 := l.Open(openSignal("NIFTY50", strategy.SideBuy, 10, 100, 0, 0), "O1", "C1")
	p2 := l.Open(openSignal("BANKNIFTY", strategy.SideBuy, 5, 200, 0, 0), "O2", "C2")
	l.applyMark(p1.ID, 110)
	l.applyMark(p2.ID, 196)

	state := l.PortfolioState()
	if state.OpenPositions != 2 {
		t.Errorf("持仓数应为 2, 得到 %d", state.OpenPositions)
	}
	if state.UnrealizedPnL != 80 {
		t.Errorf("浮动盈亏应为 100-20=80, 得到 %.2f", state.UnrealizedPnL)
	}

	if exposure := l.TotalExposure(); exposure != 110*10+196*5 {
		t.Errorf("总敞口应为 2080, 得到 %.2f", exposure)
	}
	if total := l.TotalPnL(); total != 80 {
		t.Errorf("浮动盈亏合计应为 80, 得到 %.2f", total)
	}
}
