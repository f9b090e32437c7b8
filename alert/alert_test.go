package alert

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"intradesk/config"
	"intradesk/event"
	"intradesk/marketdata"
)

type stubSource struct {
	mu     sync.Mutex
	quotes map[string]float64
	series map[string]marketdata.Series
}

func newStubSource() *stubSource {
	return &stubSource{
		quotes: make(map[string]float64),
		series: make(map[string]marketdata.Series),
	}
}

func (s *stubSource) setQuote(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = price
}

func (s *stubSource) setSeries(symbol string, series marketdata.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[symbol] = series
}

func (s *stubSource) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.quotes[symbol]
	if !ok {
		return nil, marketdata.ErrNoData
	}
	return &marketdata.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
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

func seriesWithCloses(closes ...float64) marketdata.Series {
	series := make(marketdata.Series, len(closes))
	for i, c := range closes {
		series[i] = marketdata.Bar{
			Time:   int64(1700000000 + i*300),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return series
}

// 枢轴结构: 唯一阻力105（下标2的高点），唯一支撑92（下标2的低点）
func pivotSeries() marketdata.Series {
	highs := []float64{100, 101, 105, 101, 100, 99, 98, 97, 96, 95}
	lows := []float64{98, 97, 92, 96, 95, 96, 95, 96, 95, 96}
	series := make(marketdata.Series, len(highs))
	for i := range highs {
		series[i] = marketdata.Bar{
			Time:   int64(1700000000 + i*300),
			Open:   (highs[i] + lows[i]) / 2,
			High:   highs[i],
			Low:    lows[i],
			Close:  (highs[i] + lows[i]) / 2,
			Volume: 1000,
		}
	}
	return series
}

func newTestEngine(source *stubSource, bus *event.EventBus) *Engine {
	cfg := config.CreateMinimalConfig()
	cfg.Alerts.Enabled = true
	cfg.Alerts.ConfirmBars = 2
	cfg.Alerts.ClusterTolerance = 0.02
	return NewEngine(cfg, source, nil, bus)
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

func TestSetupExplicitLevel(t *testing.T) {
	e := newTestEngine(newStubSource(), nil)

	rule, err := e.Setup(context.Background(), "NIFTY50", KindBreakout, 24500, "手动关口")
	if err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}
	if rule.Status != StatusActive {
		t.Errorf("状态 %s, 期望 ACTIVE", rule.Status)
	}
	if rule.Resistance != 24500 || rule.Level() != 24500 {
		t.Errorf("阻力位 %.2f, 期望 24500", rule.Resistance)
	}
	if !strings.HasPrefix(rule.ID, "BREAKOUT_NIFTY50_") {
		t.Errorf("规则ID格式错误: %s", rule.ID)
	}
	if len(e.Active()) != 1 {
		t.Errorf("存续规则数 %d, 期望 1", len(e.Active()))
	}

	if _, err := e.Setup(context.Background(), "", KindBreakout, 100, ""); err == nil {
		t.Error("空标的应报错")
	}
	if _, err := e.Setup(context.Background(), "NIFTY50", Kind("unknown"), 100, ""); err == nil {
		t.Error("未知类型应报错")
	}
}

func TestSetupDerivesLevels(t *testing.T) {
	source := newStubSource()
	source.setQuote("NIFTY50", 100)
	source.setSeries("NIFTY50", pivotSeries())
	e := newTestEngine(source, nil)

	breakout, err := e.Setup(context.Background(), "NIFTY50", KindBreakout, 0, "")
	if err != nil {
		t.Fatalf("创建突破预警失败: %v", err)
	}
	if breakout.Resistance != 105 {
		t.Errorf("推导阻力位 %.2f, 期望 105", breakout.Resistance)
	}

	breakdown, err := e.Setup(context.Background(), "NIFTY50", KindBreakdown, 0, "")
	if err != nil {
		t.Fatalf("创建跌破预警失败: %v", err)
	}
	if breakdown.Support != 92 {
		t.Errorf("推导支撑位 %.2f, 期望 92", breakdown.Support)
	}
}

func TestSetupDefaultThresholds(t *testing.T) {
	e := newTestEngine(newStubSource(), nil)

	pcr, err := e.Setup(context.Background(), "NIFTY50", KindPCR, 0, "")
	if err != nil {
		t.Fatalf("创建PCR预警失败: %v", err)
	}
	if pcr.Threshold != 1.5 {
		t.Errorf("PCR默认阈值 %.2f, 期望 1.5", pcr.Threshold)
	}

	vol, err := e.Setup(context.Background(), "NIFTY50", KindVolume, 0, "")
	if err != nil {
		t.Fatalf("创建量比预警失败: %v", err)
	}
	if vol.Threshold != 2.0 {
		t.Errorf("量比默认阈值 %.2f, 期望 2.0", vol.Threshold)
	}
}

func TestBreakoutLifecycle(t *testing.T) {
	source := newStubSource()
	bus := event.NewEventBus(100)
	e := newTestEngine(source, bus)

	rule, err := e.Setup(context.Background(), "NIFTY50", KindBreakout, 100, "")
	if err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	// 未突破
	source.setQuote("NIFTY50", 99)
	e.CheckBreakouts(context.Background())
	if got, _ := e.Get(rule.ID); got.Status != StatusActive {
		t.Fatalf("未突破时状态 %s, 期望 ACTIVE", got.Status)
	}

	// 首次突破: 转 TRIGGERED 并发通知
	source.setQuote("NIFTY50", 101)
	e.CheckBreakouts(context.Background())
	got, ok := e.Get(rule.ID)
	if !ok || got.Status != StatusTriggered {
		t.Fatalf("突破后状态 %s, 期望 TRIGGERED", got.Status)
	}
	if got.BreachPrice != 101 {
		t.Errorf("触发价 %.2f, 期望 101", got.BreachPrice)
	}

	// 收盘未站稳: 保持 TRIGGERED 不重复通知
	source.setSeries("NIFTY50", seriesWithCloses(99, 101.5))
	e.CheckBreakouts(context.Background())
	if got, _ := e.Get(rule.ID); got.Status != StatusTriggered {
		t.Fatalf("未确认时状态 %s, 期望 TRIGGERED", got.Status)
	}

	// 连续2根收盘站稳: 确认并退入历史
	source.setSeries("NIFTY50", seriesWithCloses(99, 100.5, 102))
	e.CheckBreakouts(context.Background())
	if _, ok := e.Get(rule.ID); ok {
		t.Fatal("确认后规则不应留在存续集合")
	}
	history := e.History()
	if len(history) != 1 || history[0].Status != StatusConfirmed {
		t.Fatalf("历史记录 %+v, 期望一条 CONFIRMED", history)
	}

	counts := drainEvents(bus)
	if counts[event.EventTypeAlertTriggered] != 1 {
		t.Errorf("触发事件 %d 次, 期望 1 次", counts[event.EventTypeAlertTriggered])
	}
	if counts[event.EventTypeAlertConfirmed] != 1 {
		t.Errorf("确认事件 %d 次, 期望 1 次", counts[event.EventTypeAlertConfirmed])
	}
}

func TestBreakdownTrigger(t *testing.T) {
	source := newStubSource()
	e := newTestEngine(source, nil)

	rule, err := e.Setup(context.Background(), "BANKNIFTY", KindBreakdown, 100, "")
	if err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	source.setQuote("BANKNIFTY", 99.5)
	e.CheckBreakouts(context.Background())
	if got, _ := e.Get(rule.ID); got.Status != StatusTriggered {
		t.Fatalf("跌破后状态 %s, 期望 TRIGGERED", got.Status)
	}

	source.setSeries("BANKNIFTY", seriesWithCloses(100.5, 99, 98.5))
	e.CheckBreakouts(context.Background())
	history := e.History()
	if len(history) != 1 || history[0].Status != StatusConfirmed {
		t.Fatalf("历史记录 %+v, 期望一条 CONFIRMED", history)
	}
}

func TestTradePlanArithmetic(t *testing.T) {
	plan := BuildTradePlan(KindBreakout, "NIFTY50", 24510, 24500, 100000, 0.02)
	if plan.Action != "BUY_CALL" {
		t.Errorf("操作 %s, 期望 BUY_CALL", plan.Action)
	}
	if plan.StopLoss != 24010 {
		t.Errorf("止损 %.2f, 期望 24010 (关口×0.98)", plan.StopLoss)
	}
	if plan.Risk != 500 || plan.Reward != 1000 {
		t.Errorf("风险 %.2f 回报 %.2f, 期望 500/1000", plan.Risk, plan.Reward)
	}
	if plan.TakeProfit != 25510 {
		t.Errorf("止盈 %.2f, 期望 25510 (2:1盈亏比)", plan.TakeProfit)
	}
	if plan.Size != 4 {
		t.Errorf("数量 %d, 期望 4 (100000×2%%÷500)", plan.Size)
	}

	plan = BuildTradePlan(KindBreakdown, "BANKNIFTY", 51000, 51100, 100000, 0.02)
	if plan.Action != "BUY_PUT" {
		t.Errorf("操作 %s, 期望 BUY_PUT", plan.Action)
	}
	if plan.StopLoss != 52122 {
		t.Errorf("止损 %.2f, 期望 52122 (关口×1.02)", plan.StopLoss)
	}
	if plan.TakeProfit != 48756 {
		t.Errorf("止盈 %.2f, 期望 48756", plan.TakeProfit)
	}
	if plan.Size != 1 {
		t.Errorf("数量 %d, 期望 1", plan.Size)
	}

	msg := plan.Message(KindBreakdown, 51100, time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC))
	if !strings.Contains(msg, "BUY_PUT") || !strings.Contains(msg, "₹") {
		t.Errorf("通知文本缺少关键信息: %s", msg)
	}
}

func TestPCRRuleTriggersOnce(t *testing.T) {
	source := newStubSource()
	bus := event.NewEventBus(100)
	e := newTestEngine(source, bus)

	if _, err := e.Setup(context.Background(), "NIFTY50", KindPCR, 1.5, ""); err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	// 3跌1涨 → PCR代理 3.0 > 1.5
	source.setSeries("NIFTY50", seriesWithCloses(100, 101, 100, 99, 98))
	e.CheckMarket(context.Background())

	if len(e.Active()) != 0 {
		t.Fatal("PCR预警触发后应退出存续集合")
	}
	history := e.History()
	if len(history) != 1 || history[0].Status != StatusTriggered {
		t.Fatalf("历史记录 %+v, 期望一条 TRIGGERED", history)
	}
	if history[0].BreachPrice != 3.0 {
		t.Errorf("触发测量值 %.2f, 期望 3.0", history[0].BreachPrice)
	}

	// 再跑一轮不会重复触发
	e.CheckMarket(context.Background())
	counts := drainEvents(bus)
	if counts[event.EventTypeAlertTriggered] != 1 {
		t.Errorf("触发事件 %d 次, 期望 1 次", counts[event.EventTypeAlertTriggered])
	}
}

func TestPCRRuleBelowThreshold(t *testing.T) {
	source := newStubSource()
	e := newTestEngine(source, nil)

	if _, err := e.Setup(context.Background(), "NIFTY50", KindPCR, 1.5, ""); err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	// 2跌2涨 → PCR代理 1.0，不触发
	source.setSeries("NIFTY50", seriesWithCloses(100, 101, 100, 99, 100))
	e.CheckMarket(context.Background())
	if len(e.Active()) != 1 {
		t.Error("未过阈值不应触发")
	}
}

func TestVolumeRule(t *testing.T) {
	source := newStubSource()
	e := newTestEngine(source, nil)

	if _, err := e.Setup(context.Background(), "NIFTY50", KindVolume, 2.0, ""); err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	// 均量1000上下，末根放量5000 → 量比远超2倍
	series := seriesWithCloses(make([]float64, 21)...)
	for i := range series {
		series[i].Close = 100
		series[i].Volume = 1000
	}
	series[len(series)-1].Volume = 5000
	source.setSeries("NIFTY50", series)

	e.CheckMarket(context.Background())
	if len(e.Active()) != 0 {
		t.Fatal("放量应触发量比预警")
	}
	history := e.History()
	if len(history) != 1 || history[0].Kind != KindVolume {
		t.Fatalf("历史记录 %+v, 期望一条量比预警", history)
	}
}

func TestCancelRule(t *testing.T) {
	bus := event.NewEventBus(100)
	e := newTestEngine(newStubSource(), bus)

	rule, err := e.Setup(context.Background(), "NIFTY50", KindBreakout, 24500, "")
	if err != nil {
		t.Fatalf("创建预警失败: %v", err)
	}

	if err := e.Cancel(context.Background(), rule.ID); err != nil {
		t.Fatalf("取消预警失败: %v", err)
	}
	if len(e.Active()) != 0 {
		t.Error("取消后不应留在存续集合")
	}
	history := e.History()
	if len(history) != 1 || history[0].Status != StatusCancelled {
		t.Fatalf("历史记录 %+v, 期望一条 CANCELLED", history)
	}

	if err := e.Cancel(context.Background(), rule.ID); err == nil {
		t.Error("重复取消应报错")
	}

	counts := drainEvents(bus)
	if counts[event.EventTypeAlertCancelled] != 1 {
		t.Errorf("取消事件 %d 次, 期望 1 次", counts[event.EventTypeAlertCancelled])
	}
}
