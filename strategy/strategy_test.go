package strategy

import (
	"math"
	"testing"

	"intradesk/config"
	"intradesk/marketdata"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.CreateMinimalConfig()
	cfg.Strategies.Enabled = true
	cfg.Strategies.Momentum.Enabled = true
	cfg.Strategies.MeanReversion.Enabled = true
	cfg.Strategies.Breakout.Enabled = true
	cfg.Strategies.VolumeProxy.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("配置校验失败: %v", err)
	}
	return cfg
}

func TestMomentumSignals(t *testing.T) {
	m := &Momentum{Threshold: 0.5, StopLoss: 0.02, TakeProfit: 0.02, Confidence: 0.7, Broker: "dhan", Quantity: 100}

	buy := m.Evaluate(&marketdata.Quote{Symbol: "NIFTY50", Price: 24000, ChangePercent: 0.6}, nil, nil)
	if buy == nil || buy.Side != SideBuy {
		t.Fatalf("涨幅 0.6%% 应产生买入信号, 得到 %+v", buy)
	}
	if math.Abs(buy.StopLoss-24000*0.98) > 1e-9 || math.Abs(buy.TakeProfit-24000*1.02) > 1e-9 {
		t.Errorf("买入止损/止盈 = %.2f/%.2f, 期望 %.2f/%.2f", buy.StopLoss, buy.TakeProfit, 24000*0.98, 24000*1.02)
	}
	if buy.Kind != OrderKindMarket || buy.Quantity != 100 || buy.Confidence != 0.7 || buy.Broker != "dhan" {
		t.Errorf("信号属性错误: %+v", buy)
	}

	sell := m.Evaluate(&marketdata.Quote{Symbol: "NIFTY50", Price: 24000, ChangePercent: -0.6}, nil, nil)
	if sell == nil || sell.Side != SideSell {
		t.Fatalf("跌幅 0.6%% 应产生卖出信号")
	}
	if math.Abs(sell.StopLoss-24000*1.02) > 1e-9 || math.Abs(sell.TakeProfit-24000*0.98) > 1e-9 {
		t.Errorf("卖出止损/止盈方向错误: %.2f/%.2f", sell.StopLoss, sell.TakeProfit)
	}

	if sig := m.Evaluate(&marketdata.Quote{Price: 24000, ChangePercent: 0.4}, nil, nil); sig != nil {
		t.Error("涨幅 0.4% 不应触发")
	}
	if sig := m.Evaluate(&marketdata.Quote{Price: 24000, ChangePercent: 0.5}, nil, nil); sig != nil {
		t.Error("阈值为严格大于, 恰为 0.5% 不应触发")
	}
}

func TestMeanReversionSignals(t *testing.T) {
	m := &MeanReversion{UpperBand: 0.8, LowerBand: 0.2, StopLoss: 0.01, TakeProfit: 0.01, Confidence: 0.6, Broker: "groww", Quantity: 100}

	// 位置 = (109-100)/(110-100) = 0.9 -> 贴近高点卖出
	sell := m.Evaluate(&marketdata.Quote{Symbol: "BANKNIFTY", Price: 109, High: 110, Low: 100}, nil, nil)
	if sell == nil || sell.Side != SideSell {
		t.Fatalf("区间位置 0.9 应卖出, 得到 %+v", sell)
	}
	if math.Abs(sell.StopLoss-109*1.01) > 1e-9 || math.Abs(sell.TakeProfit-109*0.99) > 1e-9 {
		t.Errorf("卖出止损/止盈 = %.4f/%.4f", sell.StopLoss, sell.TakeProfit)
	}

	// 位置 = 0.1 -> 贴近低点买入
	buy := m.Evaluate(&marketdata.Quote{Symbol: "BANKNIFTY", Price: 101, High: 110, Low: 100}, nil, nil)
	if buy == nil || buy.Side != SideBuy {
		t.Fatalf("区间位置 0.1 应买入")
	}

	if sig := m.Evaluate(&marketdata.Quote{Price: 105, High: 110, Low: 100}, nil, nil); sig != nil {
		t.Error("区间中部不应触发")
	}
	if sig := m.Evaluate(&marketdata.Quote{Price: 105, High: 105, Low: 105}, nil, nil); sig != nil {
		t.Error("高低点重合时不应触发")
	}
	if sig := m.Evaluate(&marketdata.Quote{Price: 105, High: 0, Low: 0}, nil, nil); sig != nil {
		t.Error("缺少高低点数据时不应触发")
	}
}

func TestBreakoutSignals(t *testing.T) {
	b := &Breakout{HighRatio: 0.99, StopLoss: 0.02, TakeProfit: 0.02, Confidence: 0.8, Broker: "sensibull", Quantity: 100}

	buy := b.Evaluate(&marketdata.Quote{Symbol: "SENSEX", Price: 99, High: 100}, nil, nil)
	if buy == nil || buy.Side != SideBuy {
		t.Fatal("达到日高 99% 应追多")
	}
	if buy.Broker != "sensibull" || buy.Confidence != 0.8 {
		t.Errorf("信号属性错误: %+v", buy)
	}

	if sig := b.Evaluate(&marketdata.Quote{Price: 98.9, High: 100}, nil, nil); sig != nil {
		t.Error("未达触发线不应开仓")
	}
	if sig := b.Evaluate(&marketdata.Quote{Price: 99, High: 0}, nil, nil); sig != nil {
		t.Error("日高缺失时不应触发")
	}
}

func TestVolumeProxySignals(t *testing.T) {
	v := &VolumeProxy{MinVolume: 1000000, MinChangePct: 0.3, StopLoss: 0.02, TakeProfit: 0.02, Confidence: 0.75, Broker: "dhan", Quantity: 100}

	buy := v.Evaluate(&marketdata.Quote{Symbol: "NIFTY50", Price: 24000, Volume: 1200000, ChangePercent: 0.4}, nil, nil)
	if buy == nil || buy.Side != SideBuy || buy.Confidence != 0.75 {
		t.Fatalf("放量上涨应买入, 得到 %+v", buy)
	}

	sell := v.Evaluate(&marketdata.Quote{Symbol: "NIFTY50", Price: 24000, Volume: 1200000, ChangePercent: -0.4}, nil, nil)
	if sell == nil || sell.Side != SideSell {
		t.Fatal("放量下跌应卖出")
	}

	if sig := v.Evaluate(&marketdata.Quote{Price: 24000, Volume: 900000, ChangePercent: 0.4}, nil, nil); sig != nil {
		t.Error("量能不足不应触发")
	}
	if sig := v.Evaluate(&marketdata.Quote{Price: 24000, Volume: 1000000, ChangePercent: 0.4}, nil, nil); sig != nil {
		t.Error("量能阈值为严格大于, 恰为 1000000 不应触发")
	}
	if sig := v.Evaluate(&marketdata.Quote{Price: 24000, Volume: 1200000, ChangePercent: 0.3}, nil, nil); sig != nil {
		t.Error("涨跌幅恰为阈值不应触发")
	}
}

func TestFactoryClosedSet(t *testing.T) {
	cfg := testConfig(t)

	for _, name := range AllNames() {
		s, err := New(name, cfg)
		if err != nil {
			t.Errorf("创建策略 %s 失败: %v", name, err)
			continue
		}
		if s.Name() != name {
			t.Errorf("策略名称不一致: %s != %s", s.Name(), name)
		}
	}

	if _, err := New("martingale", cfg); err == nil {
		t.Error("未知策略应返回错误")
	}
}

func TestFactoryBrokerAssignment(t *testing.T) {
	cfg := testConfig(t)

	wantBrokers := map[string]string{
		"momentum":       "dhan",
		"mean_reversion": "groww",
		"breakout":       "sensibull",
		"volume_proxy":   "dhan",
	}

	// 只让动量策略触发：小涨幅+低量+远离日高
	quotes := map[string]*marketdata.Quote{
		"momentum":       {Symbol: "X", Price: 100, ChangePercent: 1.0, High: 200, Low: 50},
		"mean_reversion": {Symbol: "X", Price: 51, High: 100, Low: 50},
		"breakout":       {Symbol: "X", Price: 100, High: 100, Low: 90},
		"volume_proxy":   {Symbol: "X", Price: 100, Volume: 2000000, ChangePercent: 0.4, High: 200, Low: 50},
	}

	for name, quote := range quotes {
		s, err := New(name, cfg)
		if err != nil {
			t.Fatalf("创建策略 %s 失败: %v", name, err)
		}
		signal := s.Evaluate(quote, nil, nil)
		if signal == nil {
			t.Errorf("策略 %s 应产生信号", name)
			continue
		}
		if signal.Broker != wantBrokers[name] {
			t.Errorf("策略 %s 绑定券商 = %s, 期望 %s", name, signal.Broker, wantBrokers[name])
		}
	}
}

func TestManagerEvaluateAll(t *testing.T) {
	cfg := testConfig(t)
	m := NewManager(cfg)

	if m.Count() != 4 {
		t.Fatalf("应加载 4 个策略, 实际 %d", m.Count())
	}

	// 该报价同时满足动量(+0.6%)和量能(>100万, >0.3%)两个策略
	quote := &marketdata.Quote{Symbol: "NIFTY50", Price: 24000, ChangePercent: 0.6, Volume: 1500000, High: 30000, Low: 20000}
	signals := m.EvaluateAll(quote, nil, nil)

	if len(signals) != 2 {
		t.Fatalf("期望 2 个信号(不去重), 得到 %d", len(signals))
	}
	seen := map[string]bool{}
	for _, s := range signals {
		seen[s.Strategy] = true
	}
	if !seen["momentum"] || !seen["volume_proxy"] {
		t.Errorf("信号来源错误: %v", seen)
	}
}

func TestManagerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Strategies.Enabled = false

	m := NewManager(cfg)
	if m.Count() != 0 {
		t.Errorf("总开关关闭时不应加载策略, 实际 %d", m.Count())
	}
}

func TestSideOpposite(t *testing.T) {
	if SideBuy.Opposite() != SideSell || SideSell.Opposite() != SideBuy {
		t.Error("Opposite 方向错误")
	}
}
