package analysis

import (
	"context"
	"errors"
	"testing"

	"intradesk/config"
	"intradesk/indicators"
	"intradesk/marketdata"
)

func seriesFromCloses(closes []float64) marketdata.Series {
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

func TestPCRProxy(t *testing.T) {
	// 3跌1涨
	pcr, err := PCRProxy(seriesFromCloses([]float64{100, 101, 100, 99, 98}))
	if err != nil {
		t.Fatalf("计算PCR失败: %v", err)
	}
	if pcr != 3.0 {
		t.Errorf("PCR = %.2f, 期望 3.00", pcr)
	}

	// 全跌无涨，钳为1
	pcr, err = PCRProxy(seriesFromCloses([]float64{100, 99, 98}))
	if err != nil {
		t.Fatalf("计算PCR失败: %v", err)
	}
	if pcr != 1.0 {
		t.Errorf("无涨天时 PCR = %.2f, 期望 1.00", pcr)
	}

	// 平盘天不计入
	pcr, err = PCRProxy(seriesFromCloses([]float64{100, 100, 101}))
	if err != nil {
		t.Fatalf("计算PCR失败: %v", err)
	}
	if pcr != 0 {
		t.Errorf("纯上涨时 PCR = %.2f, 期望 0.00", pcr)
	}

	// 数据不足
	if _, err := PCRProxy(seriesFromCloses([]float64{100})); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("单根K线应返回数据不足, 实际 %v", err)
	}
}

func TestInterpretPCRBands(t *testing.T) {
	cases := []struct {
		pcr        float64
		signal     string
		confidence string
	}{
		{1.6, "EXTREME_FEAR", "HIGH"},
		{1.5, "FEAR", "MEDIUM"},
		{1.21, "FEAR", "MEDIUM"},
		{1.2, "NEUTRAL", "LOW"},
		{0.9, "NEUTRAL", "LOW"},
		{0.8, "GREED", "MEDIUM"},
		{0.51, "GREED", "MEDIUM"},
		{0.5, "EXTREME_GREED", "HIGH"},
		{0.2, "EXTREME_GREED", "HIGH"},
	}
	for _, c := range cases {
		r := InterpretPCR(c.pcr)
		if r.Signal != c.signal {
			t.Errorf("PCR %.2f: 信号 %s, 期望 %s", c.pcr, r.Signal, c.signal)
		}
		if r.Confidence != c.confidence {
			t.Errorf("PCR %.2f: 置信度 %s, 期望 %s", c.pcr, r.Confidence, c.confidence)
		}
		if r.Action == "" {
			t.Errorf("PCR %.2f: 建议动作为空", c.pcr)
		}
	}
}

func snapWith(values map[string]float64) *indicators.Snapshot {
	return &indicators.Snapshot{Symbol: "NIFTY50", Values: values}
}

func TestScoreSentiment(t *testing.T) {
	// 三项趋势分全中: 看多
	s, err := ScoreSentiment("NIFTY50", 110, snapWith(map[string]float64{
		"sma_20": 100, "sma_50": 95,
	}))
	if err != nil {
		t.Fatalf("打分失败: %v", err)
	}
	if s.Score != 3 || s.Label != SentimentBullish {
		t.Errorf("得分 %d 标签 %s, 期望 3 BULLISH", s.Score, s.Label)
	}

	// RSI超买扣1分
	s, err = ScoreSentiment("NIFTY50", 110, snapWith(map[string]float64{
		"sma_20": 100, "sma_50": 95, "rsi": 75,
	}))
	if err != nil {
		t.Fatalf("打分失败: %v", err)
	}
	if s.Score != 2 || s.Label != SentimentNeutral {
		t.Errorf("超买后得分 %d 标签 %s, 期望 2 NEUTRAL", s.Score, s.Label)
	}

	// 趋势全空且超买: 看空
	s, err = ScoreSentiment("NIFTY50", 90, snapWith(map[string]float64{
		"sma_20": 100, "sma_50": 105, "rsi": 75,
	}))
	if err != nil {
		t.Fatalf("打分失败: %v", err)
	}
	if s.Score != -1 || s.Label != SentimentBearish {
		t.Errorf("得分 %d 标签 %s, 期望 -1 BEARISH", s.Score, s.Label)
	}

	// SMA50缺失时超卖加放量也能凑满3分
	s, err = ScoreSentiment("NIFTY50", 110, snapWith(map[string]float64{
		"sma_20": 100, "rsi": 25, "volume_ratio": 2.0,
	}))
	if err != nil {
		t.Fatalf("打分失败: %v", err)
	}
	if s.Score != 3 || s.Label != SentimentBullish {
		t.Errorf("得分 %d 标签 %s, 期望 3 BULLISH", s.Score, s.Label)
	}

	// SMA20都算不出来: 数据不足
	if _, err := ScoreSentiment("NIFTY50", 110, snapWith(map[string]float64{})); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("缺少SMA20应返回数据不足, 实际 %v", err)
	}
}

func TestEstimateMaxPain(t *testing.T) {
	mp, ok := EstimateMaxPain(100, []float64{95}, []float64{101, 110})
	if !ok {
		t.Fatal("应能估算痛点")
	}
	if mp.Level != 101 {
		t.Errorf("痛点 %.2f, 期望 101.00", mp.Level)
	}
	if mp.Distance != -1 {
		t.Errorf("距离 %.2f, 期望 -1.00", mp.Distance)
	}
	if mp.Probability != "MEDIUM" {
		t.Errorf("概率 %s, 期望 MEDIUM (距离1%%)", mp.Probability)
	}

	// 距离超过2%: 概率降为LOW
	mp, ok = EstimateMaxPain(100, []float64{90}, nil)
	if !ok {
		t.Fatal("应能估算痛点")
	}
	if mp.Probability != "LOW" {
		t.Errorf("概率 %s, 期望 LOW (距离10%%)", mp.Probability)
	}

	// 无价位
	if _, ok := EstimateMaxPain(100, nil, nil); ok {
		t.Error("无支撑阻力位时不应给出痛点")
	}
}

func TestDetectBuildup(t *testing.T) {
	cases := []struct {
		pcr       float64
		sentiment string
		pattern   string
	}{
		{1.3, SentimentBearish, "PUT_BUILDUP"},
		{0.6, SentimentBullish, "CALL_BUILDUP"},
		{1.3, SentimentBullish, "BALANCED"},
		{0.6, SentimentBearish, "BALANCED"},
		{1.0, SentimentNeutral, "BALANCED"},
	}
	for _, c := range cases {
		got := DetectBuildup(c.pcr, c.sentiment)
		if got.Pattern != c.pattern {
			t.Errorf("PCR %.1f %s: 形态 %s, 期望 %s", c.pcr, c.sentiment, got.Pattern, c.pattern)
		}
	}
}

func TestDetectUnwinding(t *testing.T) {
	cases := []struct {
		pcr       float64
		sentiment string
		signal    string
	}{
		{1.6, SentimentBullish, "PUT_UNWINDING"},
		{0.4, SentimentBearish, "CALL_UNWINDING"},
		{1.6, SentimentBearish, "NO_UNWINDING"},
		{1.0, SentimentNeutral, "NO_UNWINDING"},
	}
	for _, c := range cases {
		got := DetectUnwinding(c.pcr, c.sentiment)
		if got.Signal != c.signal {
			t.Errorf("PCR %.1f %s: 信号 %s, 期望 %s", c.pcr, c.sentiment, got.Signal, c.signal)
		}
	}
}

func TestComposeReport(t *testing.T) {
	cfg := config.CreateMinimalConfig()
	analyzer := NewAnalyzer(nil, cfg)

	// 2跌1涨 → PCR 2.0 → 极度恐慌
	series := seriesFromCloses([]float64{100, 101, 95, 90})
	quote := &marketdata.Quote{Symbol: "NIFTY50", Price: 90, ChangePercent: -5.26}
	snap := &indicators.Snapshot{
		Symbol:      "NIFTY50",
		Values:      map[string]float64{"sma_20": 100, "rsi": 25},
		Supports:    []float64{89},
		Resistances: []float64{95},
	}

	report := analyzer.Compose("NIFTY50", quote, series, snap)
	if report.PCR == nil || report.PCR.Signal != "EXTREME_FEAR" {
		t.Fatalf("PCR解读 %+v, 期望 EXTREME_FEAR", report.PCR)
	}
	if report.GammaLevel != "HIGH" || report.Skew != "PUT_SKEW" {
		t.Errorf("Gamma %s Skew %s, 期望 HIGH PUT_SKEW", report.GammaLevel, report.Skew)
	}
	if report.NearestSupport != 89 || report.NearestResistance != 95 {
		t.Errorf("支撑 %.2f 阻力 %.2f, 期望 89 95", report.NearestSupport, report.NearestResistance)
	}
	if report.MaxPain == nil || report.MaxPain.Level != 89 || report.MaxPain.Probability != "MEDIUM" {
		t.Errorf("痛点 %+v, 期望 89 MEDIUM", report.MaxPain)
	}
	if len(report.Suggestions) != 1 || report.Suggestions[0].Type != "BUY_CALL" {
		t.Fatalf("建议 %+v, 期望单条 BUY_CALL", report.Suggestions)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("报告时间为空")
	}
}

type stubSource struct {
	quote  *marketdata.Quote
	series marketdata.Series
	err    error
}

func (s *stubSource) GetQuote(ctx context.Context, symbol string) (*marketdata.Quote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

func (s *stubSource) GetSeries(ctx context.Context, symbol string, lookback int, interval string) (marketdata.Series, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.series, nil
}

func (s *stubSource) Name() string { return "stub" }

func TestAnalyzeEndToEnd(t *testing.T) {
	closes := make([]float64, 0, 60)
	price := 24000.0
	for i := 0; i < 60; i++ {
		if i%3 == 0 {
			price += 20
		} else {
			price -= 15
		}
		closes = append(closes, price)
	}
	source := &stubSource{
		quote:  &marketdata.Quote{Symbol: "NIFTY50", Price: price},
		series: seriesFromCloses(closes),
	}

	analyzer := NewAnalyzer(source, config.CreateMinimalConfig())
	report, err := analyzer.Analyze(context.Background(), "NIFTY50")
	if err != nil {
		t.Fatalf("分析失败: %v", err)
	}
	if report.Symbol != "NIFTY50" || report.Price != price {
		t.Errorf("报告标的 %s 价格 %.2f 不符", report.Symbol, report.Price)
	}
	if report.Sentiment == nil {
		t.Error("60根K线应足够计算情绪")
	}
	if report.PCR == nil {
		t.Error("应有PCR解读")
	}

	// 行情失败直接报错
	source.err = marketdata.ErrNoData
	if _, err := analyzer.Analyze(context.Background(), "NIFTY50"); err == nil {
		t.Error("行情不可用时应返回错误")
	}
}
