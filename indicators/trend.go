package indicators

// ========== 趋势指标 ==========

// MovingAverage 移动平均线，kind 取 sma 或 ema
type MovingAverage struct {
	period int
	kind   string
}

// NewSMAIndicator 创建简单移动平均指标
func NewSMAIndicator(period int) *MovingAverage {
	return &MovingAverage{period: period, kind: "sma"}
}

// NewEMAIndicator 创建指数移动平均指标
func NewEMAIndicator(period int) *MovingAverage {
	return &MovingAverage{period: period, kind: "ema"}
}

// Name 指标名称
func (ma *MovingAverage) Name() string {
	if ma.kind == "ema" {
		return "EMA"
	}
	return "SMA"
}

// Period 所需周期数
func (ma *MovingAverage) Period() int {
	return ma.period
}

// Calculate 计算移动平均序列
func (ma *MovingAverage) Calculate(candles []Candle) []float64 {
	closes := ClosePrices(candles)
	if ma.kind == "ema" {
		return EMA(closes, ma.period)
	}
	return SMA(closes, ma.period)
}

// Last 最新均值，数据不足时返回 false
func (ma *MovingAverage) Last(candles []Candle) (float64, bool) {
	values := ma.Calculate(candles)
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// MACD 指数平滑异同移动平均线
type MACD struct {
	FastPeriod   int
	SlowPeriod   int
	SignalPeriod int
}

// NewMACD 创建 MACD 指标
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		FastPeriod:   fast,
		SlowPeriod:   slow,
		SignalPeriod: signal,
	}
}

// Name 指标名称
func (m *MACD) Name() string {
	return "MACD"
}

// Period 所需周期数
func (m *MACD) Period() int {
	return m.SlowPeriod + m.SignalPeriod
}

// Calculate 计算 MACD 线
func (m *MACD) Calculate(candles []Candle) []float64 {
	result := m.CalculateMulti(candles)
	if result == nil {
		return nil
	}
	return result["macd"]
}

// CalculateMulti 计算 MACD 线、信号线和柱状图
func (m *MACD) CalculateMulti(candles []Candle) map[string][]float64 {
	closes := ClosePrices(candles)
	if len(closes) < m.SlowPeriod+m.SignalPeriod {
		return nil
	}

	fastEMA := EMA(closes, m.FastPeriod)
	slowEMA := EMA(closes, m.SlowPeriod)

	if fastEMA == nil || slowEMA == nil {
		return nil
	}

	// 对齐长度
	offset := len(fastEMA) - len(slowEMA)
	macdLine := make([]float64, len(slowEMA))
	for i := range macdLine {
		macdLine[i] = fastEMA[i+offset] - slowEMA[i]
	}

	// 计算信号线
	signalLine := EMA(macdLine, m.SignalPeriod)
	if signalLine == nil {
		return nil
	}

	// 计算柱状图
	offset2 := len(macdLine) - len(signalLine)
	histogram := make([]float64, len(signalLine))
	for i := range histogram {
		histogram[i] = macdLine[i+offset2] - signalLine[i]
	}

	return map[string][]float64{
		"macd":      macdLine[offset2:],
		"signal":    signalLine,
		"histogram": histogram,
	}
}

// Signal 交易信号
func (m *MACD) Signal(candles []Candle) int {
	result := m.CalculateMulti(candles)
	if result == nil || len(result["macd"]) < 2 {
		return 0
	}

	macd := result["macd"]
	signal := result["signal"]

	if CrossOver(macd, signal) {
		return 1
	}
	if CrossUnder(macd, signal) {
		return -1
	}

	return 0
}

// 注册趋势指标
func init() {
	RegisterIndicator("SMA", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 20)
		return NewSMAIndicator(period)
	})

	RegisterIndicator("EMA", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 20)
		return NewEMAIndicator(period)
	})

	RegisterIndicator("MACD", func(params map[string]interface{}) Indicator {
		fast := getIntParam(params, "fast_period", 12)
		slow := getIntParam(params, "slow_period", 26)
		signal := getIntParam(params, "signal_period", 9)
		return NewMACD(fast, slow, signal)
	})
}
