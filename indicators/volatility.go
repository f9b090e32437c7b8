package indicators

// ========== 波动率指标 ==========

// ATR 平均真实波幅
type ATR struct {
	period int
}

// NewATR 创建 ATR 指标
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

// Name 指标名称
func (a *ATR) Name() string {
	return "ATR"
}

// Period 所需周期数
func (a *ATR) Period() int {
	return a.period + 1
}

// Calculate 计算 ATR，取真实波幅的滚动简单平均
func (a *ATR) Calculate(candles []Candle) []float64 {
	if len(candles) < a.period+1 {
		return nil
	}

	tr := TrueRangeSeries(candles)
	if tr == nil {
		return nil
	}

	return SMA(tr, a.period)
}

// CurrentATR 获取当前 ATR 值
func (a *ATR) CurrentATR(candles []Candle) float64 {
	atr := a.Calculate(candles)
	if len(atr) == 0 {
		return 0
	}
	return atr[len(atr)-1]
}

// BollingerBands 布林带
type BollingerBands struct {
	period     int
	multiplier float64
}

// NewBollingerBands 创建布林带指标
func NewBollingerBands(period int, multiplier float64) *BollingerBands {
	return &BollingerBands{
		period:     period,
		multiplier: multiplier,
	}
}

// Name 指标名称
func (bb *BollingerBands) Name() string {
	return "BollingerBands"
}

// Period 所需周期数
func (bb *BollingerBands) Period() int {
	return bb.period
}

// Calculate 计算中轨
func (bb *BollingerBands) Calculate(candles []Candle) []float64 {
	result := bb.CalculateMulti(candles)
	if result == nil {
		return nil
	}
	return result["middle"]
}

// CalculateMulti 计算上轨、中轨、下轨
func (bb *BollingerBands) CalculateMulti(candles []Candle) map[string][]float64 {
	closes := ClosePrices(candles)
	if len(closes) < bb.period {
		return nil
	}

	middle := SMA(closes, bb.period)
	stdDev := StdDev(closes, bb.period)

	if middle == nil || stdDev == nil {
		return nil
	}

	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))

	for i := range middle {
		band := bb.multiplier * stdDev[i]
		upper[i] = middle[i] + band
		lower[i] = middle[i] - band
	}

	return map[string][]float64{
		"upper":  upper,
		"middle": middle,
		"lower":  lower,
	}
}

// Signal 交易信号
func (bb *BollingerBands) Signal(candles []Candle) int {
	result := bb.CalculateMulti(candles)
	if result == nil {
		return 0
	}

	upper := result["upper"]
	lower := result["lower"]
	closes := ClosePrices(candles)

	current := closes[len(closes)-1]

	// 触及下轨：超卖，买入
	if current <= lower[len(lower)-1] {
		return 1
	}
	// 触及上轨：超买，卖出
	if current >= upper[len(upper)-1] {
		return -1
	}

	return 0
}

// 注册波动率指标
func init() {
	RegisterIndicator("ATR", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 14)
		return NewATR(period)
	})

	RegisterIndicator("BollingerBands", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 20)
		multiplier := getFloatParam(params, "multiplier", 2.0)
		return NewBollingerBands(period, multiplier)
	})
}
