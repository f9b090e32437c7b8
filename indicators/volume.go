package indicators

// ========== 成交量指标 ==========

// VolumeSMA 成交量简单移动平均
type VolumeSMA struct {
	period int
}

// NewVolumeSMA 创建成交量均线指标
func NewVolumeSMA(period int) *VolumeSMA {
	return &VolumeSMA{period: period}
}

// Name 指标名称
func (v *VolumeSMA) Name() string {
	return "VolumeSMA"
}

// Period 所需周期数
func (v *VolumeSMA) Period() int {
	return v.period
}

// Calculate 计算成交量均线
func (v *VolumeSMA) Calculate(candles []Candle) []float64 {
	return SMA(Volumes(candles), v.period)
}

// Ratio 最新成交量与均量之比，数据不足时返回 0
func (v *VolumeSMA) Ratio(candles []Candle) float64 {
	values := v.Calculate(candles)
	if len(values) == 0 || len(candles) == 0 {
		return 0
	}

	avg := values[len(values)-1]
	if avg == 0 {
		return 0
	}
	return candles[len(candles)-1].Volume / avg
}

// 注册成交量指标
func init() {
	RegisterIndicator("VolumeSMA", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 20)
		return NewVolumeSMA(period)
	})
}
