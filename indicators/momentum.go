package indicators

// ========== 动量指标 ==========

// RSI 相对强弱指数（Wilder 平滑）
type RSI struct {
	period int
}

// NewRSI 创建 RSI 指标
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Name 指标名称
func (r *RSI) Name() string {
	return "RSI"
}

// Period 所需周期数
func (r *RSI) Period() int {
	return r.period + 1
}

// Calculate 计算 RSI
// 首个均值取前 N 个涨跌幅的简单平均，之后按 Wilder 规则平滑：
// avg = (prev*(N-1) + cur) / N
func (r *RSI) Calculate(candles []Candle) []float64 {
	closes := ClosePrices(candles)
	if len(closes) < r.period+1 {
		return nil
	}

	// 计算价格变化
	changes := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		changes[i-1] = closes[i] - closes[i-1]
	}

	// 分离上涨和下跌
	gains := make([]float64, len(changes))
	losses := make([]float64, len(changes))
	for i, change := range changes {
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	n := float64(r.period)
	avgGain := Mean(gains[:r.period])
	avgLoss := Mean(losses[:r.period])

	result := make([]float64, len(changes)-r.period+1)
	result[0] = rsiValue(avgGain, avgLoss)

	for i := r.period; i < len(changes); i++ {
		avgGain = (avgGain*(n-1) + gains[i]) / n
		avgLoss = (avgLoss*(n-1) + losses[i]) / n
		result[i-r.period+1] = rsiValue(avgGain, avgLoss)
	}

	return result
}

// rsiValue RSI = 100 - 100/(1+RS)，avgLoss 为 0 时约定为 100
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// Signal 交易信号
func (r *RSI) Signal(candles []Candle) int {
	rsi := r.Calculate(candles)
	if len(rsi) == 0 {
		return 0
	}

	current := rsi[len(rsi)-1]

	// RSI < 30: 超卖，买入
	if current < 30 {
		return 1
	}
	// RSI > 70: 超买，卖出
	if current > 70 {
		return -1
	}

	return 0
}

// 注册动量指标
func init() {
	RegisterIndicator("RSI", func(params map[string]interface{}) Indicator {
		period := getIntParam(params, "period", 14)
		return NewRSI(period)
	})
}
