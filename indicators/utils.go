package indicators

import (
	"math"
)

// ========== 基础计算工具 ==========

// SMA 简单移动平均
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values)-period+1)
	sum := 0.0

	// 计算第一个 SMA
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[0] = sum / float64(period)

	// 滑动计算后续 SMA
	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result[i-period+1] = sum / float64(period)
	}

	return result
}

// EMA 指数移动平均
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values))
	multiplier := 2.0 / (float64(period) + 1.0)

	// 第一个 EMA 使用 SMA
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)

	// 计算后续 EMA
	for i := period; i < len(values); i++ {
		result[i] = (values[i] * multiplier) + (result[i-1] * (1 - multiplier))
	}

	return result[period-1:]
}

// StdDev 总体标准差
func StdDev(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	result := make([]float64, len(values)-period+1)

	for i := period - 1; i < len(values); i++ {
		slice := values[i-period+1 : i+1]
		mean := Mean(slice)
		variance := 0.0
		for _, v := range slice {
			diff := v - mean
			variance += diff * diff
		}
		result[i-period+1] = math.Sqrt(variance / float64(period))
	}

	return result
}

// Mean 平均值
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Max 最大值
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Min 最小值
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

// Sum 求和
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// TrueRange 真实波幅
func TrueRange(high, low, prevClose float64) float64 {
	tr1 := high - low
	tr2 := math.Abs(high - prevClose)
	tr3 := math.Abs(low - prevClose)
	return math.Max(tr1, math.Max(tr2, tr3))
}

// TrueRangeSeries 真实波幅序列
func TrueRangeSeries(candles []Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}

	result := make([]float64, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		result[i-1] = TrueRange(candles[i].High, candles[i].Low, candles[i-1].Close)
	}

	return result
}

// ClosePrices 提取收盘价序列
func ClosePrices(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i] = c.Close
	}
	return result
}

// HighPrices 提取最高价序列
func HighPrices(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i] = c.High
	}
	return result
}

// LowPrices 提取最低价序列
func LowPrices(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i] = c.Low
	}
	return result
}

// Volumes 提取成交量序列
func Volumes(candles []Candle) []float64 {
	result := make([]float64, len(candles))
	for i, c := range candles {
		result[i] = c.Volume
	}
	return result
}

// CrossOver 判断是否金叉（line1 上穿 line2）
func CrossOver(line1, line2 []float64) bool {
	if len(line1) < 2 || len(line2) < 2 {
		return false
	}
	n := len(line1)
	m := len(line2)
	return line1[n-2] <= line2[m-2] && line1[n-1] > line2[m-1]
}

// CrossUnder 判断是否死叉（line1 下穿 line2）
func CrossUnder(line1, line2 []float64) bool {
	if len(line1) < 2 || len(line2) < 2 {
		return false
	}
	n := len(line1)
	m := len(line2)
	return line1[n-2] >= line2[m-2] && line1[n-1] < line2[m-1]
}

// ========== 参数辅助 ==========

func getIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case float64:
			return int(val)
		}
	}
	return defaultVal
}

func getFloatParam(params map[string]interface{}, key string, defaultVal float64) float64 {
	if v, ok := params[key]; ok {
		switch val := v.(type) {
		case float64:
			return val
		case int:
			return float64(val)
		}
	}
	return defaultVal
}
