// Package analysis 基于K线和技术指标生成市场结构分析报告。
// 指数期权链数据拿不到，认沽认购比等期权指标全部用价格行为代理估算，
// 报告中的字段语义以代理口径为准。
package analysis

import (
	"errors"

	"intradesk/marketdata"
)

// ErrInsufficientData K线数量不足以计算分析指标
var ErrInsufficientData = errors.New("数据不足，无法计算分析指标")

// PCRProxy 用近段K线的跌天数/涨天数近似 Put-Call Ratio。
// 跌多涨少比值大于1，代表市场偏恐慌；涨多跌少小于1，代表偏贪婪。
// 没有涨天时按跌天数本身返回容易爆表，统一钳为1（中性偏上由跌天主导）。
func PCRProxy(series marketdata.Series) (float64, error) {
	if len(series) < 2 {
		return 0, ErrInsufficientData
	}

	closes := series.Closes()
	upDays, downDays := 0, 0
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			upDays++
		case closes[i] < closes[i-1]:
			downDays++
		}
	}

	if upDays == 0 {
		return 1.0, nil
	}
	return float64(downDays) / float64(upDays), nil
}

// PCRReading PCR 代理值的档位解读
type PCRReading struct {
	Value          float64 `json:"value"`
	Signal         string  `json:"signal"`         // EXTREME_FEAR / FEAR / NEUTRAL / GREED / EXTREME_GREED
	Interpretation string  `json:"interpretation"` // 档位含义
	Confidence     string  `json:"confidence"`     // HIGH / MEDIUM / LOW
	Action         string  `json:"action"`         // 建议动作
}

// InterpretPCR 按固定档位解读 PCR 代理值
func InterpretPCR(pcr float64) PCRReading {
	r := PCRReading{Value: pcr}
	switch {
	case pcr > 1.5:
		r.Signal = "EXTREME_FEAR"
		r.Interpretation = "市场极度恐慌，往往是反转信号"
		r.Confidence = "HIGH"
		r.Action = "考虑买入看涨期权或回补空头"
	case pcr > 1.2:
		r.Signal = "FEAR"
		r.Interpretation = "市场偏恐慌，看跌情绪浓"
		r.Confidence = "MEDIUM"
		r.Action = "等待确认，或逢低买入看涨期权"
	case pcr > 0.8:
		r.Signal = "NEUTRAL"
		r.Interpretation = "多空情绪均衡"
		r.Confidence = "LOW"
		r.Action = "跟随技术面操作"
	case pcr > 0.5:
		r.Signal = "GREED"
		r.Interpretation = "市场偏贪婪，看涨情绪浓"
		r.Confidence = "MEDIUM"
		r.Action = "考虑买入看跌期权或卖出看涨期权"
	default:
		r.Signal = "EXTREME_GREED"
		r.Interpretation = "市场极度贪婪，谨防回调"
		r.Confidence = "HIGH"
		r.Action = "考虑买入看跌期权或卖出看涨期权"
	}
	return r
}

// GammaExposure 按 PCR 代理估计做市商 Gamma 敞口水平
func GammaExposure(pcr float64) string {
	switch {
	case pcr > 1.2:
		return "HIGH"
	case pcr > 0.8:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// VolatilitySkew 按 PCR 代理估计波动率偏斜方向
func VolatilitySkew(pcr float64) (skew, implication string) {
	switch {
	case pcr > 1.2:
		return "PUT_SKEW", "看跌期权隐波偏高，下行保护需求大"
	case pcr < 0.8:
		return "CALL_SKEW", "看涨期权隐波偏高，追涨情绪重"
	default:
		return "NORMAL", "隐波曲面正常，无明显偏斜"
	}
}
