package strategy

import (
	"math"
	"time"

	"intradesk/indicators"
	"intradesk/marketdata"
)

// VolumeProxy 量能代理策略
// 成交量放大叠加价格异动视为持仓量堆积的代理信号，顺势开仓
type VolumeProxy struct {
	MinVolume    int64   // 成交量绝对阈值（默认1000000）
	MinChangePct float64 // 涨跌幅阈值（百分比，默认0.3）
	StopLoss     float64
	TakeProfit   float64
	Confidence   float64
	Broker       string
	Quantity     int
}

// Name 策略名称
func (v *VolumeProxy) Name() string {
	return "volume_proxy"
}

// Evaluate 检查报价并生成信号
func (v *VolumeProxy) Evaluate(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) *TradingSignal {
	if quote == nil || quote.Price <= 0 {
		return nil
	}

	if quote.Volume <= float64(v.MinVolume) || math.Abs(quote.ChangePercent) <= v.MinChangePct {
		return nil
	}

	side := SideBuy
	if quote.ChangePercent < 0 {
		side = SideSell
	}

	stopLoss, takeProfit := ExitLevels(quote.Price, side, v.StopLoss, v.TakeProfit)
	return &TradingSignal{
		Symbol:     quote.Symbol,
		Side:       side,
		Kind:       OrderKindMarket,
		Quantity:   v.Quantity,
		Price:      quote.Price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   v.Name(),
		Confidence: v.Confidence,
		Broker:     v.Broker,
		CreatedAt:  time.Now(),
	}
}
