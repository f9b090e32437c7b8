package strategy

import (
	"time"

	"intradesk/indicators"
	"intradesk/marketdata"
)

// Momentum 动量策略
// 当日涨跌幅超过阈值时顺势开仓
type Momentum struct {
	Threshold  float64 // 触发涨跌幅（百分比）
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Broker     string
	Quantity   int
}

// Name 策略名称
func (m *Momentum) Name() string {
	return "momentum"
}

// Evaluate 检查报价并生成信号
func (m *Momentum) Evaluate(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) *TradingSignal {
	if quote == nil || quote.Price <= 0 {
		return nil
	}

	var side Side
	switch {
	case quote.ChangePercent > m.Threshold:
		side = SideBuy
	case quote.ChangePercent < -m.Threshold:
		side = SideSell
	default:
		return nil
	}

	stopLoss, takeProfit := ExitLevels(quote.Price, side, m.StopLoss, m.TakeProfit)
	return &TradingSignal{
		Symbol:     quote.Symbol,
		Side:       side,
		Kind:       OrderKindMarket,
		Quantity:   m.Quantity,
		Price:      quote.Price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   m.Name(),
		Confidence: m.Confidence,
		Broker:     m.Broker,
		CreatedAt:  time.Now(),
	}
}
