package strategy

import (
	"time"

	"intradesk/indicators"
	"intradesk/marketdata"
)

// Breakout 突破策略
// 价格逼近当日高点时追多
type Breakout struct {
	HighRatio  float64 // 触发比例（默认0.99，即达到日高的99%）
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Broker     string
	Quantity   int
}

// Name 策略名称
func (b *Breakout) Name() string {
	return "breakout"
}

// Evaluate 检查报价并生成信号
func (b *Breakout) Evaluate(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) *TradingSignal {
	if quote == nil || quote.Price <= 0 || quote.High <= 0 {
		return nil
	}

	if quote.Price < quote.High*b.HighRatio {
		return nil
	}

	stopLoss, takeProfit := ExitLevels(quote.Price, SideBuy, b.StopLoss, b.TakeProfit)
	return &TradingSignal{
		Symbol:     quote.Symbol,
		Side:       SideBuy,
		Kind:       OrderKindMarket,
		Quantity:   b.Quantity,
		Price:      quote.Price,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		Strategy:   b.Name(),
		Confidence: b.Confidence,
		Broker:     b.Broker,
		CreatedAt:  time.Now(),
	}
}
