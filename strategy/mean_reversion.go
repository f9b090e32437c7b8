package strategy

import (
	"time"

	"intradesk/indicators"
	"intradesk/marketdata"
)

// MeanReversion 均值回归策略
// 以价格在当日区间中的位置判断超买超卖：
// 贴近日内高点做空，贴近日内低点做多
type MeanReversion struct {
	UpperBand  float64 // 区间上沿（默认0.8）
	LowerBand  float64 // 区间下沿（默认0.2）
	StopLoss   float64
	TakeProfit float64
	Confidence float64
	Broker     string
	Quantity   int
}

// Name 策略名称
func (m *MeanReversion) Name() string {
	return "mean_reversion"
}

// Evaluate 检查报价并生成信号
func (m *MeanReversion) Evaluate(quote *marketdata.Quote, snap *indicators.Snapshot, series marketdata.Series) *TradingSignal {
	if quote == nil || quote.Price <= 0 {
		return nil
	}
	if quote.High <= 0 || quote.Low <= 0 || quote.High <= quote.Low {
		return nil
	}

	position := (quote.Price - quote.Low) / (quote.High - quote.Low)

	var side Side
	switch {
	case position > m.UpperBand:
		side = SideSell
	case position < m.LowerBand:
		side = SideBuy
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
