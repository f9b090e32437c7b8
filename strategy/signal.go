// Package strategy 信号策略
// 四个独立策略各自检查最新报价/指标，可能产出候选交易信号，
// 互相不去重不排序，由风控门决定取舍
package strategy

import (
	"time"
)

// Side 买卖方向
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 反方向，平仓时使用
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderKind 订单类型
type OrderKind string

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
)

// TradingSignal 候选交易信号
// 一次性消费：被风控拒绝即丢弃，不重试不修改
type TradingSignal struct {
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Kind       OrderKind `json:"kind"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Strategy   string    `json:"strategy"`
	Confidence float64   `json:"confidence"`
	Broker     string    `json:"broker"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExitLevels 按方向计算止损/止盈价：
// 买入止损在下方止盈在上方，卖出相反
func ExitLevels(price float64, side Side, slRatio, tpRatio float64) (stopLoss, takeProfit float64) {
	if side == SideBuy {
		return price * (1 - slRatio), price * (1 + tpRatio)
	}
	return price * (1 + slRatio), price * (1 - tpRatio)
}
