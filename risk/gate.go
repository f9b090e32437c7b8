// Package risk 实现下单前风控闸门。
// 三项检查严格按序执行，命中任意一项即拒绝信号，
// 被拒绝的信号直接丢弃，不做重试。
package risk

import (
	"fmt"
	"math"

	"intradesk/config"
	"intradesk/strategy"
)

// PortfolioState 风控检查所需的组合快照，由持仓台账提供
type PortfolioState struct {
	OpenPositions int     // 当前未平仓数量（含 CLOSING 状态）
	RealizedPnL   float64 // 当日已实现盈亏
	UnrealizedPnL float64 // 当前浮动盈亏
}

// Gate 风控闸门，配置在创建时固定
type Gate struct {
	capital         float64
	maxPositions    int
	maxDailyLoss    float64 // 日亏损上限比例
	maxRiskPerTrade float64 // 单笔风险上限比例
}

// NewGate 从配置创建风控闸门
func NewGate(cfg *config.Config) *Gate {
	return &Gate{
		capital:         cfg.Trading.Capital,
		maxPositions:    cfg.Trading.MaxPositions,
		maxDailyLoss:    cfg.Trading.MaxDailyLossRatio,
		maxRiskPerTrade: cfg.Trading.MaxRiskPerTrade,
	}
}

// Validate 按序执行三项检查，返回 nil 表示放行。
// 检查顺序：持仓数量、当日亏损、单笔风险。
//
// 边界约定：持仓数达到上限即拒绝，当日亏损达到上限即拒绝，
// 单笔风险恰好等于上限放行（仅严格超出才拒绝）。
func (g *Gate) Validate(signal *strategy.TradingSignal, state PortfolioState) error {
	// (a) 持仓数量
	if state.OpenPositions >= g.maxPositions {
		return fmt.Errorf("当前持仓 %d 已达上限 %d: %w",
			state.OpenPositions, g.maxPositions, ErrPositionLimit)
	}

	// (b) 当日亏损（已实现 + 浮动）
	dailyPnL := state.RealizedPnL + state.UnrealizedPnL
	lossCap := g.capital * g.maxDailyLoss
	if dailyPnL <= -lossCap {
		return fmt.Errorf("当日盈亏 %.2f 触及亏损上限 -%.2f: %w",
			dailyPnL, lossCap, ErrDailyLossLimit)
	}

	// (c) 单笔风险 = |入场价 - 止损价| × 数量
	tradeRisk := math.Abs(signal.Price-signal.StopLoss) * float64(signal.Quantity)
	riskCap := g.capital * g.maxRiskPerTrade
	if tradeRisk > riskCap {
		return fmt.Errorf("单笔风险 %.2f 超出上限 %.2f: %w",
			tradeRisk, riskCap, ErrTradeRiskLimit)
	}

	return nil
}

// Capital 返回配置的交易本金
func (g *Gate) Capital() float64 {
	return g.capital
}
