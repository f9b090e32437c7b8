package alert

import (
	"fmt"
	"math"
	"time"
)

// TradePlan 突破预警附带的交易计划。
// 止损挂在被突破关口外侧2%，止盈按2:1盈亏比推算，
// 数量由本金×单笔风险比例÷每股风险得出。
type TradePlan struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"` // BUY_CALL / BUY_PUT
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Risk       float64 `json:"risk"`   // 每股风险
	Reward     float64 `json:"reward"` // 每股回报
	Size       int     `json:"size"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// BuildTradePlan 由突破方向和关口推算交易计划
func BuildTradePlan(kind Kind, symbol string, price, level, capital, riskPerTrade float64) TradePlan {
	plan := TradePlan{
		Symbol: symbol,
		Entry:  round2(price),
	}

	switch kind {
	case KindBreakout:
		plan.Action = "BUY_CALL"
		plan.StopLoss = round2(level * 0.98)
		plan.Risk = round2(plan.Entry - plan.StopLoss)
		plan.TakeProfit = round2(plan.Entry + plan.Risk*2)
	case KindBreakdown:
		plan.Action = "BUY_PUT"
		plan.StopLoss = round2(level * 1.02)
		plan.Risk = round2(plan.StopLoss - plan.Entry)
		plan.TakeProfit = round2(plan.Entry - plan.Risk*2)
	}

	plan.Reward = round2(plan.Risk * 2)
	if plan.Risk > 0 && capital > 0 && riskPerTrade > 0 {
		plan.Size = int(capital * riskPerTrade / plan.Risk)
	}
	return plan
}

// Message 通知文本，₹计价
func (p TradePlan) Message(kind Kind, level float64, at time.Time) string {
	header := "🚀 %s 突破预警"
	if kind == KindBreakdown {
		header = "📉 %s 跌破预警"
	}
	return fmt.Sprintf(header+"\n"+
		"💰 现价 ₹%.2f 关口 ₹%.2f\n"+
		"操作: %s\n"+
		"进场: ₹%.2f\n"+
		"止损: ₹%.2f\n"+
		"止盈: ₹%.2f\n"+
		"风险 ₹%.2f / 回报 ₹%.2f / 盈亏比 2:1\n"+
		"数量: %d\n"+
		"⏰ %s",
		p.Symbol, p.Entry, level, p.Action,
		p.Entry, p.StopLoss, p.TakeProfit,
		p.Risk, p.Reward, p.Size,
		at.Format("2006-01-02 15:04:05"))
}

// marketMessage PCR/成交量预警的简短通知
func marketMessage(r *Rule, measured float64, at time.Time) string {
	switch r.Kind {
	case KindPCR:
		return fmt.Sprintf("⚠️ %s PCR代理 %.2f 超过阈值 %.2f，恐慌情绪升温\n⏰ %s",
			r.Symbol, measured, r.Threshold, at.Format("2006-01-02 15:04:05"))
	case KindVolume:
		return fmt.Sprintf("📊 %s 量比 %.2f 超过阈值 %.2f，成交异动\n⏰ %s",
			r.Symbol, measured, r.Threshold, at.Format("2006-01-02 15:04:05"))
	}
	return ""
}
