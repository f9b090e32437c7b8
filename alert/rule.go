// Package alert 实现独立于交易流水线的预警引擎。
// 监控支撑阻力突破、PCR代理和成交量异动，命中后只发通知不下单。
package alert

import "time"

// Kind 预警类型
type Kind string

const (
	KindBreakout  Kind = "breakout"  // 向上突破阻力
	KindBreakdown Kind = "breakdown" // 向下跌破支撑
	KindPCR       Kind = "pcr"       // PCR代理超阈值
	KindVolume    Kind = "volume"    // 量比超阈值
)

// ValidKind 校验预警类型
func ValidKind(k Kind) bool {
	switch k {
	case KindBreakout, KindBreakdown, KindPCR, KindVolume:
		return true
	}
	return false
}

// Status 预警状态。
// 存续集合里只有 ACTIVE 和 TRIGGERED，确认或取消后进入历史，不再复活。
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusTriggered Status = "TRIGGERED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Rule 一条预警规则
type Rule struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Kind        Kind      `json:"kind"`
	Resistance  float64   `json:"resistance,omitempty"` // breakout 监控的阻力位
	Support     float64   `json:"support,omitempty"`    // breakdown 监控的支撑位
	Threshold   float64   `json:"threshold,omitempty"`  // pcr/volume 的触发阈值
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	TriggeredAt time.Time `json:"triggered_at,omitempty"`
	BreachPrice float64   `json:"breach_price,omitempty"` // 触发时的价格或测量值
	Note        string    `json:"note,omitempty"`
}

// Level 规则监控的关口值
func (r *Rule) Level() float64 {
	switch r.Kind {
	case KindBreakout:
		return r.Resistance
	case KindBreakdown:
		return r.Support
	default:
		return r.Threshold
	}
}

// Live 规则是否仍在存续集合中参与检查
func (r *Rule) Live() bool {
	return r.Status == StatusActive || r.Status == StatusTriggered
}
