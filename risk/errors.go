package risk

import (
	"errors"
)

// 拒绝原因，按检查顺序排列
var (
	ErrPositionLimit  = errors.New("持仓数量达到上限")
	ErrDailyLossLimit = errors.New("触及当日亏损上限")
	ErrTradeRiskLimit = errors.New("单笔风险超出上限")
)

// ReasonLabel 拒绝原因对应的指标标签
func ReasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrPositionLimit):
		return "position_limit"
	case errors.Is(err, ErrDailyLossLimit):
		return "daily_loss_limit"
	case errors.Is(err, ErrTradeRiskLimit):
		return "trade_risk_limit"
	default:
		return "unknown"
	}
}
