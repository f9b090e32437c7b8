package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// getRiskStatus 风控限额与用量：持仓数、当日亏损、敞口
func getRiskStatus(c *gin.Context) {
	if webCfg == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	capital := webCfg.Trading.Capital
	lossLimit := capital * webCfg.Trading.MaxDailyLossRatio

	var realized, unrealized float64
	day := ""
	if trackerProvider != nil {
		realized, _, _ = trackerProvider.Stats()
		day = trackerProvider.Day()
	}

	openPositions := 0
	if ledgerProvider != nil {
		openPositions = ledgerProvider.Count()
		unrealized = ledgerProvider.TotalPnL()
	}

	dailyPnL := realized + unrealized
	lossUsed := 0.0
	if dailyPnL < 0 && lossLimit > 0 {
		lossUsed = -dailyPnL / lossLimit
	}

	out := gin.H{
		"day":     day,
		"capital": capital,
		"limits": gin.H{
			"max_positions":        webCfg.Trading.MaxPositions,
			"max_daily_loss_ratio": webCfg.Trading.MaxDailyLossRatio,
			"max_risk_per_trade":   webCfg.Trading.MaxRiskPerTrade,
			"max_exposure":         webCfg.Trading.MaxExposure,
		},
		"open_positions":       openPositions,
		"position_slots_used":  float64(openPositions) / float64(max(webCfg.Trading.MaxPositions, 1)),
		"daily_pnl":            dailyPnL,
		"daily_loss_limit":     lossLimit,
		"daily_loss_used":      lossUsed,
		"daily_loss_limit_hit": lossLimit > 0 && dailyPnL <= -lossLimit,
	}

	if exposureProvider != nil {
		current, limit := exposureProvider.Exposure()
		out["exposure"] = current
		out["exposure_limit"] = limit
		if limit > 0 {
			out["exposure_used"] = current / limit
		}
	}
	c.JSON(http.StatusOK, out)
}
