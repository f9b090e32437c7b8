package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// maskSecret 隐藏敏感配置，仅提示是否已设置
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}

// getConfigHandler 运行配置（脱敏后）
func getConfigHandler(c *gin.Context) {
	if webCfg == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	brokers := gin.H{}
	for name, bc := range webCfg.Brokers {
		brokers[name] = gin.H{
			"enabled":  bc.Enabled,
			"base_url": bc.BaseURL,
			"api_key":  maskSecret(bc.APIKey),
			"timeout":  bc.Timeout,
		}
	}

	// mysql/postgres 的 DSN 内嵌账号密码，整体脱敏
	dsn := webCfg.Database.DSN
	if webCfg.Database.Type != "sqlite" {
		dsn = maskSecret(dsn)
	}

	c.JSON(http.StatusOK, gin.H{
		"app": gin.H{
			"name":          webCfg.App.Name,
			"data_dir":      webCfg.App.DataDir,
			"paper_trading": webCfg.App.PaperTrading,
		},
		"brokers": brokers,
		"trading": gin.H{
			"capital":              webCfg.Trading.Capital,
			"quantity":             webCfg.Trading.Quantity,
			"max_positions":        webCfg.Trading.MaxPositions,
			"max_daily_loss_ratio": webCfg.Trading.MaxDailyLossRatio,
			"max_risk_per_trade":   webCfg.Trading.MaxRiskPerTrade,
			"max_exposure":         webCfg.Trading.MaxExposure,
			"stop_loss_ratio":      webCfg.Trading.StopLossRatio,
			"take_profit_ratio":    webCfg.Trading.TakeProfitRatio,
			"market_open":          webCfg.Trading.MarketOpen,
			"market_close":         webCfg.Trading.MarketClose,
			"symbols":              webCfg.Trading.Symbols,
		},
		"marketdata": gin.H{
			"provider":      webCfg.MarketData.Provider,
			"interval":      webCfg.MarketData.Interval,
			"lookback_days": webCfg.MarketData.LookbackDays,
			"cache_enabled": webCfg.MarketData.Cache.Enabled,
		},
		"strategies": gin.H{
			"enabled":        webCfg.Strategies.Enabled,
			"momentum":       webCfg.Strategies.Momentum.Enabled,
			"mean_reversion": webCfg.Strategies.MeanReversion.Enabled,
			"breakout":       webCfg.Strategies.Breakout.Enabled,
			"volume_proxy":   webCfg.Strategies.VolumeProxy.Enabled,
		},
		"webhook": gin.H{
			"enabled": webCfg.Webhook.Enabled,
			"secret":  maskSecret(webCfg.Webhook.Secret),
		},
		"alerts": gin.H{
			"enabled":           webCfg.Alerts.Enabled,
			"breakout_interval": webCfg.Alerts.BreakoutInterval,
			"market_interval":   webCfg.Alerts.MarketInterval,
			"confirm_bars":      webCfg.Alerts.ConfirmBars,
			"pcr_high":          webCfg.Alerts.PCRHigh,
			"pcr_low":           webCfg.Alerts.PCRLow,
			"volume_ratio":      webCfg.Alerts.VolumeRatio,
		},
		"timing": gin.H{
			"signal_interval":   webCfg.Timing.SignalInterval,
			"refresh_interval":  webCfg.Timing.RefreshInterval,
			"exposure_interval": webCfg.Timing.ExposureInterval,
		},
		"system": gin.H{
			"log_level":               webCfg.System.LogLevel,
			"timezone":                webCfg.System.Timezone,
			"log_language":            webCfg.System.LogLanguage,
			"close_positions_on_exit": webCfg.System.ClosePositionsOnExit,
			"log_retention_days":      webCfg.System.LogRetentionDays,
		},
		"database": gin.H{
			"type": webCfg.Database.Type,
			"dsn":  dsn,
		},
		"distributed_lock": gin.H{
			"enabled": webCfg.DistributedLock.Enabled,
			"type":    webCfg.DistributedLock.Type,
			"prefix":  webCfg.DistributedLock.Prefix,
		},
		"notifications": gin.H{
			"enabled":  webCfg.Notifications.Enabled,
			"telegram": webCfg.Notifications.Telegram.Enabled,
			"webhook":  webCfg.Notifications.Webhook.Enabled,
			"email":    webCfg.Notifications.Email.Enabled,
		},
		"storage": gin.H{
			"enabled": webCfg.Storage.Enabled,
			"type":    webCfg.Storage.Type,
			"path":    webCfg.Storage.Path,
		},
		"web": gin.H{
			"host":    webCfg.Web.Host,
			"port":    webCfg.Web.Port,
			"api_key": maskSecret(webCfg.Web.APIKey),
			"pprof":   webCfg.Web.Pprof.Enabled,
		},
		"watchlist": gin.H{
			"path": webCfg.Watchlist.Path,
		},
	})
}
