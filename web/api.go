package web

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/config"
	"intradesk/position"
	"intradesk/strategy"
	"intradesk/utils"
)

// 版本号与启动时间，由 main 在启动时注入
var (
	appVersion = "dev"
	startedAt  = time.Now()
)

// SetVersion 设置对外展示的版本号
func SetVersion(v string) {
	if v != "" {
		appVersion = v
	}
}

// EngineProvider 信号引擎提供者：行情状态与外部信号入队
type EngineProvider interface {
	MarketOpen() bool
	NextMarketOpen() time.Time
	Symbols() []config.SymbolConfig
	Submit(signal *strategy.TradingSignal) bool
}

// LedgerProvider 持仓台账提供者
type LedgerProvider interface {
	Snapshot() []position.Position
	Count() int
	TotalPnL() float64
	TotalExposure() float64
}

// TrackerProvider 当日已实现盈亏提供者
type TrackerProvider interface {
	Stats() (realized float64, wins, losses int)
	Day() string
}

// ExposureProvider 敞口监控提供者
type ExposureProvider interface {
	Exposure() (current, limit float64)
}

var (
	webCfg           *config.Config
	engineProvider   EngineProvider
	ledgerProvider   LedgerProvider
	trackerProvider  TrackerProvider
	exposureProvider ExposureProvider
)

// SetConfig 注入已加载的配置（NewWebServer 会自动调用）
func SetConfig(cfg *config.Config) {
	webCfg = cfg
}

// SetEngine 注入信号引擎
func SetEngine(p EngineProvider) {
	engineProvider = p
}

// SetLedger 注入持仓台账
func SetLedger(p LedgerProvider) {
	ledgerProvider = p
}

// SetTracker 注入当日盈亏跟踪器
func SetTracker(p TrackerProvider) {
	trackerProvider = p
}

// SetExposure 注入敞口监控
func SetExposure(p ExposureProvider) {
	exposureProvider = p
}

// SystemStatus 系统运行状态快照，/api/status 与 WebSocket 推送共用
type SystemStatus struct {
	Running       bool       `json:"running"`
	Version       string     `json:"version"`
	PaperTrading  bool       `json:"paper_trading"`
	MarketOpen    bool       `json:"market_open"`
	NextOpen      *time.Time `json:"next_open,omitempty"` // 休市时的下一个开盘时间
	TradingDay    string     `json:"trading_day"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	Symbols       []string   `json:"symbols"`
	OpenPositions int        `json:"open_positions"`
	RealizedPnL   float64    `json:"realized_pnl"`
	UnrealizedPnL float64    `json:"unrealized_pnl"`
	TotalExposure float64    `json:"total_exposure"`
	ExposureLimit float64    `json:"exposure_limit"`
	Timestamp     time.Time  `json:"timestamp"`
}

// CollectStatus 汇总当前系统状态，未注入的提供者按零值处理
func CollectStatus() *SystemStatus {
	status := &SystemStatus{
		Running:       true,
		Version:       appVersion,
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
		Symbols:       []string{},
		Timestamp:     utils.NowConfiguredTimezone(),
	}

	if webCfg != nil {
		status.PaperTrading = webCfg.App.PaperTrading
	}
	if engineProvider != nil {
		status.MarketOpen = engineProvider.MarketOpen()
		if !status.MarketOpen {
			next := engineProvider.NextMarketOpen()
			status.NextOpen = &next
		}
		for _, sc := range engineProvider.Symbols() {
			status.Symbols = append(status.Symbols, sc.Name)
		}
	}
	if ledgerProvider != nil {
		status.OpenPositions = ledgerProvider.Count()
		status.UnrealizedPnL = ledgerProvider.TotalPnL()
	}
	if trackerProvider != nil {
		realized, _, _ := trackerProvider.Stats()
		status.RealizedPnL = realized
		status.TradingDay = trackerProvider.Day()
	}
	if exposureProvider != nil {
		status.TotalExposure, status.ExposureLimit = exposureProvider.Exposure()
	}
	return status
}

// getHealth 健康检查
func getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"version":   appVersion,
		"timestamp": utils.NowConfiguredTimezone(),
	})
}

// getVersion 版本信息
func getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    appVersion,
		"go_version": runtime.Version(),
	})
}

// getStatus 系统状态
func getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, CollectStatus())
}

// getPositions 当前持仓快照
func getPositions(c *gin.Context) {
	positions := []position.Position{}
	if ledgerProvider != nil {
		positions = ledgerProvider.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{
		"positions": positions,
		"count":     len(positions),
	})
}

// getPortfolio 组合概览：资金、当日盈亏与逐仓明细
func getPortfolio(c *gin.Context) {
	var capital float64
	maxPositions := 0
	if webCfg != nil {
		capital = webCfg.Trading.Capital
		maxPositions = webCfg.Trading.MaxPositions
	}

	var realized float64
	var wins, losses int
	day := ""
	if trackerProvider != nil {
		realized, wins, losses = trackerProvider.Stats()
		day = trackerProvider.Day()
	}

	positions := []position.Position{}
	var unrealized float64
	if ledgerProvider != nil {
		positions = ledgerProvider.Snapshot()
		unrealized = ledgerProvider.TotalPnL()
	}

	out := gin.H{
		"day":            day,
		"capital":        capital,
		"realized_pnl":   realized,
		"unrealized_pnl": unrealized,
		"equity":         capital + realized + unrealized,
		"win_count":      wins,
		"loss_count":     losses,
		"open_positions": len(positions),
		"max_positions":  maxPositions,
		"positions":      positions,
	}
	if exposureProvider != nil {
		current, limit := exposureProvider.Exposure()
		out["exposure"] = current
		out["exposure_limit"] = limit
		if limit > 0 {
			out["exposure_utilization"] = current / limit
		}
	}
	c.JSON(http.StatusOK, out)
}
