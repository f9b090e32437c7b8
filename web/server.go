package web

import (
	"net/http"
	"net/http/pprof"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"intradesk/config"
)

// respondError 统一错误响应，message 为 i18n key 时按请求语言翻译
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": T(c, message)})
}

// SetupRoutes 设置路由
func SetupRoutes(r *gin.Engine, cfg *config.Config) {
	// 健康检查（无认证，供探活使用）
	r.GET("/health", getHealth)

	// Prometheus metrics 端点（不需要认证，供 Prometheus 抓取）
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// pprof 性能分析端点（默认关闭，按配置启用）
	if cfg.Web.Pprof.Enabled {
		pprofGroup := r.Group("/debug/pprof")
		if cfg.Web.Pprof.RequireAuth {
			pprofGroup.Use(authMiddleware())
		}
		if len(cfg.Web.Pprof.AllowedIPs) > 0 {
			pprofGroup.Use(ipAllowlistMiddleware(cfg.Web.Pprof.AllowedIPs))
		}
		{
			pprofGroup.GET("/", gin.WrapF(pprof.Index))
			pprofGroup.GET("/cmdline", gin.WrapF(pprof.Cmdline))
			pprofGroup.GET("/profile", gin.WrapF(pprof.Profile))
			pprofGroup.POST("/symbol", gin.WrapF(pprof.Symbol))
			pprofGroup.GET("/symbol", gin.WrapF(pprof.Symbol))
			pprofGroup.GET("/trace", gin.WrapF(pprof.Trace))
			pprofGroup.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
			pprofGroup.GET("/block", gin.WrapH(pprof.Handler("block")))
			pprofGroup.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
			pprofGroup.GET("/heap", gin.WrapH(pprof.Handler("heap")))
			pprofGroup.GET("/mutex", gin.WrapH(pprof.Handler("mutex")))
			pprofGroup.GET("/threadcreate", gin.WrapH(pprof.Handler("threadcreate")))
		}
	}

	// Webhook 路由（不需要认证，签名在 handler 内校验）
	webhook := r.Group("/webhook")
	{
		webhook.POST("/tradingview", handleTradingViewWebhook)
		webhook.POST("/custom", handleCustomWebhook)
	}

	// API 路由
	api := r.Group("/api")
	{
		// 公开的认证路由（首次设置密码在 handler 内限定为未设置过时可用）
		auth := api.Group("/auth")
		{
			auth.POST("/login", login)
			auth.POST("/logout", logout)
			auth.GET("/session", getSessionInfo)
			auth.POST("/password/set", setupPassword)
		}

		// 版本号（不需要认证）
		api.GET("/version", getVersion)

		// 需要认证的业务API
		protected := api.Group("")
		protected.Use(authMiddleware())
		{
			protected.POST("/auth/password/change", changePassword)
			protected.GET("/status", getStatus)
			protected.GET("/positions", getPositions)
			protected.GET("/portfolio", getPortfolio)
			protected.GET("/signals", getSignals)
			protected.GET("/trades", getTrades)
			protected.GET("/orders", getOrders)

			// 行情与分析
			protected.GET("/market/overview", getMarketOverview)
			protected.GET("/market/quote", getMarketQuote)
			protected.GET("/analysis", getAnalysis)
			protected.GET("/price", getLivePrice)

			// 预警管理
			protected.GET("/alerts", getAlerts)
			protected.POST("/alerts", setupAlert)
			protected.DELETE("/alerts/:id", cancelAlert)

			// 风控与事件
			protected.GET("/risk", getRiskStatus)
			protected.GET("/events", getEvents)

			// 系统与配置
			protected.GET("/system", getSystemStatus)
			protected.GET("/config", getConfigHandler)

			// 日志API
			protected.GET("/logs", getLogs)
			protected.GET("/logs/stats", getLogStats)
		}
	}

	// WebSocket 路由
	r.GET("/ws", handleWebSocket)

	// 未匹配的路由
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// ipAllowlistMiddleware 仅放行白名单内的客户端 IP
func ipAllowlistMiddleware(allowed []string) gin.HandlerFunc {
	allowedSet := make(map[string]bool, len(allowed))
	for _, ip := range allowed {
		allowedSet[ip] = true
	}
	return func(c *gin.Context) {
		if !allowedSet[c.ClientIP()] {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
