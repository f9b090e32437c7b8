package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/database"
	"intradesk/logger"
	"intradesk/storage"
)

// ArchiveProvider 信号/订单归档查询提供者
type ArchiveProvider interface {
	QuerySignals(limit, offset int, strategy, symbol string) ([]*storage.SignalRecord, error)
	QueryOrders(limit, offset int, status string) ([]*storage.OrderRecord, error)
}

// ReportProvider 平仓成交与日统计查询提供者
type ReportProvider interface {
	GetTrades(ctx context.Context, filter *database.TradeFilter) ([]*database.Trade, error)
	GetDailyStats(ctx context.Context, filter *database.DailyStatFilter) ([]*database.DailyStat, error)
}

var (
	archiveProvider ArchiveProvider
	reportProvider  ReportProvider
)

// SetArchiveProvider 注入归档存储
func SetArchiveProvider(p ArchiveProvider) {
	archiveProvider = p
}

// SetReportProvider 注入报表数据库
func SetReportProvider(p ReportProvider) {
	reportProvider = p
}

// pageParams 解析 limit/offset，limit 限制在 [1,1000]
func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// getSignals 近期策略信号（含被风控拒绝的）
func getSignals(c *gin.Context) {
	if archiveProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.storage_unavailable")
		return
	}

	limit, offset := pageParams(c)
	signals, err := archiveProvider.QuerySignals(limit, offset, c.Query("strategy"), c.Query("symbol"))
	if err != nil {
		logger.Error("❌ 查询信号归档失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"signals": signals,
		"count":   len(signals),
	})
}

// getOrders 近期订单（含提交失败的）
func getOrders(c *gin.Context) {
	if archiveProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.storage_unavailable")
		return
	}

	limit, offset := pageParams(c)
	orders, err := archiveProvider.QueryOrders(limit, offset, c.Query("status"))
	if err != nil {
		logger.Error("❌ 查询订单归档失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// getTrades 已平仓成交与按日盈亏汇总
func getTrades(c *gin.Context) {
	if reportProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.database_unavailable")
		return
	}

	limit, offset := pageParams(c)
	filter := &database.TradeFilter{
		Broker:   c.Query("broker"),
		Symbol:   c.Query("symbol"),
		Strategy: c.Query("strategy"),
		Limit:    limit,
		Offset:   offset,
	}

	if startStr := c.Query("start_time"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "error.invalid_start_time")
			return
		}
		filter.StartTime = &t
	}
	if endStr := c.Query("end_time"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "error.invalid_end_time")
			return
		}
		filter.EndTime = &t
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	trades, err := reportProvider.GetTrades(ctx, filter)
	if err != nil {
		logger.Error("❌ 查询成交记录失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}
	dailyStats, err := reportProvider.GetDailyStats(ctx, &database.DailyStatFilter{Limit: days})
	if err != nil {
		logger.Warn("⚠️ 查询日统计失败: %v", err)
		dailyStats = nil
	}

	var totalPnL float64
	for _, t := range trades {
		totalPnL += t.PnL
	}

	c.JSON(http.StatusOK, gin.H{
		"trades":      trades,
		"count":       len(trades),
		"total_pnl":   totalPnL,
		"daily_stats": dailyStats,
	})
}
