package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/database"
	"intradesk/logger"
)

// EventProvider 事件查询提供者
type EventProvider interface {
	GetEvents(ctx context.Context, filter *database.EventFilter) ([]*database.EventRecord, error)
	GetEventStats(ctx context.Context) (*database.EventStats, error)
}

var eventProvider EventProvider

// SetEventProvider 注入事件查询源
func SetEventProvider(p EventProvider) {
	eventProvider = p
}

// getEvents 事件列表，支持按类型/级别/来源/标的与时间范围筛选
func getEvents(c *gin.Context) {
	if eventProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.database_unavailable")
		return
	}

	filter := &database.EventFilter{
		Type:     c.Query("type"),
		Severity: c.Query("severity"),
		Source:   c.Query("source"),
		Broker:   c.Query("broker"),
		Symbol:   c.Query("symbol"),
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

	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	events, err := eventProvider.GetEvents(ctx, filter)
	if err != nil {
		logger.Error("❌ 查询事件失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}

	out := gin.H{
		"events": events,
		"count":  len(events),
	}

	// 附带统计摘要，便于面板一次取全
	if c.Query("with_stats") == "true" {
		if stats, err := eventProvider.GetEventStats(ctx); err == nil {
			out["stats"] = stats
		}
	}

	c.JSON(http.StatusOK, out)
}
