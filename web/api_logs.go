package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/logger"
	"intradesk/storage"
)

// getLogs 历史日志查询
func getLogs(c *gin.Context) {
	ls := currentLogStorage()
	if ls == nil {
		respondError(c, http.StatusServiceUnavailable, "error.log_store_unavailable")
		return
	}

	limit, offset := pageParams(c)
	params := storage.LogQueryParams{
		Level:   c.Query("level"),
		Keyword: c.Query("keyword"),
		Limit:   limit,
		Offset:  offset,
	}

	if startStr := c.Query("start_time"); startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "error.invalid_start_time")
			return
		}
		params.StartTime = t
	}
	if endStr := c.Query("end_time"); endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "error.invalid_end_time")
			return
		}
		params.EndTime = t
	}

	logs, total, err := ls.GetLogs(params)
	if err != nil {
		logger.Error("❌ 查询日志失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": total,
		"count": len(logs),
	})
}

// getLogStats 日志分级统计
func getLogStats(c *gin.Context) {
	ls := currentLogStorage()
	if ls == nil {
		respondError(c, http.StatusServiceUnavailable, "error.log_store_unavailable")
		return
	}

	stats, err := ls.GetLogStats()
	if err != nil {
		logger.Error("❌ 查询日志统计失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.query_failed")
		return
	}
	c.JSON(http.StatusOK, stats)
}
