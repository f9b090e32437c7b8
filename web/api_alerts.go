package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"intradesk/alert"
	"intradesk/logger"
)

// AlertProvider 预警引擎提供者
type AlertProvider interface {
	Setup(ctx context.Context, symbol string, kind alert.Kind, level float64, note string) (*alert.Rule, error)
	Cancel(ctx context.Context, id string) error
	Active() []alert.Rule
	History() []alert.Rule
}

var alertProvider AlertProvider

// SetAlertProvider 注入预警引擎
func SetAlertProvider(p AlertProvider) {
	alertProvider = p
}

// setupAlertRequest 创建预警请求体
type setupAlertRequest struct {
	Symbol string  `json:"symbol"`
	Kind   string  `json:"kind"`
	Level  float64 `json:"level"`
	Note   string  `json:"note"`
}

// getAlerts 存续与历史预警
func getAlerts(c *gin.Context) {
	if alertProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	active := alertProvider.Active()
	history := alertProvider.History()
	c.JSON(http.StatusOK, gin.H{
		"active":        active,
		"history":       history,
		"active_count":  len(active),
		"history_count": len(history),
	})
}

// setupAlert 创建预警规则，level 为 0 时由引擎按盘面推导
func setupAlert(c *gin.Context) {
	if alertProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	var req setupAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}
	if req.Symbol == "" || !alert.ValidKind(alert.Kind(req.Kind)) {
		respondError(c, http.StatusBadRequest, "error.invalid_alert")
		return
	}
	if webCfg != nil {
		if _, ok := webCfg.SymbolByName(req.Symbol); !ok {
			respondError(c, http.StatusBadRequest, "error.unknown_symbol")
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rule, err := alertProvider.Setup(ctx, req.Symbol, alert.Kind(req.Kind), req.Level, req.Note)
	if err != nil {
		logger.Warn("⚠️ 创建预警失败: %v", err)
		respondError(c, http.StatusBadRequest, "error.invalid_alert")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": T(c, "alert.created"),
		"alert":   rule,
	})
}

// cancelAlert 取消存续预警
func cancelAlert(c *gin.Context) {
	if alertProvider == nil {
		respondError(c, http.StatusServiceUnavailable, "error.engine_unavailable")
		return
	}

	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := alertProvider.Cancel(ctx, id); err != nil {
		respondError(c, http.StatusNotFound, "error.alert_not_found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": T(c, "alert.cancelled"),
		"id":      id,
	})
}
