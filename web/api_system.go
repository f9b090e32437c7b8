package web

import (
	"net/http"
	"os"
	"runtime"

	"github.com/gin-gonic/gin"
	"intradesk/monitor"
)

// WatchdogProvider 系统资源采样提供者
type WatchdogProvider interface {
	Latest() *monitor.SystemMetrics
}

var watchdogProvider WatchdogProvider

// SetWatchdog 注入系统看门狗
func SetWatchdog(p WatchdogProvider) {
	watchdogProvider = p
}

// getSystemStatus 进程资源用量与 Go 运行时统计
func getSystemStatus(c *gin.Context) {
	out := gin.H{
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"runtime":    monitor.RuntimeStats(),
	}

	if watchdogProvider != nil {
		if latest := watchdogProvider.Latest(); latest != nil {
			out["system"] = latest
		}
	}

	c.JSON(http.StatusOK, out)
}
