package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

var configuredAPIKey string

// SetAPIKey 设置 API Key（为空表示禁用 Key 认证）
func SetAPIKey(key string) {
	configuredAPIKey = key
}

// apiKeyMatches 常数时间比较请求头中的 API Key
func apiKeyMatches(c *gin.Context) bool {
	if configuredAPIKey == "" {
		return false
	}
	provided := c.GetHeader("X-API-Key")
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(configuredAPIKey)) == 1
}

// authMiddleware 认证中间件：会话 Cookie 或 X-API-Key 二选一
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 程序化访问走 API Key
		if apiKeyMatches(c) {
			c.Set("username", "api")
			c.Next()
			return
		}

		sm := GetSessionManager()
		if sm == nil {
			respondError(c, http.StatusInternalServerError, "error.session_manager")
			c.Abort()
			return
		}

		session, exists := sm.GetSessionFromRequest(c.Request)
		if !exists || session == nil {
			respondError(c, http.StatusUnauthorized, "error.not_logged_in")
			c.Abort()
			return
		}

		// 将会话信息存入上下文，供后续处理使用
		c.Set("session", session)
		c.Set("username", session.Username)

		c.Next()
	}
}
