package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"intradesk/logger"
)

// 单用户系统，登录账号固定
const authUsername = "admin"

var passwordManager *PasswordManager

// SetPasswordManager 注入密码管理器
func SetPasswordManager(pm *PasswordManager) {
	passwordManager = pm
}

type loginRequest struct {
	Password string `json:"password"`
}

// setupPassword 首次设置密码并自动登录。
// 已设置过密码后此接口关闭，改密码必须走认证后的修改接口。
func setupPassword(c *gin.Context) {
	if passwordManager == nil {
		respondError(c, http.StatusServiceUnavailable, "error.password_manager")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}
	if len(req.Password) < 6 {
		respondError(c, http.StatusBadRequest, "error.password_too_short")
		return
	}

	hasPassword, err := passwordManager.HasPassword(authUsername)
	if err != nil {
		logger.Error("❌ 查询密码状态失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.password_manager")
		return
	}
	if hasPassword {
		respondError(c, http.StatusForbidden, "error.password_already_set")
		return
	}

	if err := passwordManager.SetPassword(authUsername, req.Password); err != nil {
		logger.Error("❌ 保存密码失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.password_manager")
		return
	}

	// 首次设置后直接建会话，省一次登录
	if sm := GetSessionManager(); sm != nil {
		if session, err := sm.CreateSession(authUsername, c.ClientIP(), c.Request.UserAgent()); err == nil {
			sm.SetSessionCookie(c.Writer, session.SessionID)
		}
	}

	logger.Info("🔐 初始密码已设置，来源 %s", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"message": T(c, "password.set_success")})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// changePassword 修改密码，除会话认证外还要验证当前密码
func changePassword(c *gin.Context) {
	if passwordManager == nil {
		respondError(c, http.StatusServiceUnavailable, "error.password_manager")
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.CurrentPassword == "" {
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}
	if len(req.NewPassword) < 6 {
		respondError(c, http.StatusBadRequest, "error.password_too_short")
		return
	}

	ok, err := passwordManager.VerifyPassword(authUsername, req.CurrentPassword)
	if err != nil {
		logger.Error("❌ 验证密码失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.password_manager")
		return
	}
	if !ok {
		logger.Warn("⚠️ 修改密码时当前密码错误，来源 %s", c.ClientIP())
		respondError(c, http.StatusUnauthorized, "error.wrong_password")
		return
	}

	if err := passwordManager.SetPassword(authUsername, req.NewPassword); err != nil {
		logger.Error("❌ 保存密码失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.password_manager")
		return
	}

	logger.Info("🔐 用户 %s 修改密码成功", authUsername)
	c.JSON(http.StatusOK, gin.H{"message": T(c, "password.changed")})
}

// login 密码登录，成功后签发会话 Cookie
func login(c *gin.Context) {
	if passwordManager == nil {
		respondError(c, http.StatusServiceUnavailable, "error.password_manager")
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		respondError(c, http.StatusBadRequest, "error.invalid_request")
		return
	}

	hasPassword, err := passwordManager.HasPassword(authUsername)
	if err != nil {
		logger.Error("❌ 查询密码状态失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.password_manager")
		return
	}
	if !hasPassword {
		respondError(c, http.StatusForbidden, "error.password_not_set")
		return
	}

	ok, err := passwordManager.VerifyPassword(authUsername, req.Password)
	if err != nil || !ok {
		logger.Warn("⚠️ 登录失败，来源 %s", c.ClientIP())
		respondError(c, http.StatusUnauthorized, "error.wrong_password")
		return
	}

	sm := GetSessionManager()
	if sm == nil {
		respondError(c, http.StatusInternalServerError, "error.session_manager")
		return
	}
	session, err := sm.CreateSession(authUsername, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		logger.Error("❌ 创建会话失败: %v", err)
		respondError(c, http.StatusInternalServerError, "error.session_manager")
		return
	}
	sm.SetSessionCookie(c.Writer, session.SessionID)

	logger.Info("🔐 用户 %s 登录成功，来源 %s", authUsername, c.ClientIP())
	c.JSON(http.StatusOK, gin.H{
		"message":    T(c, "login.success"),
		"username":   authUsername,
		"expires_at": session.ExpiresAt,
	})
}

// logout 销毁会话并清除 Cookie
func logout(c *gin.Context) {
	sm := GetSessionManager()
	if sm != nil {
		if session, ok := sm.GetSessionFromRequest(c.Request); ok && session != nil {
			sm.DeleteSession(session.SessionID)
		}
		sm.ClearSessionCookie(c.Writer)
	}
	c.JSON(http.StatusOK, gin.H{"message": T(c, "logout.success")})
}

// getSessionInfo 会话状态，前端据此决定进首次设置、登录还是主界面
func getSessionInfo(c *gin.Context) {
	hasPassword := false
	if passwordManager != nil {
		hasPassword, _ = passwordManager.HasPassword(authUsername)
	}

	// API Key 视作已认证的程序化访问
	if apiKeyMatches(c) {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"username":      "api",
			"has_password":  hasPassword,
		})
		return
	}

	sm := GetSessionManager()
	if sm == nil {
		respondError(c, http.StatusInternalServerError, "error.session_manager")
		return
	}

	session, ok := sm.GetSessionFromRequest(c.Request)
	if !ok || session == nil {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"has_password":  hasPassword,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      session.Username,
		"has_password":  hasPassword,
		"created_at":    session.CreatedAt,
		"expires_at":    session.ExpiresAt,
	})
}
