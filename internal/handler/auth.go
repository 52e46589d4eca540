// Package handler HTTP 处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hust-soict/cas-restclient/internal/casclient"
	"github.com/hust-soict/cas-restclient/internal/middleware"
	"github.com/hust-soict/cas-restclient/internal/session"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	cas    *casclient.Client
	store  session.Store
	logger *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(cas *casclient.Client, store session.Store, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{cas: cas, store: store, logger: logger}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ServiceTicket string `json:"serviceTicket,omitempty"`
}

// AuthenticationResponse 重认证响应
type AuthenticationResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ServiceTicket string `json:"serviceTicket,omitempty"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

// Login 用户登录
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: "Username and password are required",
		})
		return
	}

	h.logger.Info("登录请求", zap.String("username", req.Username))

	result := h.cas.PerformLogin(c.Request.Context(), req.Username, req.Password)
	if !result.Success {
		h.logger.Warn("登录失败",
			zap.String("username", req.Username),
			zap.String("reason", result.Message),
		)
		c.JSON(http.StatusBadRequest, LoginResponse{
			Success: false,
			Message: result.Message,
		})
		return
	}

	// CASTGC cookie 按协议字面量原样写入响应头
	c.Header("Set-Cookie", result.CastgcCookie)

	// 创建本地会话，角色缺省为 USER
	role := result.UserDetail.Role
	if role == "" {
		role = middleware.DefaultRole
	}
	tgt := casclient.TGTFromCookie(result.CastgcCookie)
	sessionID := h.store.Create(result.UserDetail.Username, role, tgt)
	c.SetCookie(middleware.SessionCookie, sessionID, 0, "/", "", false, true)

	h.logger.Info("登录成功",
		zap.String("username", result.UserDetail.Username),
		zap.String("role", role),
	)

	c.JSON(http.StatusOK, LoginResponse{
		Success:       true,
		Message:       result.Message,
		ServiceTicket: result.ServiceTicket,
	})
}

// Authen 基于 CASTGC cookie 的重认证
// POST /api/auth/authen
func (h *AuthHandler) Authen(c *gin.Context) {
	castgc, err := c.Cookie(middleware.CASTGCCookie)
	if err != nil || castgc == "" {
		c.JSON(http.StatusNotFound, AuthenticationResponse{
			Success: false,
			Message: "CASTGC cookie not found",
		})
		return
	}

	result := h.cas.PerformAuthen(c.Request.Context(), castgc)
	if !result.Success {
		c.JSON(http.StatusBadRequest, AuthenticationResponse{
			Success: false,
			Message: result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, AuthenticationResponse{
		Success:       true,
		Message:       result.Message,
		ServiceTicket: result.ServiceTicket,
		Username:      result.UserDetail.Username,
		Role:          result.UserDetail.Role,
	})
}

// Logout 登出
// POST /api/auth/logout
// 尽力而为：无论会话是否存在都返回成功并清除两个 cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	if sessionID, err := c.Cookie(middleware.SessionCookie); err == nil && sessionID != "" {
		h.store.Invalidate(sessionID)
	}

	// Max-Age=0 使浏览器立即丢弃
	c.SetCookie(middleware.CASTGCCookie, "", -1, "/", "", false, true)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Logout successful",
		"action":  "redirect_to_login",
	})
}

// Health 健康检查
// GET /api/auth/health
func (h *AuthHandler) Health(c *gin.Context) {
	c.String(http.StatusOK, "CAS Client is running")
}

// Config 配置诊断
// GET /api/auth/config
func (h *AuthHandler) Config(c *gin.Context) {
	c.String(http.StatusOK, "CAS Server URL: %s, CAS Client Service URL: %s",
		h.cas.ServerURL(), h.cas.ServiceURL())
}

// TestSSL TLS 连通性诊断
// GET /api/auth/test-ssl
func (h *AuthHandler) TestSSL(c *gin.Context) {
	testURL := h.cas.ServerURL() + "login"
	h.logger.Info("测试 CAS TLS 连接", zap.String("url", testURL))

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, testURL, nil)
	if err != nil {
		c.String(http.StatusInternalServerError, "SSL connection failed: %v", err)
		return
	}

	resp, err := h.cas.HTTPClient().Do(req)
	if err != nil {
		h.logger.Error("TLS 连接测试失败", zap.Error(err))
		c.String(http.StatusInternalServerError, "SSL connection failed: %v", err)
		return
	}
	defer resp.Body.Close()

	c.String(http.StatusOK, "SSL connection successful. Status: %s", resp.Status)
}
