package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hust-soict/cas-restclient/internal/middleware"
)

// UserHandler 普通用户演示端点
type UserHandler struct{}

// NewUserHandler 创建用户处理器
func NewUserHandler() *UserHandler {
	return &UserHandler{}
}

// Profile 用户信息
// GET /api/user/profile
func (h *UserHandler) Profile(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"message":     "User profile",
		"username":    identity.Username,
		"authorities": identity.Authorities,
		"profile": gin.H{
			"email":  identity.Username + "@example.com",
			"status": "active",
		},
	})
}

// Dashboard 用户工作台
// GET /api/user/dashboard
func (h *UserHandler) Dashboard(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Dashboard content",
		"user":    identity.Username,
		"widgets": []string{"Recent Activity", "Notifications", "Quick Actions"},
	})
}
