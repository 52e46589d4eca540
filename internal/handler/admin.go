package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hust-soict/cas-restclient/internal/middleware"
)

// AdminHandler 管理员演示端点
// 角色控制由路由组上的中间件完成，处理器只消费绑定好的认证主体
type AdminHandler struct{}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler() *AdminHandler {
	return &AdminHandler{}
}

// Users 管理员用户列表
// GET /api/admin/users
func (h *AdminHandler) Users(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"message":     "Admin-only content: User list",
		"user":        identity.Username,
		"authorities": identity.Authorities,
		"data":        "This is sensitive admin data",
	})
}

// Reports 管理员报表
// GET /api/admin/reports
func (h *AdminHandler) Reports(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	c.JSON(http.StatusOK, gin.H{
		"message": "Admin reports",
		"user":    identity.Username,
		"reports": []string{"Financial Report", "User Activity", "System Health"},
	})
}
