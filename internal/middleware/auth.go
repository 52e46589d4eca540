// Package middleware 中间件
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hust-soict/cas-restclient/internal/casclient"
	"github.com/hust-soict/cas-restclient/internal/model"
	"github.com/hust-soict/cas-restclient/internal/session"
	"go.uber.org/zap"
)

// Cookie 名称
const (
	// SessionCookie 会话 cookie
	SessionCookie = "JSESSIONID"
	// CASTGCCookie CAS TGT cookie
	CASTGCCookie = "CASTGC"
)

// identityKey 请求上下文中认证主体的键
const identityKey = "identity"

// DefaultRole 缺省角色，CAS 未返回 groupMembership 时使用
const DefaultRole = "USER"

// 无需认证的路径前缀
var bypassPrefixes = []string{"/api/auth/login", "/public/"}

// AuthRequired 认证中间件
// 按顺序尝试：本地会话（快路径，零网络请求）→ CASTGC cookie 经 CAS
// 重新校验（最多两次 CAS 往返）→ 401 拒绝
func AuthRequired(store session.Store, cas *casclient.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 登录与公开路径直接放行
		for _, prefix := range bypassPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		// 快路径：本地会话命中时不访问 CAS，也不写会话表
		if sessionID, err := c.Cookie(SessionCookie); err == nil && sessionID != "" {
			if sess := store.Get(sessionID); sess != nil && sess.Username != "" && sess.Role != "" {
				bindIdentity(c, sess.Username, sess.Role)
				logger.Info("会话认证通过", zap.String("username", sess.Username))
				c.Next()
				return
			}
		}

		// CAS 路径：持 CASTGC cookie 重新换票校验
		if castgc, err := c.Cookie(CASTGCCookie); err == nil && castgc != "" {
			if identity := revalidate(c, store, cas, castgc); identity != nil {
				bindIdentityValue(c, identity)
				logger.Info("CAS 认证通过并创建会话", zap.String("username", identity.Username))
				c.Next()
				return
			}
		}

		// 无法确定身份，拒绝请求
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authentication required",
		})
	}
}

// revalidate 用 TGT 换取并校验服务票据，成功时创建新会话并种下会话 cookie
// 凭据省略：有效 TGT 足以换票
func revalidate(c *gin.Context, store session.Store, cas *casclient.Client, castgc string) *model.Identity {
	ctx := c.Request.Context()

	serviceTicket, err := cas.RequestServiceTicket(ctx, castgc, cas.ServiceURL(), "", "")
	if err != nil {
		logger.Warn("CAS 重新校验失败：无法换取服务票据", zap.Error(err))
		return nil
	}

	detail := cas.ValidateServiceTicket(ctx, serviceTicket, cas.ServiceURL())
	if !detail.Success {
		logger.Warn("CAS 重新校验失败：服务票据校验未通过")
		return nil
	}

	role := detail.Role
	if role == "" {
		role = DefaultRole
	}

	sessionID := store.Create(detail.Username, role, castgc)
	c.SetCookie(SessionCookie, sessionID, 0, "/", "", false, true)

	return model.NewIdentity(detail.Username, role)
}

// bindIdentity 将认证主体绑定到请求上下文
func bindIdentity(c *gin.Context, username, role string) {
	bindIdentityValue(c, model.NewIdentity(username, role))
}

func bindIdentityValue(c *gin.Context, identity *model.Identity) {
	c.Set(identityKey, identity)
	c.Set("username", identity.Username)
	c.Set("role", identity.Role)
}

// GetIdentity 从请求上下文取出认证主体
func GetIdentity(c *gin.Context) (*model.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*model.Identity)
	return identity, ok
}
