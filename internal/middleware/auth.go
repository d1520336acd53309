package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
)

const (
	ctxKeyUser   = "user"
	ctxKeyUserID = "user_id"
	ctxKeyToken  = "session_token"
)

// RequireAuth 要求有效会话的中间件
// 令牌取自会话 Cookie 或 Authorization: Bearer，无效时返回 401
// 通过认证的请求会刷新用户的在线状态
func RequireAuth(svc *service.Services, log *zap.Logger) gin.HandlerFunc {
	cookieName := svc.Config.Auth.CookieName
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			abortUnauthorized(c, "missing session")
			return
		}

		user, err := svc.Auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortUnauthorized(c, "invalid or expired session")
			return
		}

		c.Set(ctxKeyUser, user)
		c.Set(ctxKeyUserID, user.ID)
		c.Set(ctxKeyToken, token)

		if err := svc.Presence.Touch(c.Request.Context(), user.ID); err != nil {
			log.Warn("failed to refresh presence", zap.String("user_id", user.ID), zap.Error(err))
		}

		c.Next()
	}
}

// extractToken Cookie 优先，其次 Bearer 头
func extractToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code": http.StatusUnauthorized,
		"msg":  msg,
	})
}

// GetCurrentUser 从上下文获取当前用户
func GetCurrentUser(c *gin.Context) (*model.User, bool) {
	user, exists := c.Get(ctxKeyUser)
	if !exists {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// GetSessionToken 从上下文获取本次请求使用的会话令牌
func GetSessionToken(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}
