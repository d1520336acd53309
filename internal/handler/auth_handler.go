package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/auth"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
	log *zap.Logger
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, log: log}
}

// Login 用户登录，成功后写入会话 Cookie
// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		Unauthorized(c, "Unauthorized")
		return
	}

	session, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		if isUnauthorized(err) {
			Unauthorized(c, "Unauthorized")
			return
		}
		h.log.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		InternalServerError(c, "internal server error")
		return
	}

	h.setSessionCookie(c, session.Token, int(h.svc.Config.Auth.SessionDuration().Seconds()))
	Detail(c, "Logged in successfully.")
}

// Logout 撤销当前会话并清除 Cookie
// GET /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.svc.Auth.Logout(ctx, middleware.GetSessionToken(c)); err != nil {
		Error(c, err)
		return
	}
	if err := h.svc.Presence.Remove(ctx, middleware.GetUserID(c)); err != nil {
		h.log.Warn("failed to clear presence", zap.Error(err))
	}

	h.setSessionCookie(c, "", -1)
	Detail(c, "Logged out successfully.")
}

// ChangePassword 修改当前用户密码
// POST /api/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	if err := h.svc.Auth.ChangePassword(c.Request.Context(), middleware.GetUserID(c), req.Password); err != nil {
		Error(c, err)
		return
	}

	Detail(c, "Password changed successfully.")
}

// Me 当前用户信息
// GET /api/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetCurrentUser(c)
	if !ok {
		Unauthorized(c, "Unauthorized")
		return
	}
	Success(c, user.ToUserInfo())
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.svc.Config.Auth.CookieName, value, maxAge, "/", "", c.Request.TLS != nil, true)
}
