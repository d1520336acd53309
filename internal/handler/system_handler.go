package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/service"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
	db  Pinger
	log *zap.Logger
}

// NewSystemHandler 创建系统处理器，db 可为 nil
func NewSystemHandler(svc *service.Services, db Pinger, log *zap.Logger) *SystemHandler {
	return &SystemHandler{svc: svc, db: db, log: log}
}

// UserCountResponse 在线与总用户数
type UserCountResponse struct {
	ActiveUsers int   `json:"active_users"`
	TotalUsers  int64 `json:"total_users"`
}

// UserCount GET /api/user_count
func (h *SystemHandler) UserCount(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.svc.Auth.CountUsers(ctx)
	if err != nil {
		h.log.Error("failed to count users", zap.Error(err))
		Error(c, err)
		return
	}

	active, err := h.svc.Presence.Count(ctx)
	if err != nil {
		h.log.Error("failed to count active users", zap.Error(err))
		Error(c, err)
		return
	}

	Success(c, UserCountResponse{ActiveUsers: active, TotalUsers: total})
}

// Health GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn("database ping failed", zap.Error(err))
			status["database"] = "unavailable"
		} else {
			status["database"] = "ok"
		}
	}
	Success(c, status)
}
