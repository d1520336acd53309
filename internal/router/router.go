package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/handler"
	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/service"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services, log *zap.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.LoggingMiddleware(log.Named("http")))
	r.Use(middleware.CORSMiddleware(svc.Config.Server.AllowedOrigins))

	// 健康检查
	r.GET("/health", h.System.Health)

	api := r.Group("/api")
	api.POST("/login", h.Auth.Login)

	// 以下路由需要有效会话
	authed := api.Group("")
	authed.Use(middleware.RequireAuth(svc, log.Named("auth")))
	{
		authed.GET("/logout", h.Auth.Logout)
		authed.POST("/change-password", h.Auth.ChangePassword)
		authed.GET("/me", h.Auth.Me)
		authed.GET("/user_count", h.System.UserCount)

		authed.GET("/workflows", h.Workflow.ListWorkflows)
		authed.GET("/templates", h.Workflow.ListTemplates)

		authed.GET("/chats", h.Chat.ListChats)
		authed.GET("/chats/:id", h.Chat.GetChat)
		authed.DELETE("/chats/:id", h.Chat.DeleteChat)

		authed.POST("/prompt", h.Chat.Prompt)
		authed.GET("/stream/:id", h.Stream.Stream)
	}

	return r
}
