package handler

import (
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth     *AuthHandler
	Chat     *ChatHandler
	Stream   *StreamHandler
	Workflow *WorkflowHandler
	System   *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db Pinger, log *zap.Logger) *Handlers {
	return &Handlers{
		Auth:     NewAuthHandler(svc, log.Named("auth")),
		Chat:     NewChatHandler(svc, log.Named("chat")),
		Stream:   NewStreamHandler(svc, log.Named("stream")),
		Workflow: NewWorkflowHandler(svc),
		System:   NewSystemHandler(svc, db, log.Named("system")),
	}
}
