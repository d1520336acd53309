package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/middleware"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

// ChatHandler 对话处理器
type ChatHandler struct {
	svc *service.Services
	log *zap.Logger
}

// NewChatHandler 创建对话处理器
func NewChatHandler(svc *service.Services, log *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

// ListChats 列出当前用户的对话
// GET /api/chats
func (h *ChatHandler) ListChats(c *gin.Context) {
	chats, err := h.svc.Chat.ListChats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if chats == nil {
		chats = []*model.Chat{}
	}
	Success(c, chats)
}

// GetChat 对话详情，包含按时间排序的消息与推导出的工作流
// GET /api/chats/:id
func (h *ChatHandler) GetChat(c *gin.Context) {
	detail, err := h.svc.Chat.GetChatDetail(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, detail)
}

// DeleteChat 删除对话及其消息
// DELETE /api/chats/:id
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	if err := h.svc.Chat.DeleteChat(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	Detail(c, "Chat deleted successfully.")
}

// Prompt 提交用户消息，支持 JSON 与表单
// POST /api/prompt
func (h *ChatHandler) Prompt(c *gin.Context) {
	var req chat.PromptRequest
	if err := c.ShouldBind(&req); err != nil {
		BadRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	result, err := h.svc.Chat.SubmitPrompt(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		h.fail(c, err)
		return
	}
	Success(c, result)
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	if !isBadRequest(err) && !isForbidden(err) && !isNotFound(err) {
		h.log.Error("chat request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	Error(c, err)
}
