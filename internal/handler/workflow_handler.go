package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/service"
)

// WorkflowHandler 工作流与模板处理器
type WorkflowHandler struct {
	svc *service.Services
}

// NewWorkflowHandler 创建工作流处理器
func NewWorkflowHandler(svc *service.Services) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// ListWorkflows GET /api/workflows
func (h *WorkflowHandler) ListWorkflows(c *gin.Context) {
	workflows, err := h.svc.Chat.ListWorkflows(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, workflows)
}

// ListTemplates GET /api/templates
func (h *WorkflowHandler) ListTemplates(c *gin.Context) {
	templates, err := h.svc.Chat.ListTemplates(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	if templates == nil {
		templates = []*model.Template{}
	}
	Success(c, templates)
}
