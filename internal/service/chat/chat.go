// Package chat 管理对话、消息提交与工作流推导
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
)

var (
	// ErrNotFound 对话不存在、不属于当前用户或无法推导工作流
	ErrNotFound = errors.New("chat not found")
	// ErrForbidden 对话属于其他用户
	ErrForbidden = errors.New("chat belongs to another user")
	// ErrWorkflowNotFound 工作流不存在
	ErrWorkflowNotFound = errors.New("workflow not found")
)

// Service 对话服务
type Service struct {
	chats        repository.ChatStore
	workflows    repository.WorkflowStore
	templates    repository.TemplateStore
	defaultTitle string

	now func() time.Time
}

// NewService 创建对话服务
func NewService(chats repository.ChatStore, workflows repository.WorkflowStore, templates repository.TemplateStore, defaultTitle string) *Service {
	return &Service{
		chats:        chats,
		workflows:    workflows,
		templates:    templates,
		defaultTitle: defaultTitle,
		now:          time.Now,
	}
}

// PromptRequest 提交消息请求，支持 JSON 与表单
type PromptRequest struct {
	ChatID     string `json:"chat_id" form:"chat_id"`
	WorkflowID string `json:"workflow_id" form:"workflow_id" binding:"required"`
	Content    string `json:"content" form:"content" binding:"required"`
}

// PromptResult 提交结果
type PromptResult struct {
	ChatID     string    `json:"chat_id"`
	Title      string    `json:"title"`
	MessageID  string    `json:"message_id"`
	DatePosted time.Time `json:"date_posted"`
}

// SubmitPrompt 保存用户消息，对话不存在时新建
func (s *Service) SubmitPrompt(ctx context.Context, userID string, req *PromptRequest) (*PromptResult, error) {
	workflow, err := s.workflows.GetByID(ctx, req.WorkflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	msg := &model.Message{
		ID:         uuid.New().String(),
		Role:       model.RoleUser,
		Content:    req.Content,
		WorkflowID: workflow.ID,
		DatePosted: s.now(),
	}

	if req.ChatID != "" {
		chat, err := s.chats.GetChatByID(ctx, req.ChatID)
		switch {
		case err == nil:
			if chat.UserID != userID {
				return nil, ErrForbidden
			}
			msg.ChatID = chat.ID
			if err := s.chats.CreateMessage(ctx, msg); err != nil {
				return nil, fmt.Errorf("failed to create message: %w", err)
			}
			return newPromptResult(chat, msg), nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to get chat: %w", err)
		}
	}

	chat := &model.Chat{
		ID:     uuid.New().String(),
		Title:  s.defaultTitle,
		UserID: userID,
	}
	msg.ChatID = chat.ID
	if err := s.chats.CreateChatWithMessage(ctx, chat, msg); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return newPromptResult(chat, msg), nil
}

func newPromptResult(chat *model.Chat, msg *model.Message) *PromptResult {
	return &PromptResult{
		ChatID:     chat.ID,
		Title:      chat.Title,
		MessageID:  msg.ID,
		DatePosted: msg.DatePosted,
	}
}

// GetChat 获取当前用户的对话及消息
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}
	if chat.UserID != userID {
		return nil, ErrNotFound
	}
	return chat, nil
}

// ChatDetail 对话详情
// WorkflowID 为最近一条消息的工作流，无消息时为空
type ChatDetail struct {
	*model.Chat
	Messages   []model.Message `json:"messages"`
	WorkflowID string          `json:"workflow_id,omitempty"`
}

// GetChatDetail 获取对话详情
func (s *Service) GetChatDetail(ctx context.Context, userID, chatID string) (*ChatDetail, error) {
	chat, err := s.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	detail := &ChatDetail{Chat: chat, Messages: chat.Messages}
	if detail.Messages == nil {
		detail.Messages = []model.Message{}
	}
	latest, err := s.chats.GetLatestMessage(ctx, chat.ID)
	switch {
	case err == nil:
		detail.WorkflowID = latest.WorkflowID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	return detail, nil
}

// ListChats 列出当前用户的对话
func (s *Service) ListChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	chats, err := s.chats.ListChatsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// DeleteChat 删除当前用户的对话及其消息
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	if err := s.chats.DeleteChat(ctx, chatID); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// WorkflowForChat 推导对话当前工作流：最近一条消息所用的工作流
func (s *Service) WorkflowForChat(ctx context.Context, chatID string) (*model.Workflow, error) {
	latest, err := s.chats.GetLatestMessage(ctx, chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}
	if latest.WorkflowID == "" {
		return nil, ErrNotFound
	}

	workflow, err := s.workflows.GetByID(ctx, latest.WorkflowID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return workflow, nil
}

// AppendMessage 追加消息
func (s *Service) AppendMessage(ctx context.Context, msg *model.Message) error {
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// UpdateTitle 更新对话标题
func (s *Service) UpdateTitle(ctx context.Context, chatID, title string) error {
	if err := s.chats.UpdateTitle(ctx, chatID, title); err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return nil
}

// WorkflowSummary 工作流列表项
type WorkflowSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// ListWorkflows 列出可选工作流，不含地址与凭证
func (s *Service) ListWorkflows(ctx context.Context) ([]WorkflowSummary, error) {
	workflows, err := s.workflows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	out := make([]WorkflowSummary, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, WorkflowSummary{ID: w.ID, Title: w.Title, Type: model.WorkflowTypeDirect})
	}
	return out, nil
}

// ListTemplates 列出模板
func (s *Service) ListTemplates(ctx context.Context) ([]*model.Template, error) {
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}
