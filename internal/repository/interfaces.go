// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import (
	"context"

	"github.com/ashwinyue/next-chat/internal/model"
)

// ChatStore 对话与消息数据访问接口
type ChatStore interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error
	GetChatByID(ctx context.Context, id string) (*model.Chat, error)
	ListChatsByUser(ctx context.Context, userID string) ([]*model.Chat, error)
	UpdateTitle(ctx context.Context, id, title string) error
	DeleteChat(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, msg *model.Message) error
	GetLatestMessage(ctx context.Context, chatID string) (*model.Message, error)
}

// UserStore 用户与令牌数据访问接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
	CountUsers(ctx context.Context) (int64, error)

	CreateToken(ctx context.Context, token *model.AuthToken) error
	GetTokenByValue(ctx context.Context, tokenValue string) (*model.AuthToken, error)
	RevokeToken(ctx context.Context, tokenID string) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}

// WorkflowStore 工作流数据访问接口
type WorkflowStore interface {
	Create(ctx context.Context, w *model.Workflow) error
	GetByID(ctx context.Context, id string) (*model.Workflow, error)
	GetByTitle(ctx context.Context, title string) (*model.Workflow, error)
	List(ctx context.Context) ([]*model.Workflow, error)
}

// TemplateStore 模板数据访问接口
type TemplateStore interface {
	Create(ctx context.Context, t *model.Template) error
	GetByTitle(ctx context.Context, title string) (*model.Template, error)
	List(ctx context.Context) ([]*model.Template, error)
}

var (
	_ ChatStore     = (*ChatRepository)(nil)
	_ UserStore     = (*AuthRepository)(nil)
	_ WorkflowStore = (*WorkflowRepository)(nil)
	_ TemplateStore = (*TemplateRepository)(nil)
)
