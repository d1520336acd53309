package repository

import (
	"context"

	"github.com/ashwinyue/next-chat/internal/model"
	"gorm.io/gorm"
)

// ChatRepository 对话数据访问
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建对话仓库
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateChat 创建对话
func (r *ChatRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	return r.db.WithContext(ctx).Omit("Messages").Create(chat).Error
}

// GetChatByID 获取对话及按时间排序的消息
func (r *ChatRepository) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_posted ASC")
		}).
		Where("id = ?", id).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChatsByUser 列出用户的对话
func (r *ChatRepository) ListChatsByUser(ctx context.Context, userID string) ([]*model.Chat, error) {
	var chats []*model.Chat
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&chats).Error
	return chats, err
}

// UpdateTitle 更新对话标题
func (r *ChatRepository) UpdateTitle(ctx context.Context, id, title string) error {
	result := r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", id).Update("title", title)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteChat 删除对话及其消息
func (r *ChatRepository) DeleteChat(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Message{}, "chat_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Chat{}, "id = ?", id).Error
	})
}

// CreateMessage 创建消息
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// CreateChatWithMessage 在同一事务中创建对话和首条消息
func (r *ChatRepository) CreateChatWithMessage(ctx context.Context, chat *model.Chat, msg *model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Messages").Create(chat).Error; err != nil {
			return err
		}
		return tx.Create(msg).Error
	})
}

// GetLatestMessage 获取对话最近一条消息
func (r *ChatRepository) GetLatestMessage(ctx context.Context, chatID string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("date_posted DESC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetMessagesByChatID 获取对话消息
func (r *ChatRepository) GetMessagesByChatID(ctx context.Context, chatID string) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("date_posted ASC").Find(&messages).Error
	return messages, err
}
