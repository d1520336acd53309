package model

import "time"

// 消息角色
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat 对话
// 工作流不在对话上存储，由最近一条消息推导
type Chat struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255" json:"title"`
	UserID    string    `gorm:"index;size:36;not null" json:"user_id"`
	Messages  []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Message 对话消息，写入后不再修改
type Message struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ChatID     string    `gorm:"index;size:36;not null" json:"chat_id"`
	Role       string    `gorm:"size:20" json:"role"`
	Content    string    `gorm:"type:text" json:"content"`
	WorkflowID string    `gorm:"index;size:36" json:"workflow_id"`
	DatePosted time.Time `gorm:"index" json:"date_posted"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chats"
}

func (Message) TableName() string {
	return "messages"
}
