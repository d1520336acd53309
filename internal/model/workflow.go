package model

import "time"

// WorkflowTypeDirect 直接转发到模型接口
const WorkflowTypeDirect = "DIRECT"

// Workflow 模型调用配置
// URL 为空时使用服务商默认地址
type Workflow struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	URL          string    `gorm:"size:500" json:"-"`
	APIKey       string    `gorm:"size:500" json:"-"`
	Model        string    `gorm:"size:100;not null" json:"-"`
	SystemPrompt string    `gorm:"type:text" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Workflow) TableName() string {
	return "workflows"
}

// Template 提示词模板
type Template struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (Template) TableName() string {
	return "templates"
}
