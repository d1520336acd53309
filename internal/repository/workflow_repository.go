package repository

import (
	"context"

	"github.com/ashwinyue/next-chat/internal/model"
	"gorm.io/gorm"
)

// WorkflowRepository 工作流数据访问
type WorkflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository 创建工作流仓库
func NewWorkflowRepository(db *gorm.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// Create 创建工作流
func (r *WorkflowRepository) Create(ctx context.Context, w *model.Workflow) error {
	return r.db.WithContext(ctx).Create(w).Error
}

// GetByID 根据 ID 获取工作流
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	var w model.Workflow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByTitle 根据标题获取工作流
func (r *WorkflowRepository) GetByTitle(ctx context.Context, title string) (*model.Workflow, error) {
	var w model.Workflow
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// List 列出工作流
func (r *WorkflowRepository) List(ctx context.Context) ([]*model.Workflow, error) {
	var workflows []*model.Workflow
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&workflows).Error
	return workflows, err
}

// TemplateRepository 模板数据访问
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository 创建模板仓库
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create 创建模板
func (r *TemplateRepository) Create(ctx context.Context, t *model.Template) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// GetByTitle 根据标题获取模板
func (r *TemplateRepository) GetByTitle(ctx context.Context, title string) (*model.Template, error) {
	var t model.Template
	err := r.db.WithContext(ctx).Where("title = ?", title).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List 列出模板
func (r *TemplateRepository) List(ctx context.Context) ([]*model.Template, error) {
	var templates []*model.Template
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&templates).Error
	return templates, err
}
