// Package initialization 启动时写入配置中的初始用户、工作流与模板
package initialization

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/auth"
)

// UserCreator 创建用户
type UserCreator interface {
	CreateUser(ctx context.Context, username, password string) (*model.User, error)
}

// Service 初始化服务
type Service struct {
	users     UserCreator
	workflows repository.WorkflowStore
	templates repository.TemplateStore
	log       *zap.Logger
}

// NewService 创建初始化服务
func NewService(users UserCreator, workflows repository.WorkflowStore, templates repository.TemplateStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, workflows: workflows, templates: templates, log: log}
}

// SeedResult 本次新建的数量
type SeedResult struct {
	Users     int
	Workflows int
	Templates int
}

// Seed 写入初始数据，已存在的同名记录跳过，可重复执行
func (s *Service) Seed(ctx context.Context, cfg config.BootstrapConfig) (*SeedResult, error) {
	res := &SeedResult{}

	for _, u := range cfg.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		_, err := s.users.CreateUser(ctx, u.Username, u.Password)
		switch {
		case err == nil:
			res.Users++
			s.log.Info("seeded user", zap.String("username", u.Username))
		case errors.Is(err, auth.ErrUserExists):
		default:
			return res, fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
	}

	for _, w := range cfg.Workflows {
		created, err := s.seedWorkflow(ctx, w)
		if err != nil {
			return res, err
		}
		if created {
			res.Workflows++
		}
	}

	for _, t := range cfg.Templates {
		created, err := s.seedTemplate(ctx, t)
		if err != nil {
			return res, err
		}
		if created {
			res.Templates++
		}
	}

	return res, nil
}

func (s *Service) seedWorkflow(ctx context.Context, w config.BootstrapWorkflow) (bool, error) {
	if w.Title == "" || w.Model == "" {
		return false, fmt.Errorf("workflow %q requires title and model", w.Title)
	}

	_, err := s.workflows.GetByTitle(ctx, w.Title)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to get workflow %s: %w", w.Title, err)
	}

	if err := s.workflows.Create(ctx, &model.Workflow{
		ID:           uuid.New().String(),
		Title:        w.Title,
		URL:          w.URL,
		APIKey:       w.APIKey,
		Model:        w.Model,
		SystemPrompt: w.SystemPrompt,
	}); err != nil {
		return false, fmt.Errorf("failed to seed workflow %s: %w", w.Title, err)
	}
	s.log.Info("seeded workflow", zap.String("title", w.Title), zap.String("model", w.Model))
	return true, nil
}

func (s *Service) seedTemplate(ctx context.Context, t config.BootstrapTemplate) (bool, error) {
	if t.Title == "" {
		return false, nil
	}

	_, err := s.templates.GetByTitle(ctx, t.Title)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to get template %s: %w", t.Title, err)
	}

	if err := s.templates.Create(ctx, &model.Template{
		ID:      uuid.New().String(),
		Title:   t.Title,
		Content: t.Content,
	}); err != nil {
		return false, fmt.Errorf("failed to seed template %s: %w", t.Title, err)
	}
	return true, nil
}
