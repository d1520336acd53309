package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/callback"
	"github.com/ashwinyue/next-chat/internal/service/chat"
	"github.com/ashwinyue/next-chat/internal/service/initialization"
	"github.com/ashwinyue/next-chat/internal/service/llm"
	"github.com/ashwinyue/next-chat/internal/service/presence"
	"github.com/ashwinyue/next-chat/internal/service/relay"
)

// Services 服务集合
type Services struct {
	Auth           *auth.Service
	Chat           *chat.Service
	Relay          *relay.Engine
	Presence       presence.Tracker
	Initialization *initialization.Service

	Config *config.Config
}

var _ relay.Store = (*chat.Service)(nil)

// NewServices 创建所有服务
// redisClient 为 nil 时在线状态保存在进程内
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient redis.UniversalClient, log *zap.Logger) (*Services, error) {
	authSvc, err := auth.NewService(repo.Auth, cfg.Auth)
	if err != nil {
		return nil, err
	}

	chatSvc := chat.NewService(repo.Chat, repo.Workflow, repo.Template, cfg.Chat.DefaultTitle)

	client := llm.NewClient(log.Named("llm"),
		llm.WithCallbackHandler(callback.NewLogger(log.Named("eino"))),
	)
	engine := relay.NewEngine(chatSvc, client, relay.Options{
		TitleMaxTokens: cfg.Chat.TitleMaxTokens,
		PersistTimeout: cfg.Chat.AbortPersistDuration(),
	}, log.Named("relay"))

	var tracker presence.Tracker
	if redisClient != nil {
		tracker = presence.NewRedisTracker(redisClient, cfg.Presence.IdleDuration())
	} else {
		tracker = presence.NewMemoryTracker(cfg.Presence.IdleDuration())
	}

	return &Services{
		Auth:           authSvc,
		Chat:           chatSvc,
		Relay:          engine,
		Presence:       tracker,
		Initialization: initialization.NewService(authSvc, repo.Workflow, repo.Template, log.Named("bootstrap")),
		Config:         cfg,
	}, nil
}
