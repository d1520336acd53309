package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/database"
	"github.com/ashwinyue/next-chat/internal/handler"
	"github.com/ashwinyue/next-chat/internal/logger"
	"github.com/ashwinyue/next-chat/internal/repository"
	"github.com/ashwinyue/next-chat/internal/router"
	"github.com/ashwinyue/next-chat/internal/service"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zl, err := logger.Init(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化数据库
	db, err := database.New(cfg, zl)
	if err != nil {
		return err
	}
	defer db.Close()

	zl.Info("database connected", zap.String("dbname", cfg.Database.DBName))

	// 初始化 Redis，未配置时在线状态保存在进程内
	var redisClient redis.UniversalClient
	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			return err
		}
		redisClient = client
		zl.Info("redis connected", zap.String("addr", cfg.Redis.GetAddr()))
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	services, err := service.NewServices(repos, cfg, redisClient, zl)
	if err != nil {
		return err
	}

	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	seeded, err := services.Initialization.Seed(bootCtx, cfg.Bootstrap)
	if err == nil {
		zl.Info("bootstrap data applied",
			zap.Int("users", seeded.Users),
			zap.Int("workflows", seeded.Workflows),
			zap.Int("templates", seeded.Templates))
		if purged, perr := services.Auth.PurgeTokens(bootCtx); perr != nil {
			zl.Warn("failed to purge expired sessions", zap.Error(perr))
		} else if purged > 0 {
			zl.Info("expired sessions purged", zap.Int64("count", purged))
		}
	}
	cancel()
	if err != nil {
		return err
	}

	handlers := handler.NewHandlers(services, db, zl)

	// 初始化路由
	r := router.SetupRouter(handlers, services, zl)

	// 流式响应时长不确定，不设置 WriteTimeout
	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zl.Info("shutting down server", zap.String("signal", sig.String()))
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	zl.Info("server exited")
	return nil
}
