// Package database 管理 PostgreSQL 连接与表结构迁移
package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
)

const connectTimeout = 5 * time.Second

// DB 数据库封装
type DB struct {
	*gorm.DB
	log *zap.Logger
}

// New 连接数据库、配置连接池并迁移表结构
func New(cfg *config.Config, log *zap.Logger) (*DB, error) {
	level := gormlogger.Warn
	if cfg.App.Debug {
		level = gormlogger.Info
	}

	gdb, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger:  NewGormLogger(log.Named("gorm"), level),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{DB: gdb, log: log}
	if err := db.configurePool(cfg.Database); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) configurePool(cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	return nil
}

// Migrate 按 model.AllModels 自动迁移
func (db *DB) Migrate(ctx context.Context) error {
	start := time.Now()
	if err := db.WithContext(ctx).AutoMigrate(model.AllModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	db.log.Info("schema migrated", zap.Int("tables", len(model.AllModels)), zap.Duration("took", time.Since(start)))
	return nil
}

// Ping 检查数据库连接
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接池
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
