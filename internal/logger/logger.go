// Package logger 提供基于 zap 的结构化日志
// app.log 记录全部日志，error.log 只记录 Error 及以上，均由 lumberjack 轮转
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ashwinyue/next-chat/internal/config"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init 初始化全局日志
func Init(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	appCore := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, "app.log"), MaxSize: 100, MaxAge: 28, Compress: true,
		}),
		level,
	)
	errorCore := zapcore.NewCore(encoder,
		zapcore.AddSync(&lumberjack.Logger{
			Filename: filepath.Join(dir, "error.log"), MaxSize: 100, MaxAge: 30, Compress: true,
		}),
		zap.ErrorLevel,
	)

	cores := []zapcore.Core{appCore, errorCore}
	if cfg.Console {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	Set(l)
	return l, nil
}

// Set 替换全局日志
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L 获取全局日志
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync 刷新缓冲
func Sync() {
	_ = L().Sync()
}
