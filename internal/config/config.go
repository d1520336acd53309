package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Chat      ChatConfig
	Presence  PresenceConfig
	Log       LogConfig
	Bootstrap BootstrapConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string
	Port           int
	Mode           string
	ReadTimeout    int
	AllowedOrigins []string
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置，Host 为空时不启用
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret  string
	SessionTTL int // 小时
	CookieName string
}

// ChatConfig 对话配置
type ChatConfig struct {
	DefaultTitle        string
	TitleMaxTokens      int
	AbortPersistTimeout int // 秒
}

// PresenceConfig 在线状态配置
type PresenceConfig struct {
	IdleTimeout int // 秒
}

// LogConfig 日志配置
type LogConfig struct {
	Dir     string
	Level   string
	Console bool
}

// BootstrapConfig 启动时写入的初始数据
type BootstrapConfig struct {
	Users     []BootstrapUser
	Workflows []BootstrapWorkflow
	Templates []BootstrapTemplate
}

// BootstrapUser 初始用户
type BootstrapUser struct {
	Username string
	Password string
}

// BootstrapWorkflow 初始工作流
type BootstrapWorkflow struct {
	Title        string
	URL          string
	APIKey       string
	Model        string
	SystemPrompt string
}

// BootstrapTemplate 初始模板
type BootstrapTemplate struct {
	Title   string
	Content string
}

var globalConfig *Config

// Load 加载配置
// 配置文件不存在时使用默认值，环境变量（NEXT_CHAT_ 前缀）优先
func Load(path string) (*Config, error) {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded")
	}
	return globalConfig
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled Redis 是否已配置
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// SessionDuration 会话有效期
func (c *AuthConfig) SessionDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Hour
}

// IdleDuration 在线判定的空闲超时
func (c *PresenceConfig) IdleDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// AbortPersistDuration 中断后落库的超时
func (c *ChatConfig) AbortPersistDuration() time.Duration {
	return time.Duration(c.AbortPersistTimeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-chat")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.allowedOrigins", []string{})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_chat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.sessionTTL", 24*7)
	v.SetDefault("auth.cookieName", "session")

	// Chat
	v.SetDefault("chat.defaultTitle", "新規作成")
	v.SetDefault("chat.titleMaxTokens", 10)
	v.SetDefault("chat.abortPersistTimeout", 10)

	// Presence
	v.SetDefault("presence.idleTimeout", 600)

	// Log
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
}
