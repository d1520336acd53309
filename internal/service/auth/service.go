// Package auth 提供登录、会话令牌与密码管理
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ashwinyue/next-chat/internal/config"
	"github.com/ashwinyue/next-chat/internal/model"
	"github.com/ashwinyue/next-chat/internal/repository"
)

var (
	// ErrInvalidCredentials 用户名或密码错误
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidToken 令牌无效、过期或已撤销
	ErrInvalidToken = errors.New("invalid or expired session")
	// ErrUserExists 用户名已存在
	ErrUserExists = errors.New("user already exists")
)

// Service 认证服务
type Service struct {
	users  repository.UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService 创建认证服务
// 未配置密钥时随机生成，重启后已签发的令牌失效
func NewService(users repository.UserStore, cfg config.AuthConfig) (*Service, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
	}

	ttl := cfg.SessionDuration()
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &Service{users: users, secret: secret, ttl: ttl, now: time.Now}, nil
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	Password string `json:"password" form:"password" binding:"required"`
}

// Session 登录结果
type Session struct {
	Token     string
	User      *model.User
	ExpiresAt time.Time
}

// Login 校验密码并签发会话令牌
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*Session, error) {
	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, user)
}

// ValidateToken 校验签名并确认令牌记录有效
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	record, err := s.users.GetTokenByValue(ctx, tokenString)
	if err != nil || record.UserID != userID {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Logout 撤销令牌
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	record, err := s.users.GetTokenByValue(ctx, tokenString)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to get token: %w", err)
	}
	return s.users.RevokeToken(ctx, record.ID)
}

// ChangePassword 重新哈希并保存密码
func (s *Service) ChangePassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// CreateUser 创建用户
func (s *Service) CreateUser(ctx context.Context, username, password string) (*model.User, error) {
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// CountUsers 用户总数
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountUsers(ctx)
}

// PurgeTokens 删除过期或已撤销的令牌
func (s *Service) PurgeTokens(ctx context.Context) (int64, error) {
	return s.users.DeleteExpiredTokens(ctx)
}

func (s *Service) issueToken(ctx context.Context, user *model.User) (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	recordID := uuid.New().String()

	claims := jwt.MapClaims{
		"jti":     recordID,
		"user_id": user.ID,
		"type":    model.TokenTypeSession,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	record := &model.AuthToken{
		ID:        recordID,
		UserID:    user.ID,
		Token:     signed,
		TokenType: model.TokenTypeSession,
		ExpiresAt: expiresAt,
	}
	if err := s.users.CreateToken(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return &Session{Token: signed, User: user, ExpiresAt: expiresAt}, nil
}
