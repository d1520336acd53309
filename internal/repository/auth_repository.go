package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/next-chat/internal/model"
	"gorm.io/gorm"
)

// AuthRepository 用户与令牌数据访问
type AuthRepository struct {
	db *gorm.DB
}

// NewAuthRepository 创建认证仓库
func NewAuthRepository(db *gorm.DB) *AuthRepository {
	return &AuthRepository{db: db}
}

// CreateUser 创建用户
func (r *AuthRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID 获取用户
func (r *AuthRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername 获取用户
func (r *AuthRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdatePassword 更新密码哈希
func (r *AuthRepository) UpdatePassword(ctx context.Context, userID, hash string) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash).Error
}

// CountUsers 用户总数
func (r *AuthRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Count(&count).Error
	return count, err
}

// CreateToken 创建令牌
func (r *AuthRepository) CreateToken(ctx context.Context, token *model.AuthToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetTokenByValue 获取未撤销且未过期的令牌
func (r *AuthRepository) GetTokenByValue(ctx context.Context, tokenValue string) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.WithContext(ctx).
		Where("token = ? AND is_revoked = ?", tokenValue, false).
		Where("expires_at > ?", time.Now()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeToken 撤销令牌
func (r *AuthRepository) RevokeToken(ctx context.Context, tokenID string) error {
	return r.db.WithContext(ctx).Model(&model.AuthToken{}).Where("id = ?", tokenID).Update("is_revoked", true).Error
}

// DeleteExpiredTokens 删除过期或已撤销的令牌
func (r *AuthRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ? OR is_revoked = ?", time.Now(), true).
		Delete(&model.AuthToken{})
	return result.RowsAffected, result.Error
}
