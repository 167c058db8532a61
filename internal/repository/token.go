package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.collab/pkg/rediskey"
)

// UserTokenInfo 存储在Redis中的用户信息
type UserTokenInfo struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	DeviceID string `json:"device_id"`
	Platform string `json:"platform"`
}

// TokenRepository Token 数据访问层
type TokenRepository struct {
	rdb *redis.Client
}

// NewTokenRepository 创建 Token Repository
func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{rdb: rdb}
}

// SaveToken 保存Token到Redis
// 1. user:token:{user_id}:{platform} -> accessToken
// 2. token:info:{accessToken} -> userInfo JSON
func (r *TokenRepository) SaveToken(ctx context.Context, userInfo *UserTokenInfo, accessToken string, expiration time.Duration) error {
	userTokenKey := rediskey.BuildUserTokenKey(userInfo.UserID, userInfo.Platform)
	tokenInfoKey := rediskey.BuildTokenInfoKey(accessToken)

	userInfoJSON, err := json.Marshal(userInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal user info: %w", err)
	}

	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, userTokenKey, accessToken, expiration)
	pipe.Set(ctx, tokenInfoKey, userInfoJSON, expiration)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetUserInfoByToken 根据Token获取用户信息
func (r *TokenRepository) GetUserInfoByToken(ctx context.Context, accessToken string) (*UserTokenInfo, error) {
	key := rediskey.BuildTokenInfoKey(accessToken)
	data, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var userInfo UserTokenInfo
	if err := json.Unmarshal([]byte(data), &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	return &userInfo, nil
}

// DeleteToken 删除Token（登出时使用）
func (r *TokenRepository) DeleteToken(ctx context.Context, userID int64, platform, accessToken string) error {
	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, rediskey.BuildTokenInfoKey(accessToken))
	pipe.Del(ctx, rediskey.BuildUserTokenKey(userID, platform))
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteOldToken 删除旧Token（重新登录时清理旧Token）
func (r *TokenRepository) DeleteOldToken(ctx context.Context, userID int64, platform string) error {
	userTokenKey := rediskey.BuildUserTokenKey(userID, platform)
	oldToken, err := r.rdb.Get(ctx, userTokenKey).Result()
	if err == redis.Nil {
		// 没有旧Token，无需删除
		return nil
	}
	if err != nil {
		return err
	}

	return r.rdb.Del(ctx, rediskey.BuildTokenInfoKey(oldToken)).Err()
}

// GetTokenTTL 获取Token的剩余过期时间
func (r *TokenRepository) GetTokenTTL(ctx context.Context, accessToken string) (time.Duration, error) {
	return r.rdb.TTL(ctx, rediskey.BuildTokenInfoKey(accessToken)).Result()
}

// RefreshTokenExpire 刷新Token的过期时间
func (r *TokenRepository) RefreshTokenExpire(ctx context.Context, userInfo *UserTokenInfo, accessToken string, expiration time.Duration) error {
	pipe := r.rdb.Pipeline()
	pipe.Expire(ctx, rediskey.BuildUserTokenKey(userInfo.UserID, userInfo.Platform), expiration)
	pipe.Expire(ctx, rediskey.BuildTokenInfoKey(accessToken), expiration)
	_, err := pipe.Exec(ctx)
	return err
}

// SaveResetToken 保存密码重置令牌（一次性，带TTL）
func (r *TokenRepository) SaveResetToken(ctx context.Context, token string, userID int64, expiration time.Duration) error {
	return r.rdb.Set(ctx, rediskey.BuildResetTokenKey(token), userID, expiration).Err()
}

// ConsumeResetToken 取出并删除重置令牌，返回对应的用户ID；令牌无效返回 0
func (r *TokenRepository) ConsumeResetToken(ctx context.Context, token string) (int64, error) {
	key := rediskey.BuildResetTokenKey(token)
	userID, err := r.rdb.GetDel(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}
