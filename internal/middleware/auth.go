package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sudooom.collab/internal/repository"
	"sudooom.collab/pkg/response"
)

// TokenStore 认证中间件依赖的 Token 存储接口
type TokenStore interface {
	GetUserInfoByToken(ctx context.Context, accessToken string) (*repository.UserTokenInfo, error)
	GetTokenTTL(ctx context.Context, accessToken string) (time.Duration, error)
	RefreshTokenExpire(ctx context.Context, userInfo *repository.UserTokenInfo, accessToken string, expiration time.Duration) error
}

// TokenAuth Token 认证中间件
// 校验 Redis 中的 accessToken，临近过期时自动续期
func TokenAuth(tokenStore TokenStore, accessExpire, renewThreshold time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		userInfo, err := tokenStore.GetUserInfoByToken(c.Request.Context(), token)
		if err != nil {
			slog.Error("Failed to query token info", "error", err)
			response.Error(c, response.CodeServerError)
			c.Abort()
			return
		}
		if userInfo == nil {
			response.Error(c, response.CodeTokenExpired)
			c.Abort()
			return
		}

		// 活跃用户自动续期
		ttl, err := tokenStore.GetTokenTTL(c.Request.Context(), token)
		if err == nil && ttl > 0 && ttl < renewThreshold {
			if err := tokenStore.RefreshTokenExpire(c.Request.Context(), userInfo, token, accessExpire); err != nil {
				slog.Warn("Failed to renew token", "userId", userInfo.UserID, "error", err)
			}
		}

		c.Set("user_id", userInfo.UserID)
		c.Set("nickname", userInfo.Nickname)
		c.Set("platform", userInfo.Platform)
		c.Set("access_token", token)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetUserID 从 context 获取 user_id
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get("user_id")
	if !exists {
		return 0
	}
	return userID.(int64)
}

// GetNickname 从 context 获取 nickname
func GetNickname(c *gin.Context) string {
	nickname, exists := c.Get("nickname")
	if !exists {
		return ""
	}
	return nickname.(string)
}

// GetPlatform 从 context 获取 platform
func GetPlatform(c *gin.Context) string {
	platform, exists := c.Get("platform")
	if !exists {
		return ""
	}
	return platform.(string)
}

// GetAccessToken 从 context 获取当前请求的 accessToken
func GetAccessToken(c *gin.Context) string {
	token, exists := c.Get("access_token")
	if !exists {
		return ""
	}
	return token.(string)
}
