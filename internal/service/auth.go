package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/jwt"
	"sudooom.collab/pkg/snowflake"
)

// resetTokenExpire 密码重置令牌有效期
const resetTokenExpire = 30 * time.Minute

// AuthUserRepo 认证服务依赖的用户存储
type AuthUserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// TokenStore 认证服务依赖的 Token 存储
type TokenStore interface {
	SaveToken(ctx context.Context, userInfo *repository.UserTokenInfo, accessToken string, expiration time.Duration) error
	DeleteToken(ctx context.Context, userID int64, platform, accessToken string) error
	DeleteOldToken(ctx context.Context, userID int64, platform string) error
	SaveResetToken(ctx context.Context, token string, userID int64, expiration time.Duration) error
	ConsumeResetToken(ctx context.Context, token string) (int64, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=50"`
	Nickname string `json:"nickname" binding:"required,min=1,max=50"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
	Platform string `json:"platform"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	UserID       int64  `json:"user_id,string"`
	Nickname     string `json:"nickname"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// AuthService 认证服务
type AuthService struct {
	userRepo     AuthUserRepo
	tokenStore   TokenStore
	jwtService   *jwt.Service
	snowflake    *snowflake.Node
	accessExpire time.Duration
	logger       *slog.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo AuthUserRepo, tokenStore TokenStore, jwtService *jwt.Service, sf *snowflake.Node, accessExpire time.Duration) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenStore:   tokenStore,
		jwtService:   jwtService,
		snowflake:    sf,
		accessExpire: accessExpire,
		logger:       slog.Default(),
	}
}

// Register 用户注册
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	// 检查用户名是否存在
	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.ErrUsernameExists
	}

	// 检查邮箱是否已注册
	if req.Email != "" {
		exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, appErrors.ErrEmailExists
		}
	}

	// 密码加密
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           s.snowflake.Generate().Int64(),
		Username:     req.Username,
		PasswordHash: string(passwordHash),
		Nickname:     req.Nickname,
		Email:        req.Email,
		Status:       model.UserStatusNormal,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	// 查询用户
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	// 检查用户状态
	if user.Status != model.UserStatusNormal {
		return nil, appErrors.ErrUserDisabled
	}

	platform := string(jwt.ParsePlatform(req.Platform))

	// 生成 Token
	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, req.DeviceID, jwt.Platform(platform))
	if err != nil {
		return nil, err
	}

	// 同平台重复登录时清理旧 Token
	if err := s.tokenStore.DeleteOldToken(ctx, user.ID, platform); err != nil {
		s.logger.Warn("Failed to delete old token", "userId", user.ID, "error", err)
	}

	userInfo := &repository.UserTokenInfo{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
		DeviceID: req.DeviceID,
		Platform: platform,
	}
	if err := s.tokenStore.SaveToken(ctx, userInfo, tokenPair.AccessToken, s.accessExpire); err != nil {
		return nil, err
	}

	return &LoginResponse{
		UserID:       user.ID,
		Nickname:     user.Nickname,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// Logout 用户登出，删除 Redis 中的 Token
func (s *AuthService) Logout(ctx context.Context, userID int64, platform, accessToken string) error {
	return s.tokenStore.DeleteToken(ctx, userID, platform, accessToken)
}

// RefreshToken 刷新 Token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	// 验证 Refresh Token
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.ErrTokenExpired
		}
		return nil, appErrors.ErrTokenInvalid
	}

	// 检查用户是否存在
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	// 检查用户状态
	if user.Status != model.UserStatusNormal {
		return nil, appErrors.ErrUserDisabled
	}

	// 生成新的 Token Pair
	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, claims.DeviceID, claims.Platform)
	if err != nil {
		return nil, err
	}

	if err := s.tokenStore.DeleteOldToken(ctx, user.ID, string(claims.Platform)); err != nil {
		s.logger.Warn("Failed to delete old token", "userId", user.ID, "error", err)
	}

	userInfo := &repository.UserTokenInfo{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
		DeviceID: claims.DeviceID,
		Platform: string(claims.Platform),
	}
	if err := s.tokenStore.SaveToken(ctx, userInfo, tokenPair.AccessToken, s.accessExpire); err != nil {
		return nil, err
	}

	return &LoginResponse{
		UserID:       user.ID,
		Nickname:     user.Nickname,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// RequestPasswordReset 申请密码重置，生成一次性令牌
// 邮件投递由外部运维系统负责，这里只生成并记录令牌
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}

	if err := s.tokenStore.SaveResetToken(ctx, token, user.ID, resetTokenExpire); err != nil {
		return err
	}

	s.logger.Info("Password reset token issued", "userId", user.ID, "email", email)
	return nil
}

// ResetPassword 使用重置令牌设置新密码
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokenStore.ConsumeResetToken(ctx, token)
	if err != nil {
		return err
	}
	if userID == 0 {
		return appErrors.ErrResetTokenInvalid
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(passwordHash))
}

// generateToken 生成指定字节数的随机十六进制令牌
func generateToken(bytes int) (string, error) {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
