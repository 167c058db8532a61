package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/jwt"
	"sudooom.collab/pkg/snowflake"
)

// fakeUserRepo 内存用户存储
type fakeUserRepo struct {
	users map[int64]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	user, ok := f.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// fakeTokenStore 内存 Token 存储
type fakeTokenStore struct {
	tokens       map[string]*repository.UserTokenInfo // accessToken -> userInfo
	resetTokens  map[string]int64                     // resetToken -> userID
	deleteCalls  int
	oldTokenDels int
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		tokens:      make(map[string]*repository.UserTokenInfo),
		resetTokens: make(map[string]int64),
	}
}

func (f *fakeTokenStore) SaveToken(_ context.Context, userInfo *repository.UserTokenInfo, accessToken string, _ time.Duration) error {
	f.tokens[accessToken] = userInfo
	return nil
}

func (f *fakeTokenStore) DeleteToken(_ context.Context, _ int64, _, accessToken string) error {
	delete(f.tokens, accessToken)
	f.deleteCalls++
	return nil
}

func (f *fakeTokenStore) DeleteOldToken(_ context.Context, userID int64, platform string) error {
	for token, info := range f.tokens {
		if info.UserID == userID && info.Platform == platform {
			delete(f.tokens, token)
		}
	}
	f.oldTokenDels++
	return nil
}

func (f *fakeTokenStore) SaveResetToken(_ context.Context, token string, userID int64, _ time.Duration) error {
	f.resetTokens[token] = userID
	return nil
}

func (f *fakeTokenStore) ConsumeResetToken(_ context.Context, token string) (int64, error) {
	userID, ok := f.resetTokens[token]
	if !ok {
		return 0, nil
	}
	delete(f.resetTokens, token)
	return userID, nil
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeTokenStore) {
	t.Helper()
	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	userRepo := newFakeUserRepo()
	tokenStore := newFakeTokenStore()
	jwtService := jwt.NewService("test-secret-key", time.Hour, 24*time.Hour)
	svc := NewAuthService(userRepo, tokenStore, jwtService, node, time.Hour)
	return svc, userRepo, tokenStore
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
		Email:    "zhanghua@example.com",
	})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.UserStatusNormal, user.Status)
	assert.NotEqual(t, "123456", user.PasswordHash, "password must be hashed")

	// 用户名重复
	_, err = svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "654321",
		Nickname: "李雷",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrUsernameExists))

	// 邮箱重复
	_, err = svc.Register(ctx, &RegisterRequest{
		Username: "lilei",
		Password: "654321",
		Nickname: "李雷",
		Email:    "zhanghua@example.com",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailExists))
}

func TestLogin(t *testing.T) {
	svc, _, tokenStore := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "123456", Platform: "web"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "张华", resp.Nickname)

	// Token 已写入存储
	info, ok := tokenStore.tokens[resp.AccessToken]
	require.True(t, ok)
	assert.Equal(t, "zhanghua", info.Username)

	// 密码错误
	_, err = svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	// 用户不存在时返回同样的错误，不泄露用户是否存在
	_, err = svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "123456"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLogin_SamePlatformReplacesToken(t *testing.T) {
	svc, _, tokenStore := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
	})
	require.NoError(t, err)

	first, err := svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "123456", Platform: "web"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "123456", Platform: "web"})
	require.NoError(t, err)

	_, ok := tokenStore.tokens[first.AccessToken]
	assert.False(t, ok, "old token on the same platform is evicted")
	assert.Len(t, tokenStore.tokens, 1)
}

func TestLogin_DisabledUser(t *testing.T) {
	svc, userRepo, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
	})
	require.NoError(t, err)

	userRepo.users[user.ID].Status = model.UserStatusDisabled

	_, err = svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "123456"})
	assert.True(t, appErrors.Is(err, appErrors.ErrUserDisabled))
}

func TestRefreshToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
	})
	require.NoError(t, err)

	login, err := svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "123456", Platform: "web"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, login.UserID, refreshed.UserID)

	// Access Token 不能当 Refresh Token 用
	_, err = svc.RefreshToken(ctx, login.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))

	_, err = svc.RefreshToken(ctx, "garbage")
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenInvalid))
}

func TestPasswordReset(t *testing.T) {
	svc, userRepo, tokenStore := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, &RegisterRequest{
		Username: "zhanghua",
		Password: "123456",
		Nickname: "张华",
		Email:    "zhanghua@example.com",
	})
	require.NoError(t, err)
	oldHash := userRepo.users[user.ID].PasswordHash

	err = svc.RequestPasswordReset(ctx, "zhanghua@example.com")
	require.NoError(t, err)
	require.Len(t, tokenStore.resetTokens, 1)

	var token string
	for tk := range tokenStore.resetTokens {
		token = tk
	}

	require.NoError(t, svc.ResetPassword(ctx, token, "newpass123"))
	assert.NotEqual(t, oldHash, userRepo.users[user.ID].PasswordHash)

	// 令牌一次性，重复使用失败
	err = svc.ResetPassword(ctx, token, "another456")
	assert.True(t, appErrors.Is(err, appErrors.ErrResetTokenInvalid))

	// 新密码可登录
	_, err = svc.Login(ctx, &LoginRequest{Username: "zhanghua", Password: "newpass123"})
	assert.NoError(t, err)

	// 未注册邮箱
	err = svc.RequestPasswordReset(ctx, "nobody@example.com")
	assert.True(t, appErrors.Is(err, appErrors.ErrUserNotFound))
}
