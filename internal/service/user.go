package service

import (
	"context"
	"errors"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
)

// UserRepo 用户服务依赖的存储
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Search(ctx context.Context, keyword string, limit, offset int) ([]*model.User, error)
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	Nickname string `json:"nickname"` // 昵称
	Avatar   string `json:"avatar"`   // 头像URL
}

// UserService 用户服务
type UserService struct {
	userRepo UserRepo
}

// NewUserService 创建用户服务
func NewUserService(userRepo UserRepo) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetByID 通过 ID 获取用户
func (s *UserService) GetByID(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile 更新用户资料
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}

	if req.Nickname != "" {
		user.Nickname = req.Nickname
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}

	return s.userRepo.Update(ctx, user)
}

// Search 搜索用户
func (s *UserService) Search(ctx context.Context, keyword string, page, pageSize int) ([]*model.User, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 50 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.userRepo.Search(ctx, keyword, pageSize, offset)
}
