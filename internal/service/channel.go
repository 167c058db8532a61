package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/policy"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/snowflake"
)

// inviteCodeBytes 邀请码随机字节数（十六进制后 16 字符）
const inviteCodeBytes = 8

// EventPublisher 事件发布接口
type EventPublisher interface {
	PublishToChannel(channelID int64, event *realtime.Event) error
	PublishToUser(userID int64, event *realtime.Event) error
}

// ChannelRepo 频道服务依赖的存储
type ChannelRepo interface {
	Create(ctx context.Context, channel *model.Channel, creatorMemberID int64) error
	GetByID(ctx context.Context, id int64) (*model.Channel, error)
	GetByInviteCode(ctx context.Context, code string) (*model.Channel, error)
	GetMembership(ctx context.Context, channelID int64) (*model.Membership, error)
	Update(ctx context.Context, channel *model.Channel) error
	UpdateInviteCode(ctx context.Context, channelID int64, code string) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, member *model.ChannelMember) error
	RemoveMember(ctx context.Context, channelID, userID int64) error
	UpdateMemberRole(ctx context.Context, channelID, userID int64, role int) error
	GetUserChannels(ctx context.Context, userID int64) ([]*model.ChannelWithMemberCount, error)
	GetPublicChannels(ctx context.Context, limit, offset int) ([]*model.ChannelWithMemberCount, error)
	GetMembers(ctx context.Context, channelID int64) ([]*model.ChannelMemberWithUser, error)
	GetUserChannelIDs(ctx context.Context, userID int64) ([]int64, error)
}

// CreateChannelRequest 创建频道请求
type CreateChannelRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	IsPublic    bool   `json:"is_public"`
}

// UpdateChannelRequest 更新频道请求，nil 字段不修改
type UpdateChannelRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	IsPublic    *bool   `json:"is_public"`
}

// ChannelService 频道服务
// 所有权限判断都基于 GetMembership 取回的最新快照，不信任调用方缓存的角色
type ChannelService struct {
	channelRepo ChannelRepo
	snowflake   *snowflake.Node
	publisher   EventPublisher
	logger      *slog.Logger
}

// NewChannelService 创建频道服务
func NewChannelService(channelRepo ChannelRepo, sf *snowflake.Node, publisher EventPublisher) *ChannelService {
	return &ChannelService{
		channelRepo: channelRepo,
		snowflake:   sf,
		publisher:   publisher,
		logger:      slog.Default(),
	}
}

// CreateChannel 创建频道，调用者成为创建者和唯一成员
// 私有频道生成邀请码，公开频道没有邀请码
func (s *ChannelService) CreateChannel(ctx context.Context, userID int64, req *CreateChannelRequest) (*model.Channel, error) {
	channel := &model.Channel{
		ID:          s.snowflake.Generate().Int64(),
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   userID,
	}

	if req.IsPublic {
		channel.Visibility = model.ChannelPublic
	} else {
		channel.Visibility = model.ChannelPrivate
		code, err := generateInviteCode()
		if err != nil {
			return nil, err
		}
		channel.InviteCode = code
	}

	if err := s.channelRepo.Create(ctx, channel, s.snowflake.Generate().Int64()); err != nil {
		return nil, err
	}

	return channel, nil
}

// JoinChannel 直接加入频道，仅公开频道允许
func (s *ChannelService) JoinChannel(ctx context.Context, userID, channelID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if err := policy.CheckJoin(m, userID); err != nil {
		return err
	}

	return s.addMember(ctx, channelID, userID)
}

// JoinChannelByInviteCode 通过邀请码加入私有频道
func (s *ChannelService) JoinChannelByInviteCode(ctx context.Context, userID int64, code string) (*model.Channel, error) {
	channel, err := s.channelRepo.GetByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, appErrors.ErrInvalidInviteCode
		}
		return nil, err
	}

	m, err := s.getMembership(ctx, channel.ID)
	if err != nil {
		return nil, err
	}

	if err := policy.CheckJoinByInvite(m, userID); err != nil {
		return nil, err
	}

	if err := s.addMember(ctx, channel.ID, userID); err != nil {
		return nil, err
	}
	return channel, nil
}

// LeaveChannel 退出频道，创建者不能退出
func (s *ChannelService) LeaveChannel(ctx context.Context, userID, channelID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if err := policy.CheckLeave(m, userID); err != nil {
		return err
	}

	if err := s.channelRepo.RemoveMember(ctx, channelID, userID); err != nil {
		return err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventMemberLeft, channelID, userID, nil))
	return nil
}

// PromoteToAdmin 提升成员为管理员，仅创建者可操作
func (s *ChannelService) PromoteToAdmin(ctx context.Context, actorID, channelID, targetID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if err := policy.CheckPromote(m, actorID, targetID); err != nil {
		return err
	}

	if err := s.channelRepo.UpdateMemberRole(ctx, channelID, targetID, model.ChannelRoleAdmin); err != nil {
		return err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventMemberRoleChanged, channelID, actorID, map[string]interface{}{
		"user_id": snowflake.Int64ToString(targetID),
		"role":    model.ChannelRoleAdmin,
	}))
	return nil
}

// DemoteFromAdmin 取消管理员身份，仅创建者可操作，创建者不可被降级
func (s *ChannelService) DemoteFromAdmin(ctx context.Context, actorID, channelID, targetID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if err := policy.CheckDemote(m, actorID, targetID); err != nil {
		return err
	}

	if err := s.channelRepo.UpdateMemberRole(ctx, channelID, targetID, model.ChannelRoleMember); err != nil {
		return err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventMemberRoleChanged, channelID, actorID, map[string]interface{}{
		"user_id": snowflake.Int64ToString(targetID),
		"role":    model.ChannelRoleMember,
	}))
	return nil
}

// RemoveMember 移除成员，管理员可操作，创建者不可被移除
func (s *ChannelService) RemoveMember(ctx context.Context, actorID, channelID, targetID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if err := policy.CheckRemove(m, actorID, targetID); err != nil {
		return err
	}

	if err := s.channelRepo.RemoveMember(ctx, channelID, targetID); err != nil {
		return err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventMemberRemoved, channelID, actorID, map[string]interface{}{
		"user_id": snowflake.Int64ToString(targetID),
	}))
	if s.publisher != nil {
		// 被移除的用户已经不在频道 Subject 上，单独通知
		_ = s.publisher.PublishToUser(targetID, realtime.NewEvent(realtime.EventMemberRemoved, channelID, actorID, nil))
	}
	return nil
}

// GenerateInviteCode 重新生成邀请码，旧码立即失效，管理员可操作
func (s *ChannelService) GenerateInviteCode(ctx context.Context, actorID, channelID int64) (string, error) {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return "", err
	}

	if !policy.CanPerform(m, actorID, policy.ActionGenerateInvite) {
		return "", appErrors.ErrPermissionDenied
	}
	if m.Channel.IsPublic() {
		return "", appErrors.ErrWrongChannelType
	}

	code, err := generateInviteCode()
	if err != nil {
		return "", err
	}

	if err := s.channelRepo.UpdateInviteCode(ctx, channelID, code); err != nil {
		return "", err
	}
	return code, nil
}

// UpdateChannel 更新频道信息，管理员可操作
// 可见性变化时同步维护邀请码：转公开清空，转私有生成
func (s *ChannelService) UpdateChannel(ctx context.Context, actorID, channelID int64, req *UpdateChannelRequest) (*model.Channel, error) {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return nil, err
	}

	if !policy.CanPerform(m, actorID, policy.ActionUpdateChannel) {
		return nil, appErrors.ErrPermissionDenied
	}

	channel := m.Channel
	if req.Name != nil {
		channel.Name = *req.Name
	}
	if req.Description != nil {
		channel.Description = *req.Description
	}
	if req.IsPublic != nil {
		if *req.IsPublic && !channel.IsPublic() {
			channel.Visibility = model.ChannelPublic
			channel.InviteCode = ""
		} else if !*req.IsPublic && channel.IsPublic() {
			channel.Visibility = model.ChannelPrivate
			code, err := generateInviteCode()
			if err != nil {
				return nil, err
			}
			channel.InviteCode = code
		}
	}

	if err := s.channelRepo.Update(ctx, channel); err != nil {
		return nil, err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventChannelUpdated, channelID, actorID, nil))
	return channel, nil
}

// DeleteChannel 删除频道，仅创建者可操作，级联删除任务和消息
func (s *ChannelService) DeleteChannel(ctx context.Context, actorID, channelID int64) error {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return err
	}

	if !policy.CanPerform(m, actorID, policy.ActionDeleteChannel) {
		return appErrors.ErrPermissionDenied
	}

	// 先通知再删除，删除后频道 Subject 不再有订阅者
	s.publish(channelID, realtime.NewEvent(realtime.EventChannelDeleted, channelID, actorID, nil))

	return s.channelRepo.Delete(ctx, channelID)
}

// GetChannel 获取频道详情，邀请码仅对管理员可见
func (s *ChannelService) GetChannel(ctx context.Context, userID, channelID int64) (*model.Channel, string, error) {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return nil, "", err
	}

	inviteCode := ""
	if m.IsAdmin(userID) {
		inviteCode = m.Channel.InviteCode
	}
	return m.Channel, inviteCode, nil
}

// GetUserChannels 获取用户加入的频道列表
func (s *ChannelService) GetUserChannels(ctx context.Context, userID int64) ([]*model.ChannelWithMemberCount, error) {
	return s.channelRepo.GetUserChannels(ctx, userID)
}

// GetPublicChannels 获取公开频道目录
func (s *ChannelService) GetPublicChannels(ctx context.Context, page, pageSize int) ([]*model.ChannelWithMemberCount, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.channelRepo.GetPublicChannels(ctx, pageSize, (page-1)*pageSize)
}

// GetMembers 获取频道成员列表，仅成员可见
func (s *ChannelService) GetMembers(ctx context.Context, userID, channelID int64) ([]*model.ChannelMemberWithUser, error) {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !m.IsMember(userID) {
		return nil, appErrors.ErrPermissionDenied
	}
	return s.channelRepo.GetMembers(ctx, channelID)
}

// GetUserChannelIDs 获取用户加入的频道ID列表（实时订阅用）
func (s *ChannelService) GetUserChannelIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.channelRepo.GetUserChannelIDs(ctx, userID)
}

func (s *ChannelService) getMembership(ctx context.Context, channelID int64) (*model.Membership, error) {
	m, err := s.channelRepo.GetMembership(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, appErrors.ErrChannelNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *ChannelService) addMember(ctx context.Context, channelID, userID int64) error {
	member := &model.ChannelMember{
		ID:        s.snowflake.Generate().Int64(),
		ChannelID: channelID,
		UserID:    userID,
		Role:      model.ChannelRoleMember,
	}
	if err := s.channelRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrAlreadyChannelMember) {
			return appErrors.ErrAlreadyMember
		}
		return err
	}

	s.publish(channelID, realtime.NewEvent(realtime.EventMemberJoined, channelID, userID, nil))
	if s.publisher != nil {
		// 新成员的连接尚未订阅该频道 Subject，单独通知触发订阅刷新
		_ = s.publisher.PublishToUser(userID, realtime.NewEvent(realtime.EventMemberJoined, channelID, userID, nil))
	}
	return nil
}

func (s *ChannelService) publish(channelID int64, event *realtime.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishToChannel(channelID, event); err != nil {
		s.logger.Warn("Failed to publish channel event", "channelId", channelID, "type", event.Type, "error", err)
	}
}

// generateInviteCode 生成随机邀请码
func generateInviteCode() (string, error) {
	buf := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
