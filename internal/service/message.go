package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/policy"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/snowflake"
)

// MessageRepo 消息服务依赖的数据访问接口
type MessageRepo interface {
	CreateChannelMessage(ctx context.Context, msg *model.ChannelMessage) error
	CreateDirectMessage(ctx context.Context, msg *model.DirectMessage) error
	GetChannelMessages(ctx context.Context, channelID int64, limit int) ([]*model.ChannelMessage, error)
	GetDirectMessages(ctx context.Context, userID, peerID int64) ([]*model.DirectMessage, error)
	DeleteChannelMessage(ctx context.Context, msgID, senderID int64) error
	DeleteDirectMessage(ctx context.Context, msgID, senderID int64) error
}

// MessageChannelRepo 消息服务依赖的频道关系接口
type MessageChannelRepo interface {
	GetMembership(ctx context.Context, channelID int64) (*model.Membership, error)
	SharesChannel(ctx context.Context, userID, otherID int64) (bool, error)
}

// ProfileGetter 发送者信息查询接口（冗余昵称用）
type ProfileGetter interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// ConversationUpdater 会话更新接口
type ConversationUpdater interface {
	UpdateForSender(ctx context.Context, userID, peerID, channelID, msgID int64) error
	UpdateForReceiver(ctx context.Context, userID, peerID, channelID, msgID int64) error
	UpdateForChannelMembers(ctx context.Context, memberIDs []int64, senderID, channelID, msgID int64) error
}

const channelMessageLimit = 100

// MessageService 消息服务（频道消息与私信）
type MessageService struct {
	messageRepo   MessageRepo
	channelRepo   MessageChannelRepo
	userRepo      ProfileGetter
	conversations ConversationUpdater
	publisher     EventPublisher
	snowflake     *snowflake.Node
	logger        *slog.Logger
}

// NewMessageService 创建消息服务
func NewMessageService(
	messageRepo MessageRepo,
	channelRepo MessageChannelRepo,
	userRepo ProfileGetter,
	conversations ConversationUpdater,
	publisher EventPublisher,
	node *snowflake.Node,
) *MessageService {
	return &MessageService{
		messageRepo:   messageRepo,
		channelRepo:   channelRepo,
		userRepo:      userRepo,
		conversations: conversations,
		publisher:     publisher,
		snowflake:     node,
		logger:        slog.Default(),
	}
}

// SendChannelMessage 发送频道消息，仅成员可发
func (s *MessageService) SendChannelMessage(ctx context.Context, senderID, channelID int64, content string) (*model.ChannelMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, appErrors.ErrInvalidParams
	}

	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(m, senderID, policy.ActionPostMessage) {
		return nil, appErrors.ErrNotAMember
	}

	nickname, err := s.senderNickname(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &model.ChannelMessage{
		ID:             s.snowflake.Generate().Int64(),
		ChannelID:      channelID,
		SenderID:       senderID,
		SenderNickname: nickname,
		Content:        content,
	}
	if err := s.messageRepo.CreateChannelMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to create channel message", "channelId", channelID, "senderId", senderID, "error", err)
		return nil, err
	}

	memberIDs := make([]int64, 0, len(m.Members))
	for userID := range m.Members {
		memberIDs = append(memberIDs, userID)
	}
	if err := s.conversations.UpdateForChannelMembers(ctx, memberIDs, senderID, channelID, msg.ID); err != nil {
		s.logger.Warn("Failed to update channel conversations", "channelId", channelID, "error", err)
	}

	s.publishChannelMessage(channelID, senderID, msg)
	return msg, nil
}

// SendDirectMessage 发送私信，双方需共享至少一个频道
func (s *MessageService) SendDirectMessage(ctx context.Context, senderID, receiverID int64, content string) (*model.DirectMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" || senderID == receiverID {
		return nil, appErrors.ErrInvalidParams
	}

	allowed, err := s.CanMessageUser(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.ErrCannotMessageUser
	}

	nickname, err := s.senderNickname(ctx, senderID)
	if err != nil {
		return nil, err
	}

	msg := &model.DirectMessage{
		ID:             s.snowflake.Generate().Int64(),
		SenderID:       senderID,
		ReceiverID:     receiverID,
		SenderNickname: nickname,
		Content:        content,
	}
	if err := s.messageRepo.CreateDirectMessage(ctx, msg); err != nil {
		s.logger.Error("Failed to create direct message", "senderId", senderID, "receiverId", receiverID, "error", err)
		return nil, err
	}

	if err := s.conversations.UpdateForSender(ctx, senderID, receiverID, 0, msg.ID); err != nil {
		s.logger.Warn("Failed to update sender conversation", "senderId", senderID, "error", err)
	}
	if err := s.conversations.UpdateForReceiver(ctx, receiverID, senderID, 0, msg.ID); err != nil {
		s.logger.Warn("Failed to update receiver conversation", "receiverId", receiverID, "error", err)
	}

	s.publishDirectMessage(senderID, receiverID, msg)
	return msg, nil
}

// GetChannelMessages 获取频道历史消息（时间升序），仅成员可读
func (s *MessageService) GetChannelMessages(ctx context.Context, userID, channelID int64) ([]*model.ChannelMessage, error) {
	m, err := s.getMembership(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if !m.IsMember(userID) {
		return nil, appErrors.ErrNotAMember
	}
	return s.messageRepo.GetChannelMessages(ctx, channelID, channelMessageLimit)
}

// GetDirectMessages 获取与指定用户的私信（时间升序），要求共享频道
func (s *MessageService) GetDirectMessages(ctx context.Context, userID, peerID int64) ([]*model.DirectMessage, error) {
	allowed, err := s.CanMessageUser(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.ErrCannotMessageUser
	}
	return s.messageRepo.GetDirectMessages(ctx, userID, peerID)
}

// CanMessageUser 判断两个用户是否可以互发私信（共享频道即可）
func (s *MessageService) CanMessageUser(ctx context.Context, userID, otherID int64) (bool, error) {
	if userID == otherID {
		return false, nil
	}
	allowed, err := s.channelRepo.SharesChannel(ctx, userID, otherID)
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// DeleteChannelMessage 删除频道消息，仅发送者可删
func (s *MessageService) DeleteChannelMessage(ctx context.Context, userID, msgID int64) error {
	err := s.messageRepo.DeleteChannelMessage(ctx, msgID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return appErrors.ErrMessageNotFound
		}
		return err
	}
	return nil
}

// DeleteDirectMessage 删除私信，仅发送者可删
func (s *MessageService) DeleteDirectMessage(ctx context.Context, userID, msgID int64) error {
	err := s.messageRepo.DeleteDirectMessage(ctx, msgID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return appErrors.ErrMessageNotFound
		}
		return err
	}
	return nil
}

func (s *MessageService) getMembership(ctx context.Context, channelID int64) (*model.Membership, error) {
	m, err := s.channelRepo.GetMembership(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, appErrors.ErrChannelNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MessageService) senderNickname(ctx context.Context, senderID int64) (string, error) {
	user, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", appErrors.ErrUserNotFound
		}
		return "", err
	}
	return user.Nickname, nil
}

func (s *MessageService) publishChannelMessage(channelID, senderID int64, msg *model.ChannelMessage) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"message_id":      snowflake.Int64ToString(msg.ID),
		"sender_id":       snowflake.Int64ToString(msg.SenderID),
		"sender_nickname": msg.SenderNickname,
		"content":         msg.Content,
	}
	event := realtime.NewEvent(realtime.EventChannelMessage, channelID, senderID, payload)
	if err := s.publisher.PublishToChannel(channelID, event); err != nil {
		s.logger.Warn("Failed to publish channel message event", "channelId", channelID, "error", err)
	}
}

func (s *MessageService) publishDirectMessage(senderID, receiverID int64, msg *model.DirectMessage) {
	if s.publisher == nil {
		return
	}
	payload := map[string]interface{}{
		"message_id":      snowflake.Int64ToString(msg.ID),
		"sender_id":       snowflake.Int64ToString(msg.SenderID),
		"sender_nickname": msg.SenderNickname,
		"content":         msg.Content,
	}
	event := realtime.NewEvent(realtime.EventDirectMessage, 0, senderID, payload)
	for _, userID := range []int64{senderID, receiverID} {
		if err := s.publisher.PublishToUser(userID, event); err != nil {
			s.logger.Warn("Failed to publish direct message event", "userId", userID, "error", err)
		}
	}
}
