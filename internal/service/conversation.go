package service

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sudooom.collab/internal/model"
	"sudooom.collab/pkg/rediskey"
)

// ConversationService 会话服务（基于 Redis）
// 维护每个用户的会话索引和未读计数，私信和频道消息共用
type ConversationService struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewConversationService 创建会话服务
func NewConversationService(redisClient *redis.Client) *ConversationService {
	return &ConversationService{
		redisClient: redisClient,
		logger:      slog.Default(),
	}
}

// UpdateForSender 更新发送者的会话（发消息时，不增加未读数）
func (s *ConversationService) UpdateForSender(ctx context.Context, userID, peerID, channelID, msgID int64) error {
	now := time.Now().UnixMilli()
	convKey, member := s.buildKeys(userID, peerID, channelID)
	idxKey := rediskey.BuildConversationIndexKey(userID)

	pipe := s.redisClient.Pipeline()
	pipe.HSet(ctx, convKey, "last_msg_id", msgID, "update_at", now)
	pipe.ZAdd(ctx, idxKey, redis.Z{Score: float64(now), Member: member})
	_, err := pipe.Exec(ctx)

	return err
}

// UpdateForReceiver 更新接收者的会话（收到消息时，未读数加一）
func (s *ConversationService) UpdateForReceiver(ctx context.Context, userID, peerID, channelID, msgID int64) error {
	now := time.Now().UnixMilli()
	convKey, member := s.buildKeys(userID, peerID, channelID)
	idxKey := rediskey.BuildConversationIndexKey(userID)

	pipe := s.redisClient.Pipeline()
	pipe.HSet(ctx, convKey, "last_msg_id", msgID, "update_at", now)
	pipe.HIncrBy(ctx, convKey, "unread_count", 1)
	pipe.ZAdd(ctx, idxKey, redis.Z{Score: float64(now), Member: member})
	_, err := pipe.Exec(ctx)

	return err
}

// UpdateForChannelMembers 批量更新频道成员会话
func (s *ConversationService) UpdateForChannelMembers(ctx context.Context, memberIDs []int64, senderID, channelID, msgID int64) error {
	now := time.Now().UnixMilli()
	member := rediskey.BuildConversationChannelMember(channelID)

	pipe := s.redisClient.Pipeline()
	for _, userID := range memberIDs {
		convKey := rediskey.BuildConversationChannelKey(userID, channelID)
		idxKey := rediskey.BuildConversationIndexKey(userID)

		pipe.HSet(ctx, convKey, "last_msg_id", msgID, "update_at", now)
		if userID != senderID {
			pipe.HIncrBy(ctx, convKey, "unread_count", 1)
		}
		pipe.ZAdd(ctx, idxKey, redis.Z{Score: float64(now), Member: member})
	}
	_, err := pipe.Exec(ctx)

	return err
}

// MarkRead 标记会话已读
func (s *ConversationService) MarkRead(ctx context.Context, userID, peerID, channelID, lastReadMsgID int64) error {
	convKey, _ := s.buildKeys(userID, peerID, channelID)
	return s.redisClient.HSet(ctx, convKey, "unread_count", 0, "last_read_msg_id", lastReadMsgID).Err()
}

// RemoveChannelConversation 移除用户的频道会话（退出/被移出频道时）
func (s *ConversationService) RemoveChannelConversation(ctx context.Context, userID, channelID int64) error {
	pipe := s.redisClient.Pipeline()
	pipe.Del(ctx, rediskey.BuildConversationChannelKey(userID, channelID))
	pipe.ZRem(ctx, rediskey.BuildConversationIndexKey(userID), rediskey.BuildConversationChannelMember(channelID))
	_, err := pipe.Exec(ctx)
	return err
}

// GetUserConversations 获取用户会话列表（按更新时间倒序）
func (s *ConversationService) GetUserConversations(ctx context.Context, userID int64, offset, limit int64) ([]model.Conversation, error) {
	idxKey := rediskey.BuildConversationIndexKey(userID)

	members, err := s.redisClient.ZRevRange(ctx, idxKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}

	if len(members) == 0 {
		return []model.Conversation{}, nil
	}

	// Pipeline 批量获取会话详情
	pipe := s.redisClient.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))

	for i, m := range members {
		peerID, channelID := s.parseMember(m)
		cmds[i] = pipe.HGetAll(ctx, s.convKeyFor(userID, peerID, channelID))
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return nil, err
	}

	conversations := make([]model.Conversation, 0, len(members))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		peerID, channelID := s.parseMember(members[i])
		conv := model.Conversation{
			PeerID:        peerID,
			ChannelID:     channelID,
			LastMsgID:     s.parseInt64(data["last_msg_id"]),
			LastReadMsgID: s.parseInt64(data["last_read_msg_id"]),
			UnreadCount:   int(s.parseInt64(data["unread_count"])),
			IsPinned:      data["is_pinned"] == "1",
			IsMuted:       data["is_muted"] == "1",
			UpdateAt:      s.parseInt64(data["update_at"]),
		}
		conversations = append(conversations, conv)
	}

	return conversations, nil
}

// GetTotalUnreadCount 获取用户总未读数
func (s *ConversationService) GetTotalUnreadCount(ctx context.Context, userID int64) (int64, error) {
	idxKey := rediskey.BuildConversationIndexKey(userID)

	members, err := s.redisClient.ZRange(ctx, idxKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	if len(members) == 0 {
		return 0, nil
	}

	pipe := s.redisClient.Pipeline()
	cmds := make([]*redis.StringCmd, len(members))

	for i, m := range members {
		peerID, channelID := s.parseMember(m)
		cmds[i] = pipe.HGet(ctx, s.convKeyFor(userID, peerID, channelID), "unread_count")
	}

	_, _ = pipe.Exec(ctx)

	var total int64
	for _, cmd := range cmds {
		count, err := cmd.Int64()
		if err == nil {
			total += count
		}
	}

	return total, nil
}

// buildKeys 根据会话类型构建详情 Key 和索引成员
func (s *ConversationService) buildKeys(userID, peerID, channelID int64) (convKey, member string) {
	if peerID > 0 {
		return rediskey.BuildConversationPeerKey(userID, peerID), rediskey.BuildConversationPeerMember(peerID)
	}
	return rediskey.BuildConversationChannelKey(userID, channelID), rediskey.BuildConversationChannelMember(channelID)
}

func (s *ConversationService) convKeyFor(userID, peerID, channelID int64) string {
	if peerID > 0 {
		return rediskey.BuildConversationPeerKey(userID, peerID)
	}
	return rediskey.BuildConversationChannelKey(userID, channelID)
}

// parseMember 解析索引成员，返回 peerID, channelID
func (s *ConversationService) parseMember(member string) (peerID, channelID int64) {
	if len(member) < 3 {
		return 0, 0
	}
	id, _ := strconv.ParseInt(member[2:], 10, 64)
	if member[0] == 'p' {
		return id, 0
	}
	return 0, id
}

func (s *ConversationService) parseInt64(str string) int64 {
	v, _ := strconv.ParseInt(str, 10, 64)
	return v
}
