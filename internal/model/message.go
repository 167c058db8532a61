package model

import "time"

// ChannelMessage 频道消息
type ChannelMessage struct {
	ID             int64     `json:"id,string" db:"id"`
	ChannelID      int64     `json:"channelId,string" db:"channel_id"`
	SenderID       int64     `json:"senderId,string" db:"sender_id"`
	SenderNickname string    `json:"senderNickname" db:"sender_nickname"`
	Content        string    `json:"content" db:"content"`
	CreateAt       time.Time `json:"createAt" db:"create_at"`
	Deleted        int       `json:"-" db:"deleted"`
}

// DirectMessage 私信
type DirectMessage struct {
	ID             int64     `json:"id,string" db:"id"`
	SenderID       int64     `json:"senderId,string" db:"sender_id"`
	ReceiverID     int64     `json:"receiverId,string" db:"receiver_id"`
	SenderNickname string    `json:"senderNickname" db:"sender_nickname"`
	Content        string    `json:"content" db:"content"`
	CreateAt       time.Time `json:"createAt" db:"create_at"`
	Deleted        int       `json:"-" db:"deleted"`
}

// Conversation 会话摘要（Redis 中维护）
type Conversation struct {
	PeerID        int64 `json:"peerId,string"`    // 私信对端，0 表示频道会话
	ChannelID     int64 `json:"channelId,string"` // 频道ID，0 表示私信会话
	LastMsgID     int64 `json:"lastMsgId,string"`
	LastReadMsgID int64 `json:"lastReadMsgId,string"`
	UnreadCount   int   `json:"unreadCount"`
	IsPinned      bool  `json:"isPinned"`
	IsMuted       bool  `json:"isMuted"`
	UpdateAt      int64 `json:"updateAt"`
}
