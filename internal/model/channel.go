package model

import "time"

// ChannelVisibility 频道可见性
const (
	ChannelPrivate = 0 // 私有，需邀请码加入
	ChannelPublic  = 1 // 公开，可直接加入
)

// ChannelMemberRole 频道成员角色
const (
	ChannelRoleMember  = 0 // 成员
	ChannelRoleAdmin   = 1 // 管理员
	ChannelRoleCreator = 2 // 创建者
)

// Channel 频道
type Channel struct {
	ID          int64     `json:"id,string" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Visibility  int       `json:"visibility" db:"visibility"`
	CreatorID   int64     `json:"creatorId,string" db:"creator_id"`
	InviteCode  string    `json:"-" db:"invite_code"`
	CreateAt    time.Time `json:"createAt" db:"create_at"`
	UpdateAt    time.Time `json:"updateAt" db:"update_at"`
	Deleted     int       `json:"-" db:"deleted"`
}

// IsPublic 是否为公开频道
func (c *Channel) IsPublic() bool {
	return c.Visibility == ChannelPublic
}

// ChannelMember 频道成员
type ChannelMember struct {
	ID        int64     `json:"id,string" db:"id"`
	ChannelID int64     `json:"channelId,string" db:"channel_id"`
	UserID    int64     `json:"userId,string" db:"user_id"`
	Role      int       `json:"role" db:"role"`
	CreateAt  time.Time `json:"createAt" db:"create_at"`
	UpdateAt  time.Time `json:"updateAt" db:"update_at"`
	Deleted   int       `json:"-" db:"deleted"`
}

// ChannelWithMemberCount 带成员数量的频道
type ChannelWithMemberCount struct {
	Channel
	MemberCount int `json:"memberCount"`
}

// ChannelMemberWithUser 带用户信息的频道成员
type ChannelMemberWithUser struct {
	ChannelMember
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// Membership 频道成员快照，供权限判断使用
type Membership struct {
	Channel *Channel
	Members map[int64]int // userID -> role
}

// RoleOf 返回用户在频道中的角色，不是成员返回 -1
func (m *Membership) RoleOf(userID int64) int {
	role, ok := m.Members[userID]
	if !ok {
		return -1
	}
	return role
}

// IsMember 是否为成员
func (m *Membership) IsMember(userID int64) bool {
	_, ok := m.Members[userID]
	return ok
}

// IsAdmin 是否为管理员（创建者始终视为管理员）
func (m *Membership) IsAdmin(userID int64) bool {
	role := m.RoleOf(userID)
	return role == ChannelRoleAdmin || role == ChannelRoleCreator
}

// IsCreator 是否为创建者
func (m *Membership) IsCreator(userID int64) bool {
	return m.Channel != nil && m.Channel.CreatorID == userID
}
