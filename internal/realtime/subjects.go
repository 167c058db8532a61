package realtime

import "strconv"

// NATS Subject 常量定义
const (
	// SubjectChannelPrefix 频道事件前缀
	// 完整格式: collab.channel.{channel_id}.events
	SubjectChannelPrefix = "collab.channel."
	SubjectChannelSuffix = ".events"

	// SubjectUserPrefix 用户事件前缀
	// 完整格式: collab.user.{user_id}.events
	SubjectUserPrefix = "collab.user."
	SubjectUserSuffix = ".events"
)

// 事件类型
const (
	EventChannelUpdated    = "channel.updated"
	EventChannelDeleted    = "channel.deleted"
	EventMemberJoined      = "channel.member_joined"
	EventMemberLeft        = "channel.member_left"
	EventMemberRemoved     = "channel.member_removed"
	EventMemberRoleChanged = "channel.member_role_changed"
	EventTaskCreated       = "task.created"
	EventTaskUpdated       = "task.updated"
	EventTaskDeleted       = "task.deleted"
	EventChannelMessage    = "message.channel"
	EventDirectMessage     = "message.direct"
)

// BuildChannelSubject 构建频道事件 Subject
func BuildChannelSubject(channelID int64) string {
	return SubjectChannelPrefix + strconv.FormatInt(channelID, 10) + SubjectChannelSuffix
}

// BuildUserSubject 构建用户事件 Subject
func BuildUserSubject(userID int64) string {
	return SubjectUserPrefix + strconv.FormatInt(userID, 10) + SubjectUserSuffix
}
