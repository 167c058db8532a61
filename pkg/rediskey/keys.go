package rediskey

import "strconv"

// Redis Key 常量定义
const (
	// KeyUserTokenPrefix 用户Token: user:token:{user_id}:{platform} -> accessToken
	KeyUserTokenPrefix = "user:token:"

	// KeyTokenInfoPrefix Token信息: token:info:{accessToken} -> userInfo JSON
	KeyTokenInfoPrefix = "token:info:"

	// KeyResetTokenPrefix 密码重置令牌: user:reset:{token} -> userId
	KeyResetTokenPrefix = "user:reset:"

	// KeyConversationPrefix 会话详情前缀
	KeyConversationPrefix = "conv:"

	// KeyConversationIndexPrefix 会话索引（ZSet，按更新时间排序）
	KeyConversationIndexPrefix = "conv:idx:"
)

// BuildUserTokenKey 构建用户Token的Key: user:token:{user_id}:{platform}
func BuildUserTokenKey(userID int64, platform string) string {
	return KeyUserTokenPrefix + strconv.FormatInt(userID, 10) + ":" + platform
}

// BuildTokenInfoKey 构建Token信息的Key: token:info:{accessToken}
func BuildTokenInfoKey(accessToken string) string {
	return KeyTokenInfoPrefix + accessToken
}

// BuildResetTokenKey 构建密码重置令牌的Key: user:reset:{token}
func BuildResetTokenKey(token string) string {
	return KeyResetTokenPrefix + token
}

// BuildConversationPeerKey 构建私信会话Key: conv:{user_id}:p:{peer_id}
func BuildConversationPeerKey(userID, peerID int64) string {
	return KeyConversationPrefix + strconv.FormatInt(userID, 10) + ":p:" + strconv.FormatInt(peerID, 10)
}

// BuildConversationChannelKey 构建频道会话Key: conv:{user_id}:c:{channel_id}
func BuildConversationChannelKey(userID, channelID int64) string {
	return KeyConversationPrefix + strconv.FormatInt(userID, 10) + ":c:" + strconv.FormatInt(channelID, 10)
}

// BuildConversationIndexKey 构建会话索引Key: conv:idx:{user_id}
func BuildConversationIndexKey(userID int64) string {
	return KeyConversationIndexPrefix + strconv.FormatInt(userID, 10)
}

// BuildConversationPeerMember 构建私信会话索引成员: p:{peer_id}
func BuildConversationPeerMember(peerID int64) string {
	return "p:" + strconv.FormatInt(peerID, 10)
}

// BuildConversationChannelMember 构建频道会话索引成员: c:{channel_id}
func BuildConversationChannelMember(channelID int64) string {
	return "c:" + strconv.FormatInt(channelID, 10)
}
