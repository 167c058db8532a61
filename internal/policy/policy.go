// Package policy 集中频道角色权限判断。
// 所有函数都是纯函数，只依赖传入的成员快照，调用方负责先从数据库
// 取得最新的 Membership，再做判断，避免基于过期角色做决定。
package policy

import (
	"sudooom.collab/internal/model"
	appErrors "sudooom.collab/pkg/errors"
)

// Action 频道操作
type Action int

const (
	ActionUpdateChannel Action = iota // 修改频道信息
	ActionDeleteChannel               // 删除频道
	ActionGenerateInvite              // 重新生成邀请码
	ActionPromoteMember               // 提升管理员
	ActionDemoteMember                // 取消管理员
	ActionRemoveMember                // 移除成员
	ActionPostMessage                 // 发频道消息
	ActionManageTask                  // 管理频道任务
)

// CanPerform 判断 actor 是否可以在频道上执行指定操作
func CanPerform(m *model.Membership, actor int64, action Action) bool {
	switch action {
	case ActionDeleteChannel, ActionPromoteMember, ActionDemoteMember:
		return m.IsCreator(actor)
	case ActionUpdateChannel, ActionGenerateInvite, ActionRemoveMember:
		return m.IsAdmin(actor)
	case ActionPostMessage, ActionManageTask:
		return m.IsMember(actor)
	default:
		return false
	}
}

// CheckJoin 校验直接加入（仅公开频道）
func CheckJoin(m *model.Membership, actor int64) error {
	if m.IsMember(actor) {
		return appErrors.ErrAlreadyMember
	}
	if !m.Channel.IsPublic() {
		return appErrors.ErrWrongChannelType
	}
	return nil
}

// CheckJoinByInvite 校验通过邀请码加入（仅私有频道）
func CheckJoinByInvite(m *model.Membership, actor int64) error {
	if m.Channel.IsPublic() {
		return appErrors.ErrWrongChannelType
	}
	if m.IsMember(actor) {
		return appErrors.ErrAlreadyMember
	}
	return nil
}

// CheckLeave 校验退出频道
func CheckLeave(m *model.Membership, actor int64) error {
	if !m.IsMember(actor) {
		return appErrors.ErrNotAMember
	}
	if m.IsCreator(actor) {
		return appErrors.ErrCreatorCannotLeave
	}
	return nil
}

// CheckPromote 校验提升管理员：仅创建者可操作，目标必须是成员
func CheckPromote(m *model.Membership, actor, target int64) error {
	if !m.IsCreator(actor) {
		return appErrors.ErrPermissionDenied
	}
	if !m.IsMember(target) {
		return appErrors.ErrNotAMember
	}
	return nil
}

// CheckDemote 校验取消管理员：仅创建者可操作，创建者不可被降级
func CheckDemote(m *model.Membership, actor, target int64) error {
	if !m.IsCreator(actor) {
		return appErrors.ErrPermissionDenied
	}
	if m.IsCreator(target) {
		return appErrors.ErrCannotDemoteCreator
	}
	if !m.IsMember(target) {
		return appErrors.ErrNotAMember
	}
	return nil
}

// CheckRemove 校验移除成员：管理员可操作，创建者不可被移除
func CheckRemove(m *model.Membership, actor, target int64) error {
	if !m.IsAdmin(actor) {
		return appErrors.ErrPermissionDenied
	}
	if m.IsCreator(target) {
		return appErrors.ErrCannotRemoveCreator
	}
	if !m.IsMember(target) {
		return appErrors.ErrNotAMember
	}
	return nil
}

// ValidateInvariants 校验频道成员不变式：
// 创建者必须在成员中且角色为创建者，管理员/创建者都是成员。
// 用于测试和调试断言。
func ValidateInvariants(m *model.Membership) bool {
	if m.Channel == nil {
		return false
	}
	role, ok := m.Members[m.Channel.CreatorID]
	if !ok || role != model.ChannelRoleCreator {
		return false
	}
	for userID, r := range m.Members {
		if r == model.ChannelRoleCreator && userID != m.Channel.CreatorID {
			return false
		}
		if r != model.ChannelRoleMember && r != model.ChannelRoleAdmin && r != model.ChannelRoleCreator {
			return false
		}
	}
	// 邀请码当且仅当私有频道存在
	if m.Channel.IsPublic() && m.Channel.InviteCode != "" {
		return false
	}
	if !m.Channel.IsPublic() && m.Channel.InviteCode == "" {
		return false
	}
	return true
}
