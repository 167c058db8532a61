package policy

import (
	"testing"

	"sudooom.collab/internal/model"
	appErrors "sudooom.collab/pkg/errors"
)

const (
	creatorID  = int64(100)
	adminID    = int64(200)
	memberID   = int64(300)
	outsiderID = int64(400)
)

func publicMembership() *model.Membership {
	return &model.Membership{
		Channel: &model.Channel{
			ID:         1,
			Visibility: model.ChannelPublic,
			CreatorID:  creatorID,
		},
		Members: map[int64]int{
			creatorID: model.ChannelRoleCreator,
			adminID:   model.ChannelRoleAdmin,
			memberID:  model.ChannelRoleMember,
		},
	}
}

func privateMembership() *model.Membership {
	m := publicMembership()
	m.Channel.Visibility = model.ChannelPrivate
	m.Channel.InviteCode = "abcdef0123456789"
	return m
}

func TestCanPerform_RoleLadder(t *testing.T) {
	m := publicMembership()

	cases := []struct {
		name   string
		actor  int64
		action Action
		want   bool
	}{
		{"creator deletes channel", creatorID, ActionDeleteChannel, true},
		{"admin cannot delete channel", adminID, ActionDeleteChannel, false},
		{"creator promotes", creatorID, ActionPromoteMember, true},
		{"admin cannot promote", adminID, ActionPromoteMember, false},
		{"admin updates channel", adminID, ActionUpdateChannel, true},
		{"member cannot update channel", memberID, ActionUpdateChannel, false},
		{"admin removes member", adminID, ActionRemoveMember, true},
		{"member cannot remove", memberID, ActionRemoveMember, false},
		{"member posts message", memberID, ActionPostMessage, true},
		{"outsider cannot post", outsiderID, ActionPostMessage, false},
		{"member manages task", memberID, ActionManageTask, true},
		{"outsider cannot manage task", outsiderID, ActionManageTask, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanPerform(m, tc.actor, tc.action); got != tc.want {
				t.Errorf("CanPerform(%d, %d) = %v, want %v", tc.actor, tc.action, got, tc.want)
			}
		})
	}
}

func TestCheckJoin(t *testing.T) {
	m := publicMembership()

	if err := CheckJoin(m, outsiderID); err != nil {
		t.Errorf("Expected outsider to join public channel, got %v", err)
	}
	if err := CheckJoin(m, memberID); !appErrors.Is(err, appErrors.ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}

	private := privateMembership()
	if err := CheckJoin(private, outsiderID); !appErrors.Is(err, appErrors.ErrWrongChannelType) {
		t.Errorf("Expected direct join of private channel to fail, got %v", err)
	}
}

func TestCheckJoinByInvite(t *testing.T) {
	private := privateMembership()

	if err := CheckJoinByInvite(private, outsiderID); err != nil {
		t.Errorf("Expected invite join to succeed, got %v", err)
	}
	if err := CheckJoinByInvite(private, memberID); !appErrors.Is(err, appErrors.ErrAlreadyMember) {
		t.Errorf("Expected ErrAlreadyMember, got %v", err)
	}

	public := publicMembership()
	if err := CheckJoinByInvite(public, outsiderID); !appErrors.Is(err, appErrors.ErrWrongChannelType) {
		t.Errorf("Expected invite join of public channel to fail, got %v", err)
	}
}

func TestCheckLeave(t *testing.T) {
	m := publicMembership()

	if err := CheckLeave(m, memberID); err != nil {
		t.Errorf("Expected member to leave, got %v", err)
	}
	if err := CheckLeave(m, adminID); err != nil {
		t.Errorf("Expected admin to leave, got %v", err)
	}
	if err := CheckLeave(m, creatorID); !appErrors.Is(err, appErrors.ErrCreatorCannotLeave) {
		t.Errorf("Expected ErrCreatorCannotLeave, got %v", err)
	}
	if err := CheckLeave(m, outsiderID); !appErrors.Is(err, appErrors.ErrNotAMember) {
		t.Errorf("Expected ErrNotAMember, got %v", err)
	}
}

func TestCheckPromoteDemote(t *testing.T) {
	m := publicMembership()

	if err := CheckPromote(m, creatorID, memberID); err != nil {
		t.Errorf("Expected creator to promote member, got %v", err)
	}
	if err := CheckPromote(m, adminID, memberID); !appErrors.Is(err, appErrors.ErrPermissionDenied) {
		t.Errorf("Expected admin promote to fail, got %v", err)
	}
	if err := CheckPromote(m, creatorID, outsiderID); !appErrors.Is(err, appErrors.ErrNotAMember) {
		t.Errorf("Expected promoting outsider to fail, got %v", err)
	}

	if err := CheckDemote(m, creatorID, adminID); err != nil {
		t.Errorf("Expected creator to demote admin, got %v", err)
	}
	if err := CheckDemote(m, creatorID, creatorID); !appErrors.Is(err, appErrors.ErrCannotDemoteCreator) {
		t.Errorf("Expected ErrCannotDemoteCreator, got %v", err)
	}
	if err := CheckDemote(m, adminID, memberID); !appErrors.Is(err, appErrors.ErrPermissionDenied) {
		t.Errorf("Expected admin demote to fail, got %v", err)
	}
}

func TestCheckRemove(t *testing.T) {
	m := publicMembership()

	if err := CheckRemove(m, adminID, memberID); err != nil {
		t.Errorf("Expected admin to remove member, got %v", err)
	}
	if err := CheckRemove(m, creatorID, adminID); err != nil {
		t.Errorf("Expected creator to remove admin, got %v", err)
	}
	if err := CheckRemove(m, adminID, creatorID); !appErrors.Is(err, appErrors.ErrCannotRemoveCreator) {
		t.Errorf("Expected ErrCannotRemoveCreator, got %v", err)
	}
	if err := CheckRemove(m, memberID, adminID); !appErrors.Is(err, appErrors.ErrPermissionDenied) {
		t.Errorf("Expected member remove to fail, got %v", err)
	}
	if err := CheckRemove(m, adminID, outsiderID); !appErrors.Is(err, appErrors.ErrNotAMember) {
		t.Errorf("Expected removing outsider to fail, got %v", err)
	}
}

func TestValidateInvariants(t *testing.T) {
	if !ValidateInvariants(publicMembership()) {
		t.Error("Expected public membership to be valid")
	}
	if !ValidateInvariants(privateMembership()) {
		t.Error("Expected private membership to be valid")
	}

	// 创建者不在成员中
	m := publicMembership()
	delete(m.Members, creatorID)
	if ValidateInvariants(m) {
		t.Error("Expected missing creator to be invalid")
	}

	// 第二个创建者角色
	m = publicMembership()
	m.Members[memberID] = model.ChannelRoleCreator
	if ValidateInvariants(m) {
		t.Error("Expected duplicate creator role to be invalid")
	}

	// 公开频道带邀请码
	m = publicMembership()
	m.Channel.InviteCode = "deadbeef"
	if ValidateInvariants(m) {
		t.Error("Expected public channel with invite code to be invalid")
	}

	// 私有频道缺少邀请码
	m = privateMembership()
	m.Channel.InviteCode = ""
	if ValidateInvariants(m) {
		t.Error("Expected private channel without invite code to be invalid")
	}
}
