package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sudooom.collab/internal/model"
	"sudooom.collab/internal/realtime"
	"sudooom.collab/internal/repository"
	appErrors "sudooom.collab/pkg/errors"
	"sudooom.collab/pkg/snowflake"
)

// fakeChannelRepo 内存频道存储，行为对齐 repository.ChannelRepository
type fakeChannelRepo struct {
	channels map[int64]*model.Channel
	members  map[int64]map[int64]int // channelID -> userID -> role
}

func newFakeChannelRepo() *fakeChannelRepo {
	return &fakeChannelRepo{
		channels: make(map[int64]*model.Channel),
		members:  make(map[int64]map[int64]int),
	}
}

func (f *fakeChannelRepo) Create(_ context.Context, channel *model.Channel, _ int64) error {
	f.channels[channel.ID] = channel
	f.members[channel.ID] = map[int64]int{channel.CreatorID: model.ChannelRoleCreator}
	return nil
}

func (f *fakeChannelRepo) GetByID(_ context.Context, id int64) (*model.Channel, error) {
	channel, ok := f.channels[id]
	if !ok {
		return nil, repository.ErrChannelNotFound
	}
	return channel, nil
}

func (f *fakeChannelRepo) GetByInviteCode(_ context.Context, code string) (*model.Channel, error) {
	for _, channel := range f.channels {
		if channel.InviteCode != "" && channel.InviteCode == code {
			return channel, nil
		}
	}
	return nil, repository.ErrChannelNotFound
}

func (f *fakeChannelRepo) GetMembership(_ context.Context, channelID int64) (*model.Membership, error) {
	channel, ok := f.channels[channelID]
	if !ok {
		return nil, repository.ErrChannelNotFound
	}
	members := make(map[int64]int, len(f.members[channelID]))
	for userID, role := range f.members[channelID] {
		members[userID] = role
	}
	return &model.Membership{Channel: channel, Members: members}, nil
}

func (f *fakeChannelRepo) Update(_ context.Context, channel *model.Channel) error {
	if _, ok := f.channels[channel.ID]; !ok {
		return repository.ErrChannelNotFound
	}
	f.channels[channel.ID] = channel
	return nil
}

func (f *fakeChannelRepo) UpdateInviteCode(_ context.Context, channelID int64, code string) error {
	channel, ok := f.channels[channelID]
	if !ok {
		return repository.ErrChannelNotFound
	}
	channel.InviteCode = code
	return nil
}

func (f *fakeChannelRepo) Delete(_ context.Context, id int64) error {
	delete(f.channels, id)
	delete(f.members, id)
	return nil
}

func (f *fakeChannelRepo) AddMember(_ context.Context, member *model.ChannelMember) error {
	members := f.members[member.ChannelID]
	if _, ok := members[member.UserID]; ok {
		return repository.ErrAlreadyChannelMember
	}
	members[member.UserID] = member.Role
	return nil
}

func (f *fakeChannelRepo) RemoveMember(_ context.Context, channelID, userID int64) error {
	members := f.members[channelID]
	if _, ok := members[userID]; !ok {
		return repository.ErrChannelMemberNotFound
	}
	delete(members, userID)
	return nil
}

func (f *fakeChannelRepo) UpdateMemberRole(_ context.Context, channelID, userID int64, role int) error {
	members := f.members[channelID]
	if _, ok := members[userID]; !ok {
		return repository.ErrChannelMemberNotFound
	}
	members[userID] = role
	return nil
}

func (f *fakeChannelRepo) GetUserChannels(_ context.Context, userID int64) ([]*model.ChannelWithMemberCount, error) {
	var result []*model.ChannelWithMemberCount
	for id, members := range f.members {
		if _, ok := members[userID]; ok {
			result = append(result, &model.ChannelWithMemberCount{
				Channel:     *f.channels[id],
				MemberCount: len(members),
			})
		}
	}
	return result, nil
}

func (f *fakeChannelRepo) GetPublicChannels(_ context.Context, _, _ int) ([]*model.ChannelWithMemberCount, error) {
	var result []*model.ChannelWithMemberCount
	for id, channel := range f.channels {
		if channel.IsPublic() {
			result = append(result, &model.ChannelWithMemberCount{
				Channel:     *channel,
				MemberCount: len(f.members[id]),
			})
		}
	}
	return result, nil
}

func (f *fakeChannelRepo) GetMembers(_ context.Context, channelID int64) ([]*model.ChannelMemberWithUser, error) {
	var result []*model.ChannelMemberWithUser
	for userID, role := range f.members[channelID] {
		result = append(result, &model.ChannelMemberWithUser{
			ChannelMember: model.ChannelMember{ChannelID: channelID, UserID: userID, Role: role},
		})
	}
	return result, nil
}

func (f *fakeChannelRepo) GetUserChannelIDs(_ context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for id, members := range f.members {
		if _, ok := members[userID]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeChannelRepo) SharesChannel(_ context.Context, userID, otherID int64) (bool, error) {
	for _, members := range f.members {
		_, a := members[userID]
		_, b := members[otherID]
		if a && b {
			return true, nil
		}
	}
	return false, nil
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	channelEvents []*realtime.Event
	userEvents    map[int64][]*realtime.Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{userEvents: make(map[int64][]*realtime.Event)}
}

func (p *recordingPublisher) PublishToChannel(_ int64, event *realtime.Event) error {
	p.channelEvents = append(p.channelEvents, event)
	return nil
}

func (p *recordingPublisher) PublishToUser(userID int64, event *realtime.Event) error {
	p.userEvents[userID] = append(p.userEvents[userID], event)
	return nil
}

func (p *recordingPublisher) lastChannelEvent() *realtime.Event {
	if len(p.channelEvents) == 0 {
		return nil
	}
	return p.channelEvents[len(p.channelEvents)-1]
}

func newTestChannelService(t *testing.T) (*ChannelService, *fakeChannelRepo, *recordingPublisher) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := newFakeChannelRepo()
	pub := newRecordingPublisher()
	return NewChannelService(repo, node, pub), repo, pub
}

func TestCreateChannel_Visibility(t *testing.T) {
	svc, _, _ := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPrivate, private.Visibility)
	assert.NotEmpty(t, private.InviteCode, "private channel should carry an invite code")

	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPublic, public.Visibility)
	assert.Empty(t, public.InviteCode, "public channel should not carry an invite code")
}

func TestJoinChannel(t *testing.T) {
	svc, _, pub := newTestChannelService(t)
	ctx := context.Background()

	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)

	require.NoError(t, svc.JoinChannel(ctx, 2, public.ID))
	assert.Equal(t, realtime.EventMemberJoined, pub.lastChannelEvent().Type)
	// 新成员单独收到通知，驱动其连接订阅新频道
	require.NotEmpty(t, pub.userEvents[2], "joining user should be notified directly")
	assert.Equal(t, realtime.EventMemberJoined, pub.userEvents[2][len(pub.userEvents[2])-1].Type)

	// 重复加入
	err = svc.JoinChannel(ctx, 2, public.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyMember))

	// 私有频道不能直接加入
	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)
	err = svc.JoinChannel(ctx, 2, private.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrWrongChannelType))

	// 不存在的频道
	err = svc.JoinChannel(ctx, 2, 999999)
	assert.True(t, appErrors.Is(err, appErrors.ErrChannelNotFound))
}

func TestJoinChannelByInviteCode(t *testing.T) {
	svc, _, pub := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)

	joined, err := svc.JoinChannelByInviteCode(ctx, 2, private.InviteCode)
	require.NoError(t, err)
	assert.Equal(t, private.ID, joined.ID)
	require.NotEmpty(t, pub.userEvents[2], "joining user should be notified directly")

	_, err = svc.JoinChannelByInviteCode(ctx, 3, "no-such-code")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidInviteCode))
}

func TestGenerateInviteCode_InvalidatesOldCode(t *testing.T) {
	svc, _, _ := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)
	oldCode := private.InviteCode

	newCode, err := svc.GenerateInviteCode(ctx, 1, private.ID)
	require.NoError(t, err)
	require.NotEqual(t, oldCode, newCode)

	// 旧码失效
	_, err = svc.JoinChannelByInviteCode(ctx, 2, oldCode)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidInviteCode))

	// 新码可用
	_, err = svc.JoinChannelByInviteCode(ctx, 2, newCode)
	assert.NoError(t, err)
}

func TestGenerateInviteCode_Permissions(t *testing.T) {
	svc, _, _ := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)
	_, err = svc.JoinChannelByInviteCode(ctx, 2, private.InviteCode)
	require.NoError(t, err)

	// 普通成员不能重新生成
	_, err = svc.GenerateInviteCode(ctx, 2, private.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	// 公开频道没有邀请码
	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)
	_, err = svc.GenerateInviteCode(ctx, 1, public.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrWrongChannelType))
}

func TestLeaveChannel(t *testing.T) {
	svc, repo, _ := newTestChannelService(t)
	ctx := context.Background()

	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)
	require.NoError(t, svc.JoinChannel(ctx, 2, public.ID))

	// 创建者不能退出
	err = svc.LeaveChannel(ctx, 1, public.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrCreatorCannotLeave))

	// 成员退出后可以重新加入
	require.NoError(t, svc.LeaveChannel(ctx, 2, public.ID))
	m, err := repo.GetMembership(ctx, public.ID)
	require.NoError(t, err)
	assert.False(t, m.IsMember(2))
	require.NoError(t, svc.JoinChannel(ctx, 2, public.ID))
}

func TestPromoteDemoteRemove(t *testing.T) {
	svc, repo, pub := newTestChannelService(t)
	ctx := context.Background()

	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)
	require.NoError(t, svc.JoinChannel(ctx, 2, public.ID))
	require.NoError(t, svc.JoinChannel(ctx, 3, public.ID))

	// 只有创建者能提升
	err = svc.PromoteToAdmin(ctx, 2, public.ID, 3)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	require.NoError(t, svc.PromoteToAdmin(ctx, 1, public.ID, 2))
	m, err := repo.GetMembership(ctx, public.ID)
	require.NoError(t, err)
	assert.True(t, m.IsAdmin(2))

	// 管理员可以移除普通成员
	require.NoError(t, svc.RemoveMember(ctx, 2, public.ID, 3))
	assert.NotEmpty(t, pub.userEvents[3], "removed user should be notified directly")

	// 管理员不能移除创建者
	err = svc.RemoveMember(ctx, 2, public.ID, 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrCannotRemoveCreator))

	// 创建者不能被降级
	err = svc.DemoteFromAdmin(ctx, 1, public.ID, 1)
	assert.True(t, appErrors.Is(err, appErrors.ErrCannotDemoteCreator))

	require.NoError(t, svc.DemoteFromAdmin(ctx, 1, public.ID, 2))
	m, err = repo.GetMembership(ctx, public.ID)
	require.NoError(t, err)
	assert.False(t, m.IsAdmin(2))
	assert.True(t, m.IsMember(2))
}

func TestUpdateChannel_VisibilityFlip(t *testing.T) {
	svc, _, _ := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)

	// 转公开清空邀请码
	public := true
	updated, err := svc.UpdateChannel(ctx, 1, private.ID, &UpdateChannelRequest{IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPublic, updated.Visibility)
	assert.Empty(t, updated.InviteCode)

	// 转私有重新生成邀请码
	public = false
	updated, err = svc.UpdateChannel(ctx, 1, private.ID, &UpdateChannelRequest{IsPublic: &public})
	require.NoError(t, err)
	assert.Equal(t, model.ChannelPrivate, updated.Visibility)
	assert.NotEmpty(t, updated.InviteCode)
}

func TestGetChannel_InviteCodeVisibility(t *testing.T) {
	svc, _, _ := newTestChannelService(t)
	ctx := context.Background()

	private, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "读书会", IsPublic: false})
	require.NoError(t, err)
	_, err = svc.JoinChannelByInviteCode(ctx, 2, private.InviteCode)
	require.NoError(t, err)

	_, code, err := svc.GetChannel(ctx, 1, private.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, code, "creator should see the invite code")

	_, code, err = svc.GetChannel(ctx, 2, private.ID)
	require.NoError(t, err)
	assert.Empty(t, code, "regular member should not see the invite code")
}

func TestDeleteChannel(t *testing.T) {
	svc, repo, pub := newTestChannelService(t)
	ctx := context.Background()

	public, err := svc.CreateChannel(ctx, 1, &CreateChannelRequest{Name: "公告栏", IsPublic: true})
	require.NoError(t, err)
	require.NoError(t, svc.JoinChannel(ctx, 2, public.ID))

	// 管理员也不能删除，只有创建者可以
	require.NoError(t, svc.PromoteToAdmin(ctx, 1, public.ID, 2))
	err = svc.DeleteChannel(ctx, 2, public.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrPermissionDenied))

	require.NoError(t, svc.DeleteChannel(ctx, 1, public.ID))
	assert.Equal(t, realtime.EventChannelDeleted, pub.lastChannelEvent().Type)

	_, err = repo.GetByID(ctx, public.ID)
	assert.ErrorIs(t, err, repository.ErrChannelNotFound)
}
