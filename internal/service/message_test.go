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

// fakeMessageRepo 内存消息存储
type fakeMessageRepo struct {
	channelMessages []*model.ChannelMessage
	directMessages  []*model.DirectMessage
}

func (f *fakeMessageRepo) CreateChannelMessage(_ context.Context, msg *model.ChannelMessage) error {
	f.channelMessages = append(f.channelMessages, msg)
	return nil
}

func (f *fakeMessageRepo) CreateDirectMessage(_ context.Context, msg *model.DirectMessage) error {
	f.directMessages = append(f.directMessages, msg)
	return nil
}

func (f *fakeMessageRepo) GetChannelMessages(_ context.Context, channelID int64, _ int) ([]*model.ChannelMessage, error) {
	var result []*model.ChannelMessage
	for _, msg := range f.channelMessages {
		if msg.ChannelID == channelID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (f *fakeMessageRepo) GetDirectMessages(_ context.Context, userID, peerID int64) ([]*model.DirectMessage, error) {
	var result []*model.DirectMessage
	for _, msg := range f.directMessages {
		if (msg.SenderID == userID && msg.ReceiverID == peerID) ||
			(msg.SenderID == peerID && msg.ReceiverID == userID) {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (f *fakeMessageRepo) DeleteChannelMessage(_ context.Context, msgID, senderID int64) error {
	for i, msg := range f.channelMessages {
		if msg.ID == msgID && msg.SenderID == senderID {
			f.channelMessages = append(f.channelMessages[:i], f.channelMessages[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

func (f *fakeMessageRepo) DeleteDirectMessage(_ context.Context, msgID, senderID int64) error {
	for i, msg := range f.directMessages {
		if msg.ID == msgID && msg.SenderID == senderID {
			f.directMessages = append(f.directMessages[:i], f.directMessages[i+1:]...)
			return nil
		}
	}
	return repository.ErrMessageNotFound
}

// fakeProfiles 昵称查询
type fakeProfiles struct {
	users map[int64]*model.User
}

func (f *fakeProfiles) GetByID(_ context.Context, id int64) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

// recordingConversations 记录会话更新调用
type recordingConversations struct {
	senderCalls   int
	receiverCalls int
	channelCalls  int
	lastMemberIDs []int64
	lastSenderID  int64
}

func (r *recordingConversations) UpdateForSender(_ context.Context, _, _, _, _ int64) error {
	r.senderCalls++
	return nil
}

func (r *recordingConversations) UpdateForReceiver(_ context.Context, _, _, _, _ int64) error {
	r.receiverCalls++
	return nil
}

func (r *recordingConversations) UpdateForChannelMembers(_ context.Context, memberIDs []int64, senderID, _, _ int64) error {
	r.channelCalls++
	r.lastMemberIDs = memberIDs
	r.lastSenderID = senderID
	return nil
}

// 固定拓扑：频道 10 里有 1(创建者)、2、3；用户 4 不在任何频道
func newTestMessageService(t *testing.T) (*MessageService, *fakeMessageRepo, *recordingConversations, *recordingPublisher) {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	channelRepo := newFakeChannelRepo()
	channelRepo.channels[10] = &model.Channel{ID: 10, Name: "聊天室", Visibility: model.ChannelPublic, CreatorID: 1}
	channelRepo.members[10] = map[int64]int{
		1: model.ChannelRoleCreator,
		2: model.ChannelRoleMember,
		3: model.ChannelRoleMember,
	}

	profiles := &fakeProfiles{users: map[int64]*model.User{
		1: {ID: 1, Username: "alice", Nickname: "Alice"},
		2: {ID: 2, Username: "bob", Nickname: "Bob"},
		3: {ID: 3, Username: "carol", Nickname: "Carol"},
		4: {ID: 4, Username: "dave", Nickname: "Dave"},
	}}

	msgRepo := &fakeMessageRepo{}
	conversations := &recordingConversations{}
	pub := newRecordingPublisher()
	svc := NewMessageService(msgRepo, channelRepo, profiles, conversations, pub, node)
	return svc, msgRepo, conversations, pub
}

func TestSendChannelMessage(t *testing.T) {
	svc, _, conversations, pub := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.SendChannelMessage(ctx, 2, 10, "  大家好  ")
	require.NoError(t, err)
	assert.Equal(t, "大家好", msg.Content, "content is trimmed")
	assert.Equal(t, "Bob", msg.SenderNickname, "nickname denormalized at send time")
	assert.NotZero(t, msg.ID)

	// 所有成员的会话都更新，未读由发送者身份区分
	require.Equal(t, 1, conversations.channelCalls)
	assert.Len(t, conversations.lastMemberIDs, 3)
	assert.Equal(t, int64(2), conversations.lastSenderID)

	event := pub.lastChannelEvent()
	require.NotNil(t, event)
	assert.Equal(t, realtime.EventChannelMessage, event.Type)
}

func TestSendChannelMessage_Rejections(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	_, err := svc.SendChannelMessage(ctx, 2, 10, "   ")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidParams))

	_, err = svc.SendChannelMessage(ctx, 4, 10, "我是外人")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAMember))

	_, err = svc.SendChannelMessage(ctx, 2, 999, "查无此频道")
	assert.True(t, appErrors.Is(err, appErrors.ErrChannelNotFound))
}

func TestCanMessageUser(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	allowed, err := svc.CanMessageUser(ctx, 2, 3)
	require.NoError(t, err)
	assert.True(t, allowed, "shared channel allows dm")

	// 对称性
	allowed, err = svc.CanMessageUser(ctx, 3, 2)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = svc.CanMessageUser(ctx, 2, 4)
	require.NoError(t, err)
	assert.False(t, allowed, "no shared channel")

	allowed, err = svc.CanMessageUser(ctx, 2, 2)
	require.NoError(t, err)
	assert.False(t, allowed, "cannot dm yourself")
}

func TestSendDirectMessage(t *testing.T) {
	svc, _, conversations, pub := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.SendDirectMessage(ctx, 2, 3, "晚上吃什么")
	require.NoError(t, err)
	assert.Equal(t, "Bob", msg.SenderNickname)

	assert.Equal(t, 1, conversations.senderCalls)
	assert.Equal(t, 1, conversations.receiverCalls)

	// 双方都收到实时事件
	assert.Len(t, pub.userEvents[2], 1)
	assert.Len(t, pub.userEvents[3], 1)
	assert.Equal(t, realtime.EventDirectMessage, pub.userEvents[3][0].Type)
}

func TestSendDirectMessage_Rejections(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	_, err := svc.SendDirectMessage(ctx, 2, 2, "自言自语")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidParams))

	_, err = svc.SendDirectMessage(ctx, 2, 3, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidParams))

	_, err = svc.SendDirectMessage(ctx, 2, 4, "陌生人你好")
	assert.True(t, appErrors.Is(err, appErrors.ErrCannotMessageUser))
}

func TestGetChannelMessages_MemberOnly(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	_, err := svc.SendChannelMessage(ctx, 2, 10, "第一条")
	require.NoError(t, err)

	msgs, err := svc.GetChannelMessages(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	_, err = svc.GetChannelMessages(ctx, 4, 10)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAMember))
}

func TestGetDirectMessages(t *testing.T) {
	svc, _, _, _ := newTestMessageService(t)
	ctx := context.Background()

	_, err := svc.SendDirectMessage(ctx, 2, 3, "在吗")
	require.NoError(t, err)
	_, err = svc.SendDirectMessage(ctx, 3, 2, "在")
	require.NoError(t, err)

	// 双向消息合并在同一会话里
	msgs, err := svc.GetDirectMessages(ctx, 2, 3)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = svc.GetDirectMessages(ctx, 2, 4)
	assert.True(t, appErrors.Is(err, appErrors.ErrCannotMessageUser))
}

func TestDeleteMessage_SenderOnly(t *testing.T) {
	svc, repo, _, _ := newTestMessageService(t)
	ctx := context.Background()

	msg, err := svc.SendChannelMessage(ctx, 2, 10, "手滑发错")
	require.NoError(t, err)

	err = svc.DeleteChannelMessage(ctx, 3, msg.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrMessageNotFound), "only the sender may delete")

	require.NoError(t, svc.DeleteChannelMessage(ctx, 2, msg.ID))
	assert.Empty(t, repo.channelMessages)

	dm, err := svc.SendDirectMessage(ctx, 2, 3, "撤回测试")
	require.NoError(t, err)
	err = svc.DeleteDirectMessage(ctx, 3, dm.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrMessageNotFound))
	require.NoError(t, svc.DeleteDirectMessage(ctx, 2, dm.ID))
}
