package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

func messageIds(msgs []*entity.MessageInfo) []int64 {
	ids := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.Id)
	}
	return ids
}

func (f *fixture) fetch(t *testing.T, userId, convId string, afterId int64) *FetchMessagesResponse {
	t.Helper()
	resp, err := f.msg.FetchAfter(f.ctx, userId, &FetchMessagesRequest{ConversationId: convId, AfterId: afterId})
	require.NoError(t, err)
	return resp
}

func TestReadAndDelete(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.befriend(t, "alice", "bob")
	convId := f.private(t, "alice", "bob")

	var ids []int64
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		ids = append(ids, f.send(t, "alice", convId, content))
	}
	assert.IsIncreasing(t, ids)
	assert.Len(t, f.rec.ofType(notify.TypeNewMessage), 5)
	assert.Equal(t, []string{"bob"}, dedupe(f.rec.recipients(notify.TypeNewMessage), ""))

	state, err := f.cursor.MarkRead(f.ctx, "bob", convId)
	require.NoError(t, err)
	assert.Equal(t, ids[4], state.To)
	assert.Zero(t, state.UnreadCount)

	sixth := f.send(t, "alice", convId, "m6")
	state, err = f.cursor.UnreadCount(f.ctx, "bob", convId)
	require.NoError(t, err)
	assert.Equal(t, int64(1), state.UnreadCount)

	// the sender's own message never counts as unread
	state, err = f.cursor.UnreadCount(f.ctx, "alice", convId)
	require.NoError(t, err)
	assert.Zero(t, state.UnreadCount)
	assert.Equal(t, sixth, state.To)

	require.NoError(t, f.msg.SoftDelete(f.ctx, "bob", ids[2]))
	require.NoError(t, f.msg.SoftDelete(f.ctx, "bob", ids[2]))

	bobView := f.fetch(t, "bob", convId, 0)
	assert.Equal(t, []int64{ids[0], ids[1], ids[3], ids[4], sixth}, messageIds(bobView.Messages))
	assert.Equal(t, int64(1), bobView.UnreadCount)

	aliceView := f.fetch(t, "alice", convId, 0)
	assert.Equal(t, append(append([]int64{}, ids...), sixth), messageIds(aliceView.Messages))

	t.Run("read_by follows cursors", func(t *testing.T) {
		first := aliceView.Messages[0]
		assert.Equal(t, []string{"alice", "bob"}, first.ReadBy)
		newest := aliceView.Messages[len(aliceView.Messages)-1]
		assert.Equal(t, []string{"alice"}, newest.ReadBy)

		readers, err := f.cursor.ReadersOf(f.ctx, "bob", sixth)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, readers)
	})

	t.Run("after id pages forward", func(t *testing.T) {
		page := f.fetch(t, "alice", convId, ids[3])
		assert.Equal(t, []int64{ids[4], sixth}, messageIds(page.Messages))

		resp, err := f.msg.FetchAfter(f.ctx, "alice", &FetchMessagesRequest{ConversationId: convId, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[0], ids[1]}, messageIds(resp.Messages))
	})

	t.Run("outsiders", func(t *testing.T) {
		assert.ErrorIs(t, f.msg.SoftDelete(f.ctx, "carol", ids[0]), errcode.ErrNotConvMember)
		assert.ErrorIs(t, f.msg.SoftDelete(f.ctx, "bob", 999999), errcode.ErrMessageNotFound)

		_, err := f.msg.FetchAfter(f.ctx, "carol", &FetchMessagesRequest{ConversationId: convId})
		assert.ErrorIs(t, err, errcode.ErrNotConvMember)
		_, err = f.msg.Send(f.ctx, "carol", &SendMessageRequest{ConversationId: convId, Content: "hi"})
		assert.ErrorIs(t, err, errcode.ErrNotConvMember)
		_, err = f.msg.Send(f.ctx, "alice", &SendMessageRequest{ConversationId: "si_x:y", Content: "hi"})
		assert.ErrorIs(t, err, errcode.ErrConvNotFound)
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := f.msg.Send(f.ctx, "alice", &SendMessageRequest{ConversationId: convId})
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})

	f.assertCursorsOrdered(t)
}

func TestReplies(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.befriend(t, "alice", "bob")
	f.befriend(t, "alice", "carol")
	ab := f.private(t, "alice", "bob")
	ac := f.private(t, "alice", "carol")

	root := f.send(t, "alice", ab, "question")
	other := f.send(t, "carol", ac, "elsewhere")

	reply, err := f.msg.Send(f.ctx, "bob", &SendMessageRequest{ConversationId: ab, Content: "answer", ReplyTo: &root})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, root, *reply.ReplyTo)

	_, err = f.msg.Send(f.ctx, "alice", &SendMessageRequest{ConversationId: ab, Content: "again", ReplyTo: &root})
	require.NoError(t, err)

	msgs := f.fetch(t, "alice", ab, 0).Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(2), msgs[0].ReplyCount)
	assert.Nil(t, msgs[0].ReplyTo)

	_, err = f.msg.Send(f.ctx, "alice", &SendMessageRequest{ConversationId: ab, Content: "x", ReplyTo: &other})
	assert.ErrorIs(t, err, errcode.ErrInvalidReply)

	missing := int64(424242)
	_, err = f.msg.Send(f.ctx, "alice", &SendMessageRequest{ConversationId: ab, Content: "x", ReplyTo: &missing})
	assert.ErrorIs(t, err, errcode.ErrInvalidReply)

	// a rejected reply leaves no trace
	assert.Len(t, f.fetch(t, "alice", ab, 0).Messages, 3)
}

func TestSendAfterUnfriend(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.befriend(t, "alice", "bob")
	convId := f.private(t, "alice", "bob")
	kept := f.send(t, "alice", convId, "before")

	require.NoError(t, f.friend.RemoveFriend(f.ctx, "alice", &RemoveFriendRequest{FriendId: "bob"}))

	_, err := f.msg.Send(f.ctx, "bob", &SendMessageRequest{ConversationId: convId, Content: "after"})
	assert.ErrorIs(t, err, errcode.ErrNotFriends)

	// history stays readable
	assert.Equal(t, []int64{kept}, messageIds(f.fetch(t, "bob", convId, 0).Messages))

	f.befriend(t, "bob", "alice")
	f.send(t, "bob", convId, "back again")
}
