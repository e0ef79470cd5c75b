package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

func TestMarkRead(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	f.befriend(t, "alice", "bob")
	convId := f.private(t, "alice", "bob")

	t.Run("empty conversation", func(t *testing.T) {
		state, err := f.cursor.MarkRead(f.ctx, "bob", convId)
		require.NoError(t, err)
		assert.Zero(t, state.To)
		assert.Zero(t, state.Fro)
		assert.Empty(t, f.rec.ofType(notify.TypeMessageRead))
	})

	last := f.send(t, "alice", convId, "hello")

	state, err := f.cursor.MarkRead(f.ctx, "bob", convId)
	require.NoError(t, err)
	assert.Equal(t, last, state.To)
	assert.Equal(t, []string{"alice"}, f.rec.recipients(notify.TypeMessageRead))

	t.Run("idempotent", func(t *testing.T) {
		again, err := f.cursor.MarkRead(f.ctx, "bob", convId)
		require.NoError(t, err)
		assert.Equal(t, last, again.To)
		assert.Len(t, f.rec.ofType(notify.TypeMessageRead), 1)
	})

	t.Run("non members", func(t *testing.T) {
		_, err := f.cursor.MarkRead(f.ctx, "carol", convId)
		assert.ErrorIs(t, err, errcode.ErrNotConvMember)
		_, err = f.cursor.MarkRead(f.ctx, "bob", "si_ghost:town")
		assert.ErrorIs(t, err, errcode.ErrConvNotFound)
		_, err = f.cursor.UnreadCount(f.ctx, "carol", convId)
		assert.ErrorIs(t, err, errcode.ErrNotConvMember)
		_, err = f.cursor.ReadersOf(f.ctx, "carol", last)
		assert.ErrorIs(t, err, errcode.ErrNotConvMember)
		_, err = f.cursor.ReadersOf(f.ctx, "bob", 987654)
		assert.ErrorIs(t, err, errcode.ErrMessageNotFound)
	})

	readers, err := f.cursor.ReadersOf(f.ctx, "alice", last)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, readers)

	f.assertCursorsOrdered(t)
}

func TestCursorSeededOnJoin(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	g := f.newGroup(t, "alice", "bob")
	f.befriend(t, "alice", "carol")

	f.send(t, "alice", g.ConversationId, "old one")
	old := f.send(t, "bob", g.ConversationId, "old two")

	invite, err := f.request.InviteToGroup(f.ctx, "alice", &InviteRequest{GroupId: g.Id, UserId: "carol"})
	require.NoError(t, err)
	_, err = f.request.ProcessRequest(f.ctx, "alice", &ProcessRequestRequest{RequestId: invite.Id, Decision: "accept"})
	require.NoError(t, err)

	cursor := f.cursorOf(t, g.ConversationId, "carol")
	assert.Equal(t, old, cursor.Fro)
	assert.Equal(t, old, cursor.To)

	// history from before the join is out of reach, even with an explicit after id
	resp := f.fetch(t, "carol", g.ConversationId, 0)
	assert.Empty(t, resp.Messages)
	assert.Zero(t, resp.UnreadCount)

	fresh := f.send(t, "bob", g.ConversationId, "welcome")
	resp = f.fetch(t, "carol", g.ConversationId, 0)
	assert.Equal(t, []int64{fresh}, messageIds(resp.Messages))
	assert.Equal(t, int64(1), resp.UnreadCount)

	// carol never read the old messages, so she is not listed as a reader
	readers, err := f.cursor.ReadersOf(f.ctx, "carol", old)
	require.NoError(t, err)
	assert.NotContains(t, readers, "carol")

	f.assertCursorsOrdered(t)
}
