package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhusq20/CapybaraChat/internal/entity"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
	"github.com/zhusq20/CapybaraChat/pkg/errcode"
)

func friendIds(infos []*entity.FriendInfo) []string {
	ids := make([]string, 0, len(infos))
	for _, f := range infos {
		ids = append(ids, f.UserId)
	}
	return ids
}

func TestFriendRequestAccept(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	sent, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
	require.NoError(t, err)
	assert.Equal(t, constant.RequestStatusPending, sent.Status)
	assert.Equal(t, []string{"bob"}, f.rec.recipients(notify.TypeFriendRequest))

	resolved, err := f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: sent.Id, Decision: constant.DecisionAccept})
	require.NoError(t, err)
	assert.Equal(t, constant.RequestStatusAccept, resolved.Status)

	aliceFriends, err := f.friend.ListFriends(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, friendIds(aliceFriends))
	bobFriends, err := f.friend.ListFriends(f.ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, friendIds(bobFriends))

	got, err := f.request.GetRequest(f.ctx, "alice", sent.Id)
	require.NoError(t, err)
	assert.Equal(t, constant.RequestStatusAccept, got.Status)
	assert.Equal(t, constant.RequestRoleSender, got.Role)
	assert.Equal(t, []string{"alice"}, f.rec.recipients(notify.TypeFriendAdded))

	t.Run("second accept is rejected without side effects", func(t *testing.T) {
		_, err := f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: sent.Id, Decision: constant.DecisionAccept})
		assert.ErrorIs(t, err, errcode.ErrAlreadyProcessed)
		assert.Equal(t, int64(2), f.count(t, &entity.FriendEdge{}, "1 = 1"))
		assert.Len(t, f.rec.ofType(notify.TypeFriendAdded), 1)
	})

	t.Run("reject after accept", func(t *testing.T) {
		_, err := f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: sent.Id, Decision: constant.DecisionReject})
		assert.ErrorIs(t, err, errcode.ErrAlreadyProcessed)
	})

	t.Run("already friends", func(t *testing.T) {
		_, err := f.request.SendFriendRequest(f.ctx, "bob", &FriendRequestRequest{ReceiverId: "alice"})
		assert.ErrorIs(t, err, errcode.ErrAlreadyFriends)
	})

	t.Run("outsider cannot view", func(t *testing.T) {
		_, err := f.user.Register(f.ctx, "carol", &RegisterRequest{Nickname: "c"})
		require.NoError(t, err)
		_, err = f.request.GetRequest(f.ctx, "carol", sent.Id)
		assert.ErrorIs(t, err, errcode.ErrForbidden)
	})
}

// The test store runs on one connection, so the row locks never contend here;
// this checks the outcome, MySQL is where the FOR UPDATE path actually races.
func TestConcurrentAccept(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	sent, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
	require.NoError(t, err)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: sent.Id, Decision: constant.DecisionAccept})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errcode.ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(2), f.count(t, &entity.FriendEdge{}, "1 = 1"))
}

func TestFriendRequestRules(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	t.Run("self", func(t *testing.T) {
		_, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "alice"})
		assert.ErrorIs(t, err, errcode.ErrSelfFriend)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "ghost"})
		assert.ErrorIs(t, err, errcode.ErrUserNotFound)
	})

	t.Run("malformed receiver", func(t *testing.T) {
		_, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "a.b*"})
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})

	t.Run("re-request replaces pending", func(t *testing.T) {
		first, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
		require.NoError(t, err)
		second, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
		require.NoError(t, err)
		assert.NotEqual(t, first.Id, second.Id)

		_, err = f.request.GetRequest(f.ctx, "alice", first.Id)
		assert.ErrorIs(t, err, errcode.ErrRequestNotFound)

		listed, err := f.request.ListFriendRequests(f.ctx, "bob")
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, second.Id, listed[0].Id)
		assert.Equal(t, constant.RequestRoleReceiver, listed[0].Role)
	})

	t.Run("only the receiver resolves", func(t *testing.T) {
		id, err := f.repos.Request.LatestFriendRequestId(f.ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = f.request.ProcessRequest(f.ctx, "alice", &ProcessRequestRequest{RequestId: id, Decision: constant.DecisionAccept})
		assert.ErrorIs(t, err, errcode.ErrNotRequestHandler)
	})

	t.Run("bad decision", func(t *testing.T) {
		id, err := f.repos.Request.LatestFriendRequestId(f.ctx, "alice", "bob")
		require.NoError(t, err)
		_, err = f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: id, Decision: "maybe"})
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})

	t.Run("reject by sender id", func(t *testing.T) {
		info, err := f.request.ProcessFriendRequestFrom(f.ctx, "bob", &ProcessFriendRequestRequest{SenderId: "alice", Decision: constant.DecisionReject})
		require.NoError(t, err)
		assert.Equal(t, constant.RequestStatusReject, info.Status)
		assert.Zero(t, f.count(t, &entity.FriendEdge{}, "1 = 1"))

		// a resolved request stays in the ledger; a new one may follow
		_, err = f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
		require.NoError(t, err)
		listed, err := f.request.ListFriendRequests(f.ctx, "alice")
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, constant.RequestStatusReject, listed[0].Status)
		assert.Equal(t, constant.RequestStatusPending, listed[1].Status)
	})

	t.Run("missing request", func(t *testing.T) {
		_, err := f.request.ProcessRequest(f.ctx, "bob", &ProcessRequestRequest{RequestId: "404", Decision: constant.DecisionAccept})
		assert.ErrorIs(t, err, errcode.ErrRequestNotFound)
	})
}

func TestRemoveFriend(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.befriend(t, "alice", "bob")
	f.rec.reset()

	require.NoError(t, f.friend.RemoveFriend(f.ctx, "bob", &RemoveFriendRequest{FriendId: "alice"}))
	assert.Zero(t, f.count(t, &entity.FriendEdge{}, "1 = 1"))
	assert.Equal(t, []string{"alice"}, f.rec.recipients(notify.TypeFriendRemoved))

	err := f.friend.RemoveFriend(f.ctx, "bob", &RemoveFriendRequest{FriendId: "alice"})
	assert.ErrorIs(t, err, errcode.ErrNotFriends)

	t.Run("half edge is not a friendship", func(t *testing.T) {
		require.NoError(t, f.repos.DB.Create(&entity.FriendEdge{OwnerId: "alice", FriendId: "bob"}).Error)
		err := f.friend.RemoveFriend(f.ctx, "alice", &RemoveFriendRequest{FriendId: "bob"})
		assert.ErrorIs(t, err, errcode.ErrNotFriends)
		assert.Equal(t, int64(1), f.count(t, &entity.FriendEdge{}, "1 = 1"))
	})
}

func TestFriendTags(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol", "dave")
	f.befriend(t, "alice", "bob")
	f.befriend(t, "carol", "alice")

	require.NoError(t, f.friend.SetTag(f.ctx, "alice", &SetTagRequest{FriendIds: []string{"bob", "carol"}, Tag: "work"}))

	tagged, err := f.friend.ListByTag(f.ctx, "alice", "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, friendIds(tagged))

	// tags belong to the owner's edge only
	mirror, err := f.friend.ListByTag(f.ctx, "bob", "work")
	require.NoError(t, err)
	assert.Empty(t, mirror)

	t.Run("non friend aborts the whole update", func(t *testing.T) {
		err := f.friend.SetTag(f.ctx, "alice", &SetTagRequest{FriendIds: []string{"bob", "dave"}, Tag: "home"})
		assert.ErrorIs(t, err, errcode.ErrNotFriends)
		home, err := f.friend.ListByTag(f.ctx, "alice", "home")
		require.NoError(t, err)
		assert.Empty(t, home)
	})

	t.Run("tag length", func(t *testing.T) {
		err := f.friend.SetTag(f.ctx, "alice", &SetTagRequest{FriendIds: []string{"bob"}, Tag: "abcdefghijklmnopqrstu"})
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
		_, err = f.friend.ListByTag(f.ctx, "alice", "")
		assert.ErrorIs(t, err, errcode.ErrInvalidParam)
	})

	t.Run("clear tag", func(t *testing.T) {
		require.NoError(t, f.friend.SetTag(f.ctx, "alice", &SetTagRequest{FriendIds: []string{"bob"}, Tag: ""}))
		tagged, err := f.friend.ListByTag(f.ctx, "alice", "work")
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, friendIds(tagged))
	})
}

func TestConcurrentRequestsKeepOnePending(t *testing.T) {
	f := newFixture(t, "alice", "bob")

	const n = 6
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), f.count(t, &entity.Request{},
		"sender_id = ? AND receiver_id = ? AND status = ?", "alice", "bob", constant.RequestStatusPending))
}

func TestUnregisteredCaller(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	g := f.newGroup(t, "alice")
	sent, err := f.request.SendFriendRequest(f.ctx, "alice", &FriendRequestRequest{ReceiverId: "bob"})
	require.NoError(t, err)

	for _, uid := range []string{"ghost", constant.SentinelUserId} {
		t.Run(uid, func(t *testing.T) {
			_, err := f.request.SendFriendRequest(f.ctx, uid, &FriendRequestRequest{ReceiverId: "bob"})
			assert.ErrorIs(t, err, errcode.ErrNotRegistered)
			_, err = f.request.RequestJoin(f.ctx, uid, &JoinGroupRequest{GroupId: g.Id})
			assert.ErrorIs(t, err, errcode.ErrNotRegistered)
			_, err = f.request.ProcessRequest(f.ctx, uid, &ProcessRequestRequest{RequestId: sent.Id, Decision: constant.DecisionAccept})
			assert.ErrorIs(t, err, errcode.ErrNotRegistered)
			_, err = f.group.CreateGroup(f.ctx, uid, &CreateGroupRequest{Name: "solo"})
			assert.ErrorIs(t, err, errcode.ErrNotRegistered)
		})
	}

	assert.Zero(t, f.count(t, &entity.FriendEdge{}, "1 = 1"))
	assert.Zero(t, f.count(t, &entity.Request{}, "sender_id IN ?", []string{"ghost", constant.SentinelUserId}))
	assert.Equal(t, int64(1), f.count(t, &entity.Group{}, "1 = 1"))
}
