package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhusq20/CapybaraChat/internal/config"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (f *fakeConn) ReadMessage() ([]byte, error) { return nil, ErrConnClosed }

func (f *fakeConn) WriteMessage(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) responses(t *testing.T) []WSResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WSResponse, 0, len(f.frames))
	for _, frame := range f.frames {
		var resp WSResponse
		require.NoError(t, json.Unmarshal(frame, &resp))
		out = append(out, resp)
	}
	return out
}

func newTestServer(t *testing.T) (*WsServer, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewWsServer(config.WebSocketConfig{MaxConnNum: 10}, rdb, nil, nil), mr
}

func TestUserMap(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestServer(t)
	m := s.userMap
	key := fmt.Sprintf(constant.RedisKeyOnline(), "alice")

	c1 := NewClient(&fakeConn{}, "alice", "c1", s)
	c2 := NewClient(&fakeConn{}, "alice", "c2", s)

	assert.True(t, m.Register(ctx, c1))
	assert.False(t, m.Register(ctx, c2))
	assert.True(t, mr.Exists(key))

	clients, ok := m.GetAll("alice")
	require.True(t, ok)
	assert.Len(t, clients, 2)

	assert.False(t, m.Unregister(ctx, c1))
	assert.True(t, m.IsOnline(ctx, "alice"))
	assert.True(t, m.Unregister(ctx, c2))
	assert.False(t, mr.Exists(key))
	assert.False(t, m.IsOnline(ctx, "alice"))

	t.Run("remote presence", func(t *testing.T) {
		require.NoError(t, mr.Set(fmt.Sprintf(constant.RedisKeyOnline(), "bob"), "1"))
		assert.True(t, m.IsOnline(ctx, "bob"))
		assert.False(t, m.HasConnection("bob"))
	})

	t.Run("refresh sets ttl", func(t *testing.T) {
		m.Register(ctx, c1)
		mr.Del(key)
		m.RefreshAll(ctx)
		assert.True(t, mr.Exists(key))
		assert.Equal(t, OnlineTTL, mr.TTL(key))
	})
}

func TestRelay(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)

	conn1, conn2, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	s.userMap.Register(ctx, NewClient(conn1, "alice", "c1", s))
	s.userMap.Register(ctx, NewClient(conn2, "alice", "c2", s))
	s.userMap.Register(ctx, NewClient(other, "bob", "c3", s))

	s.relay(ctx, &notify.Event{Type: notify.TypeNewMessage, Recipient: "alice", Actor: "bob", MessageId: 9, Ts: 1})
	s.relay(ctx, &notify.Event{Type: notify.TypeFriendAdded, Recipient: "nobody", Ts: 1})

	for _, conn := range []*fakeConn{conn1, conn2} {
		resps := conn.responses(t)
		require.Len(t, resps, 1)
		assert.EqualValues(t, WSPushEvent, resps[0].ReqIdentifier)

		e, err := notify.Decode(resps[0].Data)
		require.NoError(t, err)
		assert.Equal(t, notify.TypeNewMessage, e.Type)
		assert.Equal(t, int64(9), e.MessageId)
	}
	assert.Empty(t, other.responses(t))
}

func TestClientFrames(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestServer(t)
	s.userMap.Register(ctx, NewClient(&fakeConn{}, "bob", "c9", s))

	conn := &fakeConn{}
	c := NewClient(conn, "alice", "c1", s)

	require.NoError(t, c.handleMessage([]byte(`{"req_identifier":1002,"msg_incr":"p1"}`)))
	require.NoError(t, c.handleMessage([]byte(`{"req_identifier":1001,"msg_incr":"q1","data":{"user_ids":["bob","carol"]}}`)))
	require.NoError(t, c.handleMessage([]byte(`{"req_identifier":4242}`)))

	resps := conn.responses(t)
	require.Len(t, resps, 3)

	assert.Equal(t, "p1", resps[0].MsgIncr)
	assert.Zero(t, resps[0].ErrCode)

	var online GetOnlineResp
	require.NoError(t, json.Unmarshal(resps[1].Data, &online))
	assert.Equal(t, map[string]bool{"bob": true, "carol": false}, online.Online)

	assert.Equal(t, 1, resps[2].ErrCode)
	assert.Equal(t, ErrInvalidProtocol.Error(), resps[2].ErrMsg)

	t.Run("closed client drops pushes", func(t *testing.T) {
		require.NoError(t, c.Close())
		assert.ErrorIs(t, c.PushEvent([]byte(`{}`)), ErrConnClosed)
	})
}
