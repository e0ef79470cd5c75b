package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
}

func (p *recordingPublisher) Publish(ctx context.Context, e *Event) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) snapshot() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func counterValue(t *testing.T, typ, result string) float64 {
	m := &dto.Metric{}
	require.NoError(t, EventsTotal.WithLabelValues(typ, result).Write(m))
	return m.GetCounter().GetValue()
}

func TestFanout(t *testing.T) {
	events := Fanout(Event{Type: TypeNewMessage, Actor: "alice", ConversationId: "si_alice:bob"},
		[]string{"alice", "bob", "carol"}, "alice")

	require.Len(t, events, 2)
	assert.Equal(t, "bob", events[0].Recipient)
	assert.Equal(t, "carol", events[1].Recipient)
	for _, e := range events {
		assert.Equal(t, TypeNewMessage, e.Type)
		assert.Equal(t, "alice", e.Actor)
		assert.NotZero(t, e.Ts)
	}
}

func TestEventCodec(t *testing.T) {
	in := &Event{Type: TypeFriendRequest, Recipient: "bob", Actor: "alice", RequestId: "42", Ts: 7}
	data, err := in.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"friend_request"`)
	assert.NotContains(t, string(data), "message_id")

	out, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestDispatcher(t *testing.T) {
	t.Run("delivers queued events", func(t *testing.T) {
		pub := &recordingPublisher{}
		d := NewDispatcher(pub, 8, 2)
		ctx, cancel := context.WithCancel(context.Background())
		d.Run(ctx)

		d.Emit(ctx, Fanout(Event{Type: TypeGroupJoined, GroupId: "g1"}, []string{"a", "b", "c"}, "")...)

		require.Eventually(t, func() bool { return len(pub.snapshot()) == 3 }, time.Second, 10*time.Millisecond)
		cancel()
		d.Wait()
	})

	t.Run("drops when the queue is full", func(t *testing.T) {
		pub := &recordingPublisher{}
		d := NewDispatcher(pub, 1, 1)
		ctx := context.Background()
		before := counterValue(t, TypeMessageRead, resultDropped)

		// no workers running, so the second batch finds the queue full
		d.Emit(ctx, Event{Type: TypeMessageRead, Recipient: "a"})
		d.Emit(ctx, Event{Type: TypeMessageRead, Recipient: "b"}, Event{Type: TypeMessageRead, Recipient: "c"})

		assert.Equal(t, before+2, counterValue(t, TypeMessageRead, resultDropped))
		assert.Empty(t, pub.snapshot())
	})

	t.Run("emit never blocks on a slow publisher", func(t *testing.T) {
		pub := &recordingPublisher{block: make(chan struct{})}
		d := NewDispatcher(pub, 1, 1)
		ctx, cancel := context.WithCancel(context.Background())
		d.Run(ctx)

		done := make(chan struct{})
		go func() {
			for i := 0; i < 10; i++ {
				d.Emit(ctx, Event{Type: TypeGroupNotice, Recipient: "x"})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("emit blocked")
		}
		close(pub.block)
		cancel()
		d.Wait()
	})

	t.Run("empty emit is ignored", func(t *testing.T) {
		d := NewDispatcher(&recordingPublisher{}, 1, 1)
		d.Emit(context.Background())
		assert.Len(t, d.queue, 0)
	})
}

func TestRedisBus(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	bus := NewRedisBus(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *Event, 4)
	require.NoError(t, bus.Subscribe(ctx, func(ctx context.Context, e *Event) {
		received <- e
	}))

	require.NoError(t, bus.Publish(ctx, &Event{Type: TypeFriendAdded, Recipient: "bob", Actor: "alice", Ts: 1}))

	select {
	case e := <-received:
		assert.Equal(t, TypeFriendAdded, e.Type)
		assert.Equal(t, "bob", e.Recipient)
		assert.Equal(t, "alice", e.Actor)
	case <-time.After(2 * time.Second):
		t.Fatal("event not relayed")
	}

	assert.Equal(t, "chat:notify:bob", Channel("bob"))
}

func TestNatsSubject(t *testing.T) {
	bus := NewNatsBus(nil, "chat")
	assert.Equal(t, "chat.notify.alice", bus.Subject("alice"))
}
