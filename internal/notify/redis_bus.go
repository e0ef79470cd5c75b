package notify

import (
	"context"
	"fmt"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"
	"github.com/zhusq20/CapybaraChat/pkg/constant"
)

// RedisBus publishes each event on the recipient's redis channel
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates a RedisBus
func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

// Channel returns the redis channel of a user
func Channel(userId string) string {
	return fmt.Sprintf(constant.RedisKeyNotify(), userId)
}

// Publish implements Publisher
func (b *RedisBus) Publish(ctx context.Context, e *Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel(e.Recipient), data).Err()
}

// Subscribe relays every user channel to h until ctx is done
func (b *RedisBus) Subscribe(ctx context.Context, h Handler) error {
	ps := b.rdb.PSubscribe(ctx, constant.RedisNotifyPattern())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return err
	}

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				e, err := Decode([]byte(msg.Payload))
				if err != nil {
					log.CtxWarn(ctx, "drop malformed event on %s: %v", msg.Channel, err)
					continue
				}
				h(ctx, e)
			}
		}
	}()
	return nil
}

// Close is a no-op; the redis client is owned by the repositories
func (b *RedisBus) Close() error {
	return nil
}
