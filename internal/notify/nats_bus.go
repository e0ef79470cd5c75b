package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/nats-io/nats.go"
)

// NatsBus publishes each event on the subject <prefix>.notify.<recipient>
type NatsBus struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNats dials the NATS server with reconnects enabled
func ConnectNats(url, prefix string) (*NatsBus, error) {
	opts := []nats.Option{
		nats.Name("chat-notify"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("nats disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected: %s", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return NewNatsBus(nc, prefix), nil
}

// NewNatsBus wraps an existing connection
func NewNatsBus(nc *nats.Conn, prefix string) *NatsBus {
	return &NatsBus{conn: nc, prefix: prefix}
}

// Subject returns the subject of a user
func (b *NatsBus) Subject(userId string) string {
	return b.prefix + ".notify." + userId
}

// Publish implements Publisher
func (b *NatsBus) Publish(ctx context.Context, e *Event) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}
	return b.conn.Publish(b.Subject(e.Recipient), data)
}

// Subscribe relays every user subject to h until ctx is done
func (b *NatsBus) Subscribe(ctx context.Context, h Handler) error {
	sub, err := b.conn.Subscribe(b.prefix+".notify.*", func(msg *nats.Msg) {
		e, err := Decode(msg.Data)
		if err != nil {
			log.CtxWarn(ctx, "drop malformed event on %s: %v", msg.Subject, err)
			return
		}
		h(ctx, e)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close drains the connection
func (b *NatsBus) Close() error {
	return b.conn.Drain()
}
