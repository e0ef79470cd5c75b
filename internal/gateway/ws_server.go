package gateway

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/zhusq20/CapybaraChat/internal/config"
	"github.com/zhusq20/CapybaraChat/internal/notify"
	"github.com/zhusq20/CapybaraChat/pkg/jwt"
)

// WsServer relays notification events from the bus to live websocket
// connections of their recipients
type WsServer struct {
	cfg            config.WebSocketConfig
	dir            *jwt.Directory
	bus            notify.Bus
	userMap        *UserMap
	registerChan   chan *Client
	unregisterChan chan *Client
	onlineUserNum  atomic.Int64
	onlineConnNum  atomic.Int64
}

// NewWsServer creates a new WebSocket server
func NewWsServer(cfg config.WebSocketConfig, rdb *redis.Client, dir *jwt.Directory, bus notify.Bus) *WsServer {
	return &WsServer{
		cfg:            cfg,
		dir:            dir,
		bus:            bus,
		userMap:        NewUserMap(rdb),
		registerChan:   make(chan *Client, 1000),
		unregisterChan: make(chan *Client, 1000),
	}
}

// Run subscribes to the bus and starts the connection bookkeeping loop
func (s *WsServer) Run(ctx context.Context) error {
	if err := s.bus.Subscribe(ctx, s.relay); err != nil {
		return err
	}
	go s.eventLoop(ctx)
	log.CtxInfo(ctx, "websocket relay started: max_conn=%d", s.cfg.MaxConnNum)
	return nil
}

func (s *WsServer) eventLoop(ctx context.Context) {
	ticker := time.NewTicker(presenceRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case client := <-s.registerChan:
			s.registerClient(ctx, client)
		case client := <-s.unregisterChan:
			s.unregisterClient(ctx, client)
		case <-ticker.C:
			s.userMap.RefreshAll(ctx)
		}
	}
}

// relay writes one event to every local connection of its recipient
func (s *WsServer) relay(ctx context.Context, e *notify.Event) {
	clients, ok := s.userMap.GetAll(e.Recipient)
	if !ok {
		return
	}

	payload, err := e.Encode()
	if err != nil {
		log.CtxError(ctx, "encode event failed: type=%s, error=%v", e.Type, err)
		return
	}

	for _, client := range clients {
		if err := client.PushEvent(payload); err != nil {
			log.CtxDebug(ctx, "push to client failed: user_id=%s, conn_id=%s, error=%v", e.Recipient, client.ConnId, err)
			continue
		}
		notify.RelayedTotal.Inc()
	}
}

func (s *WsServer) registerClient(ctx context.Context, client *Client) {
	if s.userMap.Register(ctx, client) {
		s.onlineUserNum.Add(1)
	}
	s.onlineConnNum.Add(1)

	log.CtxInfo(ctx, "client registered: user_id=%s, conn_id=%s, online_users=%d, online_conns=%d",
		client.UserId, client.ConnId, s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

func (s *WsServer) unregisterClient(ctx context.Context, client *Client) {
	if s.userMap.Unregister(ctx, client) {
		s.onlineUserNum.Add(-1)
	}
	s.onlineConnNum.Add(-1)

	log.CtxInfo(ctx, "client unregistered: user_id=%s, conn_id=%s, online_users=%d, online_conns=%d",
		client.UserId, client.ConnId, s.onlineUserNum.Load(), s.onlineConnNum.Load())
}

// UnregisterClient queues client for unregistration
func (s *WsServer) UnregisterClient(client *Client) {
	select {
	case s.unregisterChan <- client:
	default:
		log.Warn("unregister channel full: user_id=%s", client.UserId)
	}
}

// IsOnline reports whether the user has a live connection on any instance
func (s *WsServer) IsOnline(ctx context.Context, userId string) bool {
	return s.userMap.IsOnline(ctx, userId)
}

// Kick disconnects every local connection of the user
func (s *WsServer) Kick(ctx context.Context, userId string) {
	if n := s.userMap.Kick(userId); n > 0 {
		log.CtxInfo(ctx, "kicked user connections: user_id=%s, conns=%d", userId, n)
	}
}

// GetOnlineConnCount returns online connection count
func (s *WsServer) GetOnlineConnCount() int64 {
	return s.onlineConnNum.Load()
}

func (s *WsServer) handleGetOnline(ctx context.Context, data []byte) ([]byte, error) {
	var req GetOnlineReq
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ErrInvalidProtocol
	}
	if len(req.UserIds) > MaxOnlineQuery {
		return nil, ErrTooManyUsers
	}

	resp := GetOnlineResp{Online: make(map[string]bool, len(req.UserIds))}
	for _, uid := range req.UserIds {
		resp.Online[uid] = s.IsOnline(ctx, uid)
	}
	return json.Marshal(resp)
}
