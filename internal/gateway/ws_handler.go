package gateway

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
)

// HandleHertzConnection authenticates and upgrades a websocket request.
// The token is read from ?token= since browsers cannot set headers on upgrade.
func (s *WsServer) HandleHertzConnection(ctx context.Context, c *app.RequestContext, upgrader *websocket.HertzUpgrader) {
	if s.onlineConnNum.Load() >= s.cfg.MaxConnNum {
		c.String(consts.StatusServiceUnavailable, "connection limit exceeded")
		return
	}

	token := c.Query(QueryToken)
	if token == "" {
		token = strings.TrimPrefix(string(c.GetHeader("Authorization")), "Bearer ")
	}
	if token == "" {
		c.String(consts.StatusBadRequest, "missing token")
		return
	}

	claims, err := s.dir.Resolve(ctx, token)
	if err != nil {
		log.CtxDebug(ctx, "websocket token rejected: error=%v", err)
		c.String(consts.StatusUnauthorized, "unauthorized")
		return
	}

	err = upgrader.Upgrade(c, func(conn *websocket.Conn) {
		wsConn := newHertzConn(conn, connOptions{
			maxMsgSize: s.cfg.MaxMessageSize,
			writeWait:  s.cfg.WriteWait,
			pongWait:   s.cfg.PongWait,
			pingPeriod: s.cfg.PingPeriod,
		})
		client := NewClient(wsConn, claims.UserId, uuid.NewString(), s)

		s.registerChan <- client

		// blocks until the connection ends
		client.readLoop()
	})
	if err != nil {
		log.CtxWarn(ctx, "websocket upgrade failed: user_id=%s, error=%v", claims.UserId, err)
	}
}
