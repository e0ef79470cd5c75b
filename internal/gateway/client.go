package gateway

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"
	"github.com/mbeoliero/kit/log"
)

// Client is one live websocket connection of a user
type Client struct {
	mu     sync.Mutex
	conn   ClientConn
	UserId string
	ConnId string
	server *WsServer
	closed atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a new client
func NewClient(conn ClientConn, userId, connId string, server *WsServer) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:   conn,
		UserId: userId,
		ConnId: connId,
		server: server,
		ctx:    ctx,
		cancel: cancel,
	}
}

// readLoop serves client frames until the connection fails
func (c *Client) readLoop() {
	defer func() {
		if r := recover(); r != nil {
			log.CtxError(c.ctx, "client read loop panic: user_id=%s, error=%v", c.UserId, r)
		}
		c.close()
	}()

	for {
		message, err := c.conn.ReadMessage()
		if err != nil {
			log.CtxDebug(c.ctx, "read message error: user_id=%s, error=%v", c.UserId, err)
			return
		}
		if c.closed.Load() {
			return
		}

		if err := c.handleMessage(message); err != nil {
			log.CtxWarn(c.ctx, "handle message error: user_id=%s, error=%v", c.UserId, err)
			return
		}
	}
}

// handleMessage answers one client frame; a returned error ends the connection
func (c *Client) handleMessage(message []byte) error {
	var req WSRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return c.reply(&req, ErrInvalidProtocol, nil)
	}

	switch req.ReqIdentifier {
	case WSPing:
		return c.reply(&req, nil, nil)
	case WSGetOnline:
		data, err := c.server.handleGetOnline(c.ctx, req.Data)
		return c.reply(&req, err, data)
	default:
		return c.reply(&req, ErrInvalidProtocol, nil)
	}
}

func (c *Client) reply(req *WSRequest, err error, data []byte) error {
	resp := WSResponse{
		ReqIdentifier: req.ReqIdentifier,
		MsgIncr:       req.MsgIncr,
		Data:          data,
	}
	if err != nil {
		resp.ErrCode = 1
		resp.ErrMsg = err.Error()
	}
	return c.writeResponse(resp)
}

func (c *Client) writeResponse(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(data)
}

// PushEvent writes an already encoded event to the client
func (c *Client) PushEvent(payload []byte) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.writeResponse(WSResponse{ReqIdentifier: WSPushEvent, Data: payload})
}

// KickOnline tells the client it is being disconnected and closes it
func (c *Client) KickOnline() error {
	_ = c.writeResponse(WSResponse{ReqIdentifier: WSKickOnlineMsg})
	return c.Close()
}

// Close closes the client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil
	}

	c.closed.Store(true)
	c.cancel()
	return c.conn.Close()
}

func (c *Client) close() {
	_ = c.Close()
	c.server.UnregisterClient(c)
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}
