package gateway

import (
	"sync"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
)

// ClientConn is the transport a Client writes frames to
type ClientConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// connOptions tunes a websocket connection
type connOptions struct {
	maxMsgSize int64
	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	bufferSize int
}

// hertzConn implements ClientConn on top of hertz-contrib/websocket with a
// single writer goroutine
type hertzConn struct {
	conn      *websocket.Conn
	opts      connOptions
	writeChan chan []byte
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    bool
	closeChan chan struct{}
}

func newHertzConn(conn *websocket.Conn, opts connOptions) *hertzConn {
	if opts.bufferSize <= 0 {
		opts.bufferSize = 256
	}
	c := &hertzConn{
		conn:      conn,
		opts:      opts,
		writeChan: make(chan []byte, opts.bufferSize),
		closeChan: make(chan struct{}),
	}

	conn.SetReadLimit(opts.maxMsgSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.pongWait))
	})

	go c.writeLoop()
	return c
}

func (c *hertzConn) writeLoop() {
	ticker := time.NewTicker(c.opts.pingPeriod)
	defer func() {
		ticker.Stop()
		if r := recover(); r != nil {
			log.Debug("ws write loop recovered: %v", r)
		}
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.writeChan:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, frame); err != nil {
				log.Debug("ws write error: %v", err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				log.Debug("ws ping error: %v", err)
				return
			}

		case <-c.closeChan:
			return
		}
	}
}

func (c *hertzConn) write(messageType int, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnClosed
		}
	}()

	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// ReadMessage blocks for the next client frame
func (c *hertzConn) ReadMessage() ([]byte, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.pongWait))
	_, message, err := c.conn.ReadMessage()
	return message, err
}

// WriteMessage queues a frame; a slow consumer gets ErrWriteChannelFull
func (c *hertzConn) WriteMessage(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrConnClosed
	}

	select {
	case c.writeChan <- data:
		return nil
	default:
		return ErrWriteChannelFull
	}
}

// Close stops the writer; the underlying socket is closed by writeLoop
func (c *hertzConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.closed = true
		close(c.writeChan)
		c.writeMu.Unlock()

		close(c.closeChan)
	})
	return nil
}
