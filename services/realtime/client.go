package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/meryambn/mimiScaleUp-sub005/core"
)

type client struct {
	id       uuid.UUID
	identity core.Identity
	conn     *websocket.Conn

	// send is never closed; `done` signals the writer to stop instead.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, id core.Identity, bufSize int) *client {
	return &client{
		id:       uuid.New(),
		identity: id,
		conn:     conn,
		send:     make(chan []byte, bufSize),
		done:     make(chan struct{}),
	}
}

// deliver queues msg without blocking. It returns false when the buffer is full or the client is closed.
func (c *client) deliver(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) readPump(ctx context.Context, h *Hub, handler Handler) {
	if h.conf.MaxMessageSize > 0 {
		c.conn.SetReadLimit(h.conf.MaxMessageSize)
	}
	extendDeadline := func() error {
		if h.conf.PongTimeout <= 0 {
			return nil
		}
		return c.conn.SetReadDeadline(time.Now().Add(h.conf.PongTimeout))
	}
	_ = extendDeadline()
	c.conn.SetPongHandler(func(string) error { return extendDeadline() })

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("realtime read failed", err, c.identity)
			}
			return
		}
		_ = extendDeadline()

		var f Frame
		if err = json.Unmarshal(raw, &f); err != nil || f.Event == "" {
			h.replyError(c, core.NewValidationError(nil, core.FieldError{Field: "event", Error: "invalid frame"}))
			continue
		}
		if err = handler.HandleEvent(ctx, c.identity, f.Event, f.Data); err != nil {
			h.replyError(c, err)
		}
	}
}

// writePump is the only writer of the connection.
func (c *client) writePump(conf core.RealtimeConfig) {
	var tick <-chan time.Time
	if conf.PingInterval > 0 {
		ticker := time.NewTicker(conf.PingInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	deadline := func() time.Time {
		if conf.WriteTimeout <= 0 {
			return time.Time{}
		}
		return time.Now().Add(conf.WriteTimeout)
	}
	// a failed write closes the connection, which ends the reader too
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(deadline())
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-tick:
			_ = c.conn.SetWriteDeadline(deadline())
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				deadline(),
			)
			return
		}
	}
}
