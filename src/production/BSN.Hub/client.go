package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	config "gitlab.com/boardsense1/bsn.dashboard_server/src/production/BSN.Config"
)

// Allowed time for a single write to complete.
const writeWait = 10 * time.Second

var (
	// ErrConnClosed is returned by Send after the connection has been closed.
	ErrConnClosed = errors.New("connection closed")

	// ErrSlowConsumer is returned when the outbound buffer is full. The hub
	// treats it as a send failure and prunes the connection, so one stalled
	// client cannot delay delivery to the rest of a scope.
	ErrSlowConsumer = errors.New("slow consumer, send buffer full")
)

// WSConn adapts a gorilla WebSocket connection to the hub's Connection
// interface. Outbound messages go through a buffered channel drained by a
// dedicated writer goroutine; Send never blocks.
type WSConn struct {
	ws          *websocket.Conn
	send        chan []byte
	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
}

// NewWSConn wraps ws and starts its writer goroutine.
func NewWSConn(ws *websocket.Conn, cfg config.HubConfig) *WSConn {
	c := &WSConn{
		ws:          ws,
		send:        make(chan []byte, cfg.SendBuffer),
		idleTimeout: cfg.IdleTimeout,
		done:        make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send marshals v to JSON and queues it for delivery. It fails immediately
// when the buffer is full or the connection is closed.
func (c *WSConn) Send(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSlowConsumer
	}
}

// Close tears the connection down. In-flight queued messages may be dropped.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.ws.Close()
}

// ReadLoop consumes client messages until the connection drops, refreshing
// the idle deadline on every message and pong. It returns when the peer
// disconnects or stays silent past the idle timeout.
func (c *WSConn) ReadLoop(onMessage func(data []byte)) {
	_ = c.ws.SetReadDeadline(time.Now().Add(c.idleTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.idleTimeout))
	})
	for {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.idleTimeout))
		if onMessage != nil {
			onMessage(msg)
		}
	}
}

func (c *WSConn) writePump() {
	pingPeriod := c.idleTimeout * 9 / 10
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
