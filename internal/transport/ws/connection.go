package ws

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Connection wraps a gorilla websocket connection with a write lock so the
// registry and the session loop can both send safely.
type Connection struct {
	id         string
	socket     *websocket.Conn
	mu         sync.Mutex
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection creates a tracked websocket connection.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:     id,
		socket: socket,
	}
	conn.touch()
	return conn
}

// SendJSON marshals and writes one message to the client.
func (c *Connection) SendJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("connection %s already closed", c.id)
	}
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.socket.WriteJSON(v); err != nil {
		return err
	}
	c.touch()
	return nil
}

// Close sends a normal close frame carrying reason, then tears the socket
// down. Safe to call more than once.
func (c *Connection) Close(reason string) error {
	return c.CloseWithCode(websocket.CloseNormalClosure, reason)
}

// CloseWithCode closes the connection with a specific close code, e.g.
// policy violation for rejected credentials.
func (c *Connection) CloseWithCode(code int, reason string) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.socket.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason))
	c.mu.Unlock()
	return c.socket.Close()
}

// ReadJSON receives one message from the client.
func (c *Connection) ReadJSON(v interface{}) error {
	if err := c.socket.ReadJSON(v); err != nil {
		return err
	}
	c.touch()
	return nil
}

// ID returns the connection identifier (the device id).
func (c *Connection) ID() string {
	return c.id
}

// IsClosed reports whether the connection has already been closed.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// LastActive exposes when the client last interacted with the server.
func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}
