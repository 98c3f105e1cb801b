package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/echorelay/internal/config"
)

// Conn is the relay's handle on one WebSocket client. Send is safe to call
// from any number of goroutines; Receive must only be called by the owning
// session.
type Conn struct {
	id           uuid.UUID
	ws           *websocket.Conn
	addr         string
	writeTimeout time.Duration
	pongTimeout  time.Duration

	open      atomic.Bool
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, addr string, cfg *config.Config) *Conn {
	c := &Conn{
		id:           uuid.New(),
		ws:           ws,
		addr:         addr,
		writeTimeout: cfg.WriteTimeout,
	}
	if cfg.PingInterval > 0 {
		c.pongTimeout = cfg.PongTimeout
	}
	c.open.Store(true)

	ws.SetReadLimit(cfg.MaxMessageSize)
	c.setupReadDeadline()
	return c
}

// ID returns the connection's unique identity.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Addr returns the peer's remote address.
func (c *Conn) Addr() string {
	return c.addr
}

// IsOpen reports whether the connection can still be written to.
func (c *Conn) IsOpen() bool {
	return c.open.Load()
}

// Send writes text as a single text frame. A failed write closes the
// connection so that its owning session observes the failure on its next
// read.
func (c *Conn) Send(text string) error {
	if !c.IsOpen() {
		return ErrConnectionClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		c.Close()
		return fmt.Errorf("set write deadline for %s: %w", c.addr, err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		c.Close()
		if isExpectedCloseError(err) {
			return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		return fmt.Errorf("write to %s: %w", c.addr, err)
	}
	return nil
}

// Receive blocks until the next text frame arrives. Non-text frames yield
// ErrUnsupportedFrame; transport closure yields an error wrapping
// ErrConnectionClosed.
func (c *Conn) Receive() (string, error) {
	messageType, data, err := c.ws.ReadMessage()
	if err != nil {
		return "", classifyReadError(err)
	}
	c.extendReadDeadline()

	if messageType != websocket.TextMessage {
		return "", ErrUnsupportedFrame
	}
	return string(data), nil
}

// Ping writes a ping control frame.
func (c *Conn) Ping() error {
	deadline := time.Now().Add(c.writeTimeout)
	if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("ping %s: %w", c.addr, err)
	}
	return nil
}

// Close closes the connection with a normal closure frame.
func (c *Conn) Close() {
	c.closeWith(websocket.CloseNormalClosure, "")
}

// closeWith marks the handle closed, makes a best-effort attempt at a close
// frame, and tears down the transport. Only the first call has any effect.
func (c *Conn) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.ws.Close()
	})
}

func (c *Conn) setupReadDeadline() {
	if c.pongTimeout <= 0 {
		return
	}
	c.extendReadDeadline()
	c.ws.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})
}

func (c *Conn) extendReadDeadline() {
	if c.pongTimeout <= 0 {
		return
	}
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
}
