package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bharatsonwane/team-orbit-sub001/internal/infrastructure/tenant"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 128
)

var (
	ErrConnectionClosed = errors.New("realtime: connection closed")
	ErrBufferExceeded   = errors.New("realtime: connection buffer exceeded")
)

// Socket is the part of *websocket.Conn the write side needs.
type Socket interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Connection wraps a socket and serializes outbound writes through a buffered
// channel. Identity fields are set once by Authenticate, before the
// connection is registered anywhere.
type Connection struct {
	ID       string
	UserID   int64
	TenantID *int64
	Bundle   *tenant.Bundle

	ws    Socket
	send  chan []byte
	once  sync.Once
	close chan struct{}
	done  chan struct{}

	closeCode   int
	closeReason string
}

// NewConnection wraps ws and starts its write loop.
func NewConnection(ws Socket) *Connection {
	c := &Connection{
		ID:    uuid.NewString(),
		ws:    ws,
		send:  make(chan []byte, sendBuffer),
		close: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Authenticate attaches the verified identity and its handle bundle.
func (c *Connection) Authenticate(userID int64, tenantID *int64, bundle *tenant.Bundle) {
	c.UserID = userID
	c.TenantID = tenantID
	c.Bundle = bundle
}

func (c *Connection) Authenticated() bool {
	return c.UserID > 0
}

// Send enqueues payload. A client that lets the buffer fill is disconnected.
func (c *Connection) Send(payload []byte) error {
	select {
	case <-c.close:
		return ErrConnectionClosed
	default:
	}

	select {
	case <-c.close:
		return ErrConnectionClosed
	case c.send <- payload:
		return nil
	default:
		c.Close(websocket.CloseGoingAway, "send buffer full")
		return ErrBufferExceeded
	}
}

// Close flushes queued payloads, sends a close frame and releases the handle
// bundle. Safe to call more than once.
func (c *Connection) Close(code int, reason string) {
	c.once.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.close)
		c.Bundle.Release()
	})
}

// Done is closed once the socket itself is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

func (c *Connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.close:
			c.flush()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(c.closeCode, c.closeReason), time.Now().Add(writeWait))
			_ = c.ws.Close()
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.Close(websocket.CloseInternalServerErr, "write failed")
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseInternalServerErr, "ping failed")
			}
		}
	}
}

func (c *Connection) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
