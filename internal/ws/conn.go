package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

const (
	pingPeriod   = 20 * time.Second
	writeTimeout = 10 * time.Second

	// 64 KB read limit, enough for SDP payloads
	maxMessageSize = 64 * 1024
)

var (
	errConnClosed  = errors.New("connection closed")
	errSendTimeout = errors.New("send queue full")
)

// Conn wraps one participant's websocket. All writes go through the out
// channel so a single goroutine (WriteLoop) owns the socket's write side.
type Conn struct {
	ws   *websocket.Conn
	out  chan []byte
	done chan struct{}
	once sync.Once

	sendWait time.Duration
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// NewConn wraps a WS connection with a buffered outbound queue
func NewConn(ws *websocket.Conn, sendWait time.Duration) *Conn {
	return &Conn{
		ws:       ws,
		out:      make(chan []byte, 64),
		done:     make(chan struct{}),
		sendWait: sendWait,
	}
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) ([]byte, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return nil, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return data, true
		}
	}
}

// Send queues b for the write loop, waiting at most sendWait. A full queue
// past the timeout or a closed connection is a delivery failure; a slow
// peer must never stall the caller's own receive loop.
func (c *Conn) Send(b []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	t := time.NewTimer(c.sendWait)
	defer t.Stop()

	select {
	case c.out <- b:
		return nil
	case <-c.done:
		return errConnClosed
	case <-t.C:
		return errSendTimeout
	}
}

// Alive reports whether the connection can still accept sends.
func (c *Conn) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// WriteLoop drains outbound messages + sends periodic pings
// Exits on write error, ctx cancel, or Close
func (c *Conn) WriteLoop(ctx context.Context) {
	t := time.NewTicker(pingPeriod)
	defer t.Stop()
	defer c.kill()

	for {
		select {
		case b := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, b)
			cancel()
			if err != nil {
				return
			}
		case <-t.C:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Ping(wctx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// kill marks the connection dead; later Sends fail fast
func (c *Conn) kill() {
	c.once.Do(func() { close(c.done) })
}

// Close closes the WS connection normally
func (c *Conn) Close() error {
	c.kill()
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}
