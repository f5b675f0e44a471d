// Package transport carries shuttle frames over WebSocket connections. A
// WebSocket connection already frames each message, so no length-prefixed
// framing layer is needed on top; one Conn wraps one upgraded socket, and
// its Counter accounts the bytes moved over that socket.
package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/DenisKolodin/shuttle/internal/logging"
	"github.com/DenisKolodin/shuttle/internal/metrics"
)

// Conn is one upgraded WebSocket connection carrying binary Output/Input
// frames.
type Conn struct {
	ws      *websocket.Conn
	counter *Counter
}

// Upgrader upgrades incoming HTTP requests to WebSocket connections.
type Upgrader struct {
	inner websocket.Upgrader
}

// NewUpgrader returns an Upgrader with the given read/write buffer sizes and
// an origin check left to the caller (mount behind your own auth/CORS
// middleware).
func NewUpgrader(readBuf, writeBuf int, checkOrigin func(*http.Request) bool) *Upgrader {
	return &Upgrader{inner: websocket.Upgrader{
		ReadBufferSize:  readBuf,
		WriteBufferSize: writeBuf,
		CheckOrigin:     checkOrigin,
	}}
}

// Upgrade elevates an HTTP request to a Conn.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := u.inner.Upgrade(w, r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "transport: websocket upgrade failed")
	}
	return &Conn{ws: ws, counter: NewCounter()}, nil
}

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

// SetDeadline bounds the next Recv/Send.
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

// SetReadDeadline bounds the next Recv.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return errors.Wrap(c.ws.SetReadDeadline(t), "transport: set read deadline")
}

// SetWriteDeadline bounds the next Send.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return errors.Wrap(c.ws.SetWriteDeadline(t), "transport: set write deadline")
}

// Recv blocks for the next binary message. io.EOF-equivalent closures are
// reported as context.Canceled-free websocket.CloseError values; callers
// classify those into the dispatcher's ConnectionClosed/ConnectionBroken
// kinds (see errors.go in the root package).
func (c *Conn) Recv() ([]byte, error) {
	kind, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if kind != websocket.BinaryMessage {
		return nil, errors.New("transport: non-binary frame")
	}
	c.counter.incrRead(len(data))
	metrics.BytesIn.Add(float64(len(data)))
	if logging.IsDebugEnabled() {
		logging.Debugf("<--- rcv %d bytes from %s\n", len(data), c.RemoteAddr())
	}
	return data, nil
}

// Send writes one binary message.
func (c *Conn) Send(data []byte) error {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return errors.Wrap(err, "transport: write frame failed")
	}
	c.counter.incrWrote(len(data))
	metrics.BytesOut.Add(float64(len(data)))
	if logging.IsDebugEnabled() {
		logging.Debugf("---> snd %d bytes to %s\n", len(data), c.RemoteAddr())
	}
	return nil
}

// Close terminates the connection with a normal closure handshake when
// ctx has not already expired, falling back to an abrupt close otherwise.
func (c *Conn) Close(ctx context.Context) error {
	select {
	case <-ctx.Done():
	default:
		deadline := time.Now().Add(time.Second)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}
	return c.ws.Close()
}

// Counter exposes the byte counters accumulated on this connection.
func (c *Conn) Counter() *Counter {
	return c.counter
}

// IsClosedErr reports whether err represents an orderly or abrupt peer
// close, as opposed to some other transport failure.
func IsClosedErr(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return true
	}
	if _, ok := err.(*websocket.CloseError); ok {
		return true
	}
	return false
}
