package shuttle

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/DenisKolodin/shuttle/internal/rights"
	"github.com/DenisKolodin/shuttle/internal/transport"
	"github.com/DenisKolodin/shuttle/internal/wire"
)

// frameConn is the bidirectional message-framed channel the dispatcher
// requires from its transport. *transport.Conn is the production
// implementation; tests substitute an in-memory pipe.
type frameConn interface {
	Recv() ([]byte, error)
	Send([]byte) error
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// RequestOrResume is the result of Context.RecvRequestOrResume: exactly one
// of (ServiceName, Request) or TaskID is meaningful, selected by IsResume.
type RequestOrResume struct {
	IsResume    bool
	ServiceName string
	Request     Request
	TaskID      uint32
}

// NextOrSuspend is the result of Context.RecvNextOrSuspend.
type NextOrSuspend struct {
	Suspend bool
	Request *Request
}

// Context owns the client WebSocket connection and the per-connection state
// T. It is accessed exclusively by the foreground worker during
// Prepare/Realize; parked workers hold no reference to it.
type Context[T any] struct {
	conn   frameConn
	state  T
	rights rights.Rights
	connID string
	log    *zerolog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration

	sentReady bool
}

func newContext[T any](conn frameConn, state T, r rights.Rights, connID string, log *zerolog.Logger) *Context[T] {
	return &Context[T]{conn: conn, state: state, rights: r, connID: connID, log: log}
}

// setTimeouts installs the idle deadlines applied before each Recv/Send.
// Zero disables a deadline; the dispatcher itself imposes no implicit
// timeouts.
func (c *Context[T]) setTimeouts(read, write time.Duration) {
	c.readTimeout = read
	c.writeTimeout = write
}

// State returns a pointer to the per-connection state, for workers to read
// and mutate.
func (c *Context[T]) State() *T { return &c.state }

// Rights returns the capability set granted to this connection.
func (c *Context[T]) Rights() rights.Rights { return c.rights }

// Require returns an error unless capability is granted to this
// connection. Meant to be called from Prepare, so a denied caller is
// rejected before any Item is emitted.
func (c *Context[T]) Require(capability string) error {
	return c.rights.Require(capability)
}

// ConnID returns the connection's short, log-friendly identifier.
func (c *Context[T]) ConnID() string { return c.connID }

// Log returns a structured logger carrying this connection's id, for
// workers that want more than the package-level Debugf/Warnf/Errorf calls
// the transport layer uses.
func (c *Context[T]) Log() *zerolog.Logger { return c.log }

// SetDeadline bounds the next Recv/Send on the underlying connection.
func (c *Context[T]) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

// recv reads and decodes the next Input frame, translating transport
// failures and malformed frames into DispatchErrors.
func (c *Context[T]) recv() (wire.Input, error) {
	if c.readTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return wire.Input{}, errConnectionBroken(err)
		}
	}
	raw, err := c.conn.Recv()
	if err != nil {
		if transport.IsClosedErr(err) {
			return wire.Input{}, errConnectionClosed()
		}
		return wire.Input{}, errConnectionBroken(err)
	}
	in, err := wire.DecodeInput(raw)
	if err != nil {
		return wire.Input{}, errMalformed(err)
	}
	return in, nil
}

// Send writes out. Valid at any point in the session.
func (c *Context[T]) Send(out wire.Output) error {
	raw, err := wire.EncodeOutput(out)
	if err != nil {
		return errMalformed(err)
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errConnectionBroken(err)
		}
	}
	if err := c.conn.Send(raw); err != nil {
		if transport.IsClosedErr(err) {
			return errConnectionClosed()
		}
		return errConnectionBroken(err)
	}
	if out.Kind == wire.OutputReady {
		c.sentReady = true
	} else {
		c.sentReady = false
	}
	return nil
}

// RecvRequestOrResume blocks for the next Call or Resume. It is valid only
// when no worker is in the foreground. A Cancel surfaces as ErrCanceled;
// any other Input variant is an UnexpectedInput error.
func (c *Context[T]) RecvRequestOrResume() (RequestOrResume, error) {
	in, err := c.recv()
	if err != nil {
		return RequestOrResume{}, err
	}
	switch in.Kind {
	case wire.InputCall:
		return RequestOrResume{ServiceName: in.ServiceName, Request: in.Request}, nil
	case wire.InputResume:
		return RequestOrResume{IsResume: true, TaskID: in.TaskID}, nil
	case wire.InputCancel:
		return RequestOrResume{}, ErrCanceled
	default:
		return RequestOrResume{}, errUnexpectedInput("recv_request_or_resume")
	}
}

// RecvNextOrSuspend blocks for the next Next, Suspend, or Cancel. It is
// valid only immediately after a Ready was sent; a Suspend may only occur
// in response to a Ready. Any other Input variant is an UnexpectedInput
// error.
func (c *Context[T]) RecvNextOrSuspend() (NextOrSuspend, error) {
	if !c.sentReady {
		return NextOrSuspend{}, errUnexpectedInput("recv_next_or_suspend before ready")
	}
	in, err := c.recv()
	if err != nil {
		return NextOrSuspend{}, err
	}
	switch in.Kind {
	case wire.InputNext:
		if in.Request == nil {
			return NextOrSuspend{}, nil
		}
		req := in.Request
		return NextOrSuspend{Request: &req}, nil
	case wire.InputSuspend:
		return NextOrSuspend{Suspend: true}, nil
	case wire.InputCancel:
		return NextOrSuspend{}, ErrCanceled
	default:
		return NextOrSuspend{}, errUnexpectedInput("recv_next_or_suspend")
	}
}
