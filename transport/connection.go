// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"bytes"
	"errors"
	"net"
	"time"

	"github.com/momentics/esocket/api"
	"github.com/valyala/bytebufferpool"
)

// State is the lifecycle stage of a Connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var errNotIdle = errors.New("connection is not idle")

var buffers bytebufferpool.Pool

// Connection is a buffered, event-driven stream socket. It is either
// created by the application and connected with Connect, or accepted by a
// Listener, in which case it is a peer of that listener.
type Connection struct {
	BaseSocket

	state   State
	handler Handler

	// listener is set for peers only. It does not own the peer.
	listener *Listener
	remote   net.Addr

	readW    api.Watcher
	writeW   api.Watcher
	timer    api.Watcher
	connectW api.Watcher

	timeout        time.Duration
	connectTimeout time.Duration

	sendBuf *bytebufferpool.ByteBuffer
	recvBuf *bytebufferpool.ByteBuffer
	maxSend api.Limit
	maxRecv api.Limit
	chunk   []byte
}

var _ Socket = (*Connection)(nil)

// NewConnection wraps sock, which must not be connected yet. The
// connection takes ownership of sock.
func NewConnection(r api.Reactor, sock api.Socket, h Handler, opts ...Option) *Connection {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newConnection(r, sock, h, o)
}

func newConnection(r api.Reactor, sock api.Socket, h Handler, o options) *Connection {
	c := &Connection{
		handler:        h,
		connectTimeout: o.connectTimeout,
		sendBuf:        buffers.Get(),
		recvBuf:        buffers.Get(),
		maxSend:        o.maxSend,
		maxRecv:        o.maxRecv,
		chunk:          make([]byte, o.readSize),
	}
	c.init(r, sock, c)
	c.userData = o.userData
	c.readW = r.NewIO(sock.Fd(), api.IORead, c.onReadable)
	c.writeW = r.NewIO(sock.Fd(), api.IOWrite, c.onWritable)
	c.SetTimeout(o.timeout)
	return c
}

// State returns the lifecycle stage.
func (c *Connection) State() State { return c.state }

// Handler returns the external handler, or nil once closed.
func (c *Connection) Handler() Handler { return c.handler }

// Listener returns the listener that accepted this peer. It is nil for
// connections created with NewConnection and after close.
func (c *Connection) Listener() *Listener { return c.listener }

// RemoteAddr returns the address of the other end.
func (c *Connection) RemoteAddr() net.Addr { return c.remote }

// SendLen returns the number of bytes waiting to be written.
func (c *Connection) SendLen() int {
	if c.sendBuf == nil {
		return 0
	}
	return c.sendBuf.Len()
}

// RecvLen returns the number of received bytes not yet consumed by Recv.
func (c *Connection) RecvLen() int {
	if c.recvBuf == nil {
		return 0
	}
	return c.recvBuf.Len()
}

// MaxSend returns the send cap.
func (c *Connection) MaxSend() api.Limit { return c.maxSend }

// SetMaxSend changes the send cap. Already buffered data is kept.
func (c *Connection) SetMaxSend(l api.Limit) { c.maxSend = l }

// MaxRecv returns the receive cap.
func (c *Connection) MaxRecv() api.Limit { return c.maxRecv }

// SetMaxRecv changes the receive cap. Already buffered data is kept.
func (c *Connection) SetMaxRecv(l api.Limit) { c.maxRecv = l }

// Timeout returns the timeout interval, zero when disabled.
func (c *Connection) Timeout() time.Duration { return c.timeout }

// SetTimeout replaces the repeating timeout. Every expiry dispatches
// Handler.Timeout. Zero disables it.
func (c *Connection) SetTimeout(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if d < 0 {
		d = 0
	}
	c.timeout = d
	if d > 0 && c.state != StateClosed {
		c.timer = c.reactor.NewTimer(d, d, c.onTimeout)
		c.timer.Start()
	}
}

// Connect starts a non-blocking connect to addr. Success is reported by a
// "connected" event, failure by an "error" event carrying a ConnectError.
func (c *Connection) Connect(addr net.Addr) {
	if c.state != StateIdle {
		c.dispatchError(&api.ConnectError{Op: "connect", Addr: addr, Err: errNotIdle})
		return
	}
	c.state = StateConnecting
	c.remote = addr

	err := c.sock.Connect(addr)
	switch {
	case err == nil:
		c.established()
	case errors.Is(err, api.ErrInProgress):
		c.writeW.Start()
		if c.connectTimeout > 0 {
			c.connectW = c.reactor.NewTimer(c.connectTimeout, 0, c.onConnectTimeout)
			c.connectW.Start()
		}
	default:
		c.connectFailed(err)
	}
}

// Send queues data for transmission and tries to write it right away.
// If the buffered total would exceed the send cap nothing is queued, a
// SendOverflowError is dispatched and Send returns false. Send also
// returns false when the write fails fatally and the connection closes.
func (c *Connection) Send(data []byte) bool {
	if c.state == StateClosed {
		return false
	}
	if len(data) == 0 {
		return true
	}
	buffered := c.sendBuf.Len()
	if !c.maxSend.Allows(buffered + len(data)) {
		limit, _ := c.maxSend.Get()
		c.dispatchError(&api.SendOverflowError{Buffered: buffered, Rejected: len(data), Limit: limit})
		return false
	}
	_, _ = c.sendBuf.Write(data)
	if c.state == StateActive {
		c.flush()
	}
	// A fatal write error closes the connection inside flush.
	return c.state != StateClosed
}

// Recv removes and returns up to count bytes from the front of the receive
// buffer. A negative count, or one larger than what is buffered, returns
// everything.
func (c *Connection) Recv(count int) []byte {
	if c.recvBuf == nil {
		return nil
	}
	avail := c.recvBuf.Len()
	if count < 0 || count > avail {
		count = avail
	}
	out := make([]byte, count)
	copy(out, c.recvBuf.B)
	consume(c.recvBuf, count)
	if c.state == StateClosed && c.recvBuf.Len() == 0 {
		buffers.Put(c.recvBuf)
		c.recvBuf = nil
	}
	return out
}

// Close terminates the connection. Closing an established connection
// dispatches "disconnected" as its last event; closing one that never
// connected releases it silently. Further calls do nothing.
func (c *Connection) Close() {
	switch c.state {
	case StateClosed:
		return
	case StateIdle, StateConnecting:
		c.teardown()
		c.handler = nil
		c.listener = nil
		return
	}

	c.teardown()
	h := c.handler
	c.handler = nil
	c.dispatchDisconnected(h)
	c.listener = nil
}

// teardown closes the handle and stops every watcher. Once it returns the
// connection is closed and inactive.
func (c *Connection) teardown() {
	c.closeHandle()
	c.readW.Stop()
	c.writeW.Stop()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.connectW != nil {
		c.connectW.Stop()
		c.connectW = nil
	}
	c.active = false
	c.state = StateClosed
	if c.sendBuf != nil {
		buffers.Put(c.sendBuf)
		c.sendBuf = nil
	}
	if c.recvBuf != nil && c.recvBuf.Len() == 0 {
		buffers.Put(c.recvBuf)
		c.recvBuf = nil
	}
}

// start activates an accepted peer.
func (c *Connection) start() {
	c.state = StateActive
	c.active = true
	c.dispatchConnected()
	if c.state == StateActive {
		c.readW.Start()
	}
}

func (c *Connection) established() {
	if c.connectW != nil {
		c.connectW.Stop()
		c.connectW = nil
	}
	c.state = StateActive
	c.active = true
	c.readW.Start()
	c.dispatchConnected()
	if c.state == StateActive {
		c.flush()
	}
}

func (c *Connection) connectFailed(err error) {
	c.teardown()
	c.dispatchError(&api.ConnectError{Op: "connect", Addr: c.remote, Err: err})
	c.handler = nil
}

func (c *Connection) onConnectTimeout() {
	if c.state == StateConnecting {
		c.connectW = nil
		c.connectFailed(api.ErrTimeout)
	}
}

func (c *Connection) onWritable() {
	switch c.state {
	case StateConnecting:
		if err := c.sock.ConnectResult(); err != nil {
			c.connectFailed(err)
			return
		}
		c.established()
	case StateActive:
		c.flush()
	default:
		c.writeW.Stop()
	}
}

// flush writes as much of the send buffer as the socket takes and arms the
// write watcher for the rest.
func (c *Connection) flush() {
	n, err := c.sock.Write(c.sendBuf.B)
	if err != nil && !errors.Is(err, api.ErrWouldBlock) {
		c.lost()
		return
	}
	if n > 0 {
		consume(c.sendBuf, n)
	}
	if c.sendBuf.Len() == 0 {
		c.writeW.Stop()
	} else {
		c.writeW.Start()
	}
}

func (c *Connection) onReadable() {
	if c.state != StateActive {
		return
	}
	n, err := c.sock.Read(c.chunk)
	if err != nil {
		if !errors.Is(err, api.ErrWouldBlock) {
			c.lost()
		}
		return
	}
	if n == 0 {
		c.lost()
		return
	}

	buffered := c.recvBuf.Len()
	if c.maxRecv.Allows(buffered + n) {
		_, _ = c.recvBuf.Write(c.chunk[:n])
	} else {
		limit, _ := c.maxRecv.Get()
		c.dispatchError(&api.ReceiveOverflowError{Buffered: buffered, Rejected: n, Limit: limit})
	}
	if c.state == StateActive && c.recvBuf.Len() > 0 {
		c.dispatchData()
	}
}

// lost handles an orderly or abortive shutdown by the other end.
func (c *Connection) lost() {
	if c.recvBuf != nil && c.recvBuf.Len() > 0 {
		c.dispatchData()
	}
	c.Close()
}

func (c *Connection) onTimeout() {
	c.hcall("timeout", func(h Handler) { h.Timeout(c, nil) })
}

func (c *Connection) dispatchConnected() {
	c.emit(EventConnected, nil)
	c.hcall("connected", func(h Handler) { h.Connected(c, nil) })
}

func (c *Connection) dispatchError(err error) {
	c.emit(EventError, err)
	c.hcall("error", func(h Handler) { h.Error(c, err) })
}

func (c *Connection) dispatchData() {
	snapshot := bytes.Clone(c.recvBuf.B)
	c.hcall("data", func(h Handler) { h.Data(c, snapshot) })
}

func (c *Connection) dispatchDisconnected(h Handler) {
	c.emit(EventDisconnected, nil)
	if h != nil {
		c.call(h, "disconnected", func(h Handler) { h.Disconnected(c, nil) })
	}
}

// hcall invokes the current handler, if any. It reports false when there
// is no handler or the handler panicked.
func (c *Connection) hcall(event string, fn func(Handler)) bool {
	if c.handler == nil {
		return false
	}
	return c.call(c.handler, event, fn)
}

func (c *Connection) call(h Handler, event string, fn func(Handler)) bool {
	ok, fault := capture(event, func() bool {
		fn(h)
		return true
	})
	if fault != nil {
		c.recordFault(fault)
	}
	return ok
}

// consume drops the first n bytes of b, keeping the rest in order.
func consume(b *bytebufferpool.ByteBuffer, n int) {
	b.B = b.B[:copy(b.B, b.B[n:])]
}
