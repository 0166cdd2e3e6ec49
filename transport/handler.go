// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

// Handler receives the lifecycle and data events of one Connection.
//
// Data is given a snapshot of the whole receive buffer, not only the bytes
// that just arrived. The buffer is drained only through Connection.Recv, so
// a handler may leave an incomplete record in place and look at it again on
// the next call.
type Handler interface {
	Connected(c *Connection, data any)
	Data(c *Connection, buf []byte)
	Timeout(c *Connection, data any)
	Error(c *Connection, err error)
	Disconnected(c *Connection, data any)
}

// NopHandler ignores every event. Embed it to implement only some methods.
type NopHandler struct{}

func (NopHandler) Connected(*Connection, any)    {}
func (NopHandler) Data(*Connection, []byte)      {}
func (NopHandler) Timeout(*Connection, any)      {}
func (NopHandler) Error(*Connection, error)      {}
func (NopHandler) Disconnected(*Connection, any) {}

// HandlerFuncs adapts plain functions to Handler. Nil fields are skipped.
type HandlerFuncs struct {
	OnConnected    func(c *Connection)
	OnData         func(c *Connection, buf []byte)
	OnTimeout      func(c *Connection)
	OnError        func(c *Connection, err error)
	OnDisconnected func(c *Connection)
}

var _ Handler = (*HandlerFuncs)(nil)

func (h *HandlerFuncs) Connected(c *Connection, _ any) {
	if h.OnConnected != nil {
		h.OnConnected(c)
	}
}

func (h *HandlerFuncs) Data(c *Connection, buf []byte) {
	if h.OnData != nil {
		h.OnData(c, buf)
	}
}

func (h *HandlerFuncs) Timeout(c *Connection, _ any) {
	if h.OnTimeout != nil {
		h.OnTimeout(c)
	}
}

func (h *HandlerFuncs) Error(c *Connection, err error) {
	if h.OnError != nil {
		h.OnError(c, err)
	}
}

func (h *HandlerFuncs) Disconnected(c *Connection, _ any) {
	if h.OnDisconnected != nil {
		h.OnDisconnected(c)
	}
}
