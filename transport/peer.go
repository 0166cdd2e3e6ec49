// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"
	"time"

	"github.com/momentics/esocket/api"
)

// PeerFactory is the immutable template a Listener uses to turn accepted
// sockets into peer connections. Every peer gets its own handler from
// newHandler and the factory's timeout and caps.
type PeerFactory struct {
	newHandler func() Handler
	opts       options
}

// NewPeerFactory returns a factory building peers with handlers from
// newHandler.
func NewPeerFactory(newHandler func() Handler, opts ...Option) *PeerFactory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &PeerFactory{newHandler: newHandler, opts: o}
}

// Timeout returns the timeout given to new peers.
func (f *PeerFactory) Timeout() time.Duration { return f.opts.timeout }

// MaxSend returns the send cap given to new peers.
func (f *PeerFactory) MaxSend() api.Limit { return f.opts.maxSend }

// MaxRecv returns the receive cap given to new peers.
func (f *PeerFactory) MaxRecv() api.Limit { return f.opts.maxRecv }

// Build wraps an accepted socket in a peer bound to l. The peer is not
// started: it dispatches "connected" and begins reading once l has
// recorded it.
func (f *PeerFactory) Build(l *Listener, sock api.Socket, addr net.Addr) *Connection {
	var h Handler
	if f.newHandler != nil {
		h = f.newHandler()
	}
	c := newConnection(l.reactor, sock, h, f.opts)
	c.listener = l
	c.remote = addr
	return c
}
