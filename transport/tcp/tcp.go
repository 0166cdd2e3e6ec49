// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"net"

	"github.com/momentics/esocket/api"
	itransport "github.com/momentics/esocket/internal/transport"
	"github.com/momentics/esocket/transport"
	"github.com/pkg/errors"
)

// ResolveAddr resolves a host:port string to a TCP address.
func ResolveAddr(addr string) (*net.TCPAddr, error) {
	a, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %q", addr)
	}
	return a, nil
}

// Dial creates a connection and starts connecting it to addr. The outcome
// is reported to h as "connected" or as "error" with a ConnectError.
// Only resolution and socket creation failures are returned directly.
func Dial(r api.Reactor, addr string, h transport.Handler, opts ...transport.Option) (*transport.Connection, error) {
	a, err := ResolveAddr(addr)
	if err != nil {
		return nil, err
	}
	sock, err := itransport.NewTCPSocket(itransport.TCPFamily(a))
	if err != nil {
		return nil, err
	}
	c := transport.NewConnection(r, sock, h, opts...)
	c.Connect(a)
	return c, nil
}

// ListenerConfig describes a TCP listener.
type ListenerConfig struct {
	// Addr is the host:port to bind. Port 0 picks a free port.
	Addr string
	// Backlog is the accept queue depth, transport.DefaultBacklog if zero.
	Backlog int
	// MaxPeers caps the number of live peers.
	MaxPeers api.Limit
}

// Listen binds a listener according to cfg. Unlike transport.Listener.Listen
// it also returns the bind or listen failure, after the listener has
// dispatched its "error" and "disconnected" events.
func (cfg ListenerConfig) Listen(r api.Reactor, factory *transport.PeerFactory, opts ...transport.ListenerOption) (*transport.Listener, error) {
	a, err := ResolveAddr(cfg.Addr)
	if err != nil {
		return nil, err
	}
	sock, err := itransport.NewTCPSocket(itransport.TCPFamily(a))
	if err != nil {
		return nil, err
	}

	opts = append([]transport.ListenerOption{transport.WithMaxPeers(cfg.MaxPeers)}, opts...)
	l := transport.NewListener(r, sock, factory, opts...)

	var failure error
	l.On(transport.EventError, func(_ transport.Socket, data any) bool {
		if err, ok := data.(error); ok && failure == nil {
			failure = err
		}
		return true
	})
	l.Listen(a, cfg.Backlog)
	if l.State() == transport.ListenerClosed {
		if failure == nil {
			failure = errors.Errorf("listen %s failed", a)
		}
		return l, failure
	}
	return l, nil
}

// Listen is a shorthand for ListenerConfig{Addr: addr, Backlog: backlog}.Listen.
func Listen(r api.Reactor, addr string, factory *transport.PeerFactory, backlog int, opts ...transport.ListenerOption) (*transport.Listener, error) {
	return ListenerConfig{Addr: addr, Backlog: backlog}.Listen(r, factory, opts...)
}
