// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the socket contracts.

package fake

import (
	"net"
	"sync/atomic"

	"github.com/momentics/esocket/api"
)

// Linux values, so fakes report the same family/type/proto as real TCP sockets.
const (
	familyInet  = 2
	typeStream  = 1
	protocolTCP = 6
)

var nextFd atomic.Int64

func init() { nextFd.Store(1000) }

type pendingAccept struct {
	sock *Socket
	addr net.Addr
}

// Socket is an in-memory api.Socket. Inbound bytes are queued with Feed,
// outbound bytes are collected and read back with Written.
type Socket struct {
	fd int

	in  []byte
	eof bool
	out []byte

	// ReadErr is returned by Read once queued input is exhausted.
	ReadErr error
	// WriteLimit caps the bytes accepted per Write; 0 accepts everything.
	WriteLimit int
	// WriteBlocked makes Write report api.ErrWouldBlock.
	WriteBlocked bool
	WriteErr     error

	// ConnectErr is returned by Connect; api.ErrInProgress defers the
	// outcome to ConnectResultErr.
	ConnectErr       error
	ConnectResultErr error
	BindErr          error
	ListenErr        error
	AcceptErr        error
	ShutdownErr      error

	Connected net.Addr
	Bound     net.Addr
	Backlog   int
	Shutdowns []api.ShutdownHow
	Closes    int

	local  net.Addr
	remote net.Addr

	pending []pendingAccept
	closed  bool
}

var _ api.Socket = (*Socket)(nil)

// NewSocket returns an open fake socket with a unique descriptor number.
func NewSocket() *Socket {
	return &Socket{fd: int(nextFd.Add(1))}
}

// Feed queues bytes for Read.
func (s *Socket) Feed(p []byte) { s.in = append(s.in, p...) }

// SetEOF makes Read return 0 bytes once queued input is exhausted.
func (s *Socket) SetEOF() { s.eof = true }

// Written returns everything accepted by Write so far.
func (s *Socket) Written() []byte { return s.out }

// Pending returns the number of bytes fed but not yet read.
func (s *Socket) Pending() int { return len(s.in) }

// Enqueue makes sock available to Accept, reported as coming from addr.
func (s *Socket) Enqueue(sock *Socket, addr net.Addr) {
	s.pending = append(s.pending, pendingAccept{sock: sock, addr: addr})
}

// Backlogged returns the number of sockets waiting in Accept.
func (s *Socket) Backlogged() int { return len(s.pending) }

// IsClosed reports whether Close was called.
func (s *Socket) IsClosed() bool { return s.closed }

// SetAddrs sets the addresses reported by LocalAddr and RemoteAddr.
func (s *Socket) SetAddrs(local, remote net.Addr) {
	s.local, s.remote = local, remote
}

func (s *Socket) Fd() int     { return s.fd }
func (s *Socket) Family() int { return familyInet }
func (s *Socket) Type() int   { return typeStream }
func (s *Socket) Proto() int  { return protocolTCP }

func (s *Socket) Read(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if len(s.in) > 0 {
		n := copy(p, s.in)
		s.in = s.in[n:]
		return n, nil
	}
	if s.ReadErr != nil {
		return 0, s.ReadErr
	}
	if s.eof {
		return 0, nil
	}
	return 0, api.ErrWouldBlock
}

func (s *Socket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if s.WriteErr != nil {
		return 0, s.WriteErr
	}
	if s.WriteBlocked {
		return 0, api.ErrWouldBlock
	}
	n := len(p)
	if s.WriteLimit > 0 && n > s.WriteLimit {
		n = s.WriteLimit
	}
	s.out = append(s.out, p[:n]...)
	return n, nil
}

func (s *Socket) Shutdown(how api.ShutdownHow) error {
	if s.closed {
		return api.ErrClosed
	}
	s.Shutdowns = append(s.Shutdowns, how)
	return s.ShutdownErr
}

func (s *Socket) Close() error {
	s.Closes++
	if s.closed {
		return api.ErrClosed
	}
	s.closed = true
	return nil
}

func (s *Socket) Connect(addr net.Addr) error {
	if s.closed {
		return api.ErrClosed
	}
	s.Connected = addr
	if s.remote == nil {
		s.remote = addr
	}
	return s.ConnectErr
}

func (s *Socket) ConnectResult() error {
	if s.closed {
		return api.ErrClosed
	}
	return s.ConnectResultErr
}

func (s *Socket) Bind(addr net.Addr) error {
	if s.closed {
		return api.ErrClosed
	}
	if s.BindErr != nil {
		return s.BindErr
	}
	s.Bound = addr
	if s.local == nil {
		s.local = addr
	}
	return nil
}

func (s *Socket) Listen(backlog int) error {
	if s.closed {
		return api.ErrClosed
	}
	s.Backlog = backlog
	return s.ListenErr
}

func (s *Socket) Accept() (api.Socket, net.Addr, error) {
	if s.closed {
		return nil, nil, api.ErrClosed
	}
	if len(s.pending) == 0 {
		if s.AcceptErr != nil {
			return nil, nil, s.AcceptErr
		}
		return nil, nil, api.ErrWouldBlock
	}
	p := s.pending[0]
	s.pending = s.pending[1:]
	if p.sock.remote == nil {
		p.sock.remote = p.addr
	}
	return p.sock, p.addr, nil
}

func (s *Socket) LocalAddr() net.Addr  { return s.local }
func (s *Socket) RemoteAddr() net.Addr { return s.remote }
