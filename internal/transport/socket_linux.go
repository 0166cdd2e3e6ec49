//go:build linux
// +build linux

// File: internal/transport/socket_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux socket implementation over golang.org/x/sys/unix.

package transport

import (
	"net"

	"github.com/momentics/esocket/api"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type socket struct {
	fd     int
	family int
	typ    int
	proto  int
	closed bool
}

var _ api.Socket = (*socket)(nil)

// NewSocket creates a non-blocking socket of the given family, type and protocol.
func NewSocket(family, typ, proto int) (api.Socket, error) {
	fd, err := unix.Socket(family, typ|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, proto)
	if err != nil {
		return nil, errors.Wrap(err, "socket create")
	}
	return &socket{fd: fd, family: family, typ: typ, proto: proto}, nil
}

// NewTCPSocket creates a non-blocking TCP socket with Nagle disabled.
func NewTCPSocket(family int) (api.Socket, error) {
	s, err := NewSocket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, err
	}
	_ = unix.SetsockoptInt(s.Fd(), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return s, nil
}

// TCPFamily returns the address family matching addr.
func TCPFamily(addr *net.TCPAddr) int {
	if addr == nil || addr.IP == nil || addr.IP.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func (s *socket) Fd() int     { return s.fd }
func (s *socket) Family() int { return s.family }
func (s *socket) Type() int   { return s.typ }
func (s *socket) Proto() int  { return s.proto }

func (s *socket) Read(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, classify("read", err)
	}
	return n, nil
}

func (s *socket) Write(p []byte) (int, error) {
	if s.closed {
		return 0, api.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := unix.SendmsgN(s.fd, p, nil, nil, unix.MSG_NOSIGNAL)
	if err != nil {
		return 0, classify("write", err)
	}
	return n, nil
}

func (s *socket) Shutdown(how api.ShutdownHow) error {
	if s.closed {
		return api.ErrClosed
	}
	var mode int
	switch how {
	case api.ShutRead:
		mode = unix.SHUT_RD
	case api.ShutWrite:
		mode = unix.SHUT_WR
	default:
		mode = unix.SHUT_RDWR
	}
	if err := unix.Shutdown(s.fd, mode); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// Close releases the descriptor. Only the first call reaches the OS.
func (s *socket) Close() error {
	if s.closed {
		return api.ErrClosed
	}
	s.closed = true
	if err := unix.Close(s.fd); err != nil {
		return errors.Wrap(err, "close")
	}
	return nil
}

func (s *socket) Connect(addr net.Addr) error {
	if s.closed {
		return api.ErrClosed
	}
	sa, err := toSockaddr(s.family, addr)
	if err != nil {
		return err
	}
	switch err := unix.Connect(s.fd, sa); err {
	case nil:
		return nil
	case unix.EINPROGRESS, unix.EINTR, unix.EALREADY:
		return api.ErrInProgress
	default:
		return errors.Wrap(err, "connect")
	}
}

func (s *socket) ConnectResult() error {
	if s.closed {
		return api.ErrClosed
	}
	v, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return errors.Wrap(err, "getsockopt SO_ERROR")
	}
	if v != 0 {
		return errors.Wrap(unix.Errno(v), "connect")
	}
	return nil
}

// Bind binds the socket to addr. Stream sockets get SO_REUSEADDR so a
// restarted listener does not trip over TIME_WAIT entries.
func (s *socket) Bind(addr net.Addr) error {
	if s.closed {
		return api.ErrClosed
	}
	sa, err := toSockaddr(s.family, addr)
	if err != nil {
		return err
	}
	if s.typ == unix.SOCK_STREAM && s.family != unix.AF_UNIX {
		_ = unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}
	if err := unix.Bind(s.fd, sa); err != nil {
		return errors.Wrap(err, "bind")
	}
	return nil
}

func (s *socket) Listen(backlog int) error {
	if s.closed {
		return api.ErrClosed
	}
	if err := unix.Listen(s.fd, backlog); err != nil {
		return errors.Wrap(err, "listen")
	}
	return nil
}

func (s *socket) Accept() (api.Socket, net.Addr, error) {
	if s.closed {
		return nil, nil, api.ErrClosed
	}
	nfd, sa, err := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, nil, classify("accept", err)
	}
	if s.typ == unix.SOCK_STREAM && s.proto == unix.IPPROTO_TCP {
		_ = unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	return &socket{fd: nfd, family: s.family, typ: s.typ, proto: s.proto}, fromSockaddr(sa), nil
}

func (s *socket) LocalAddr() net.Addr {
	if s.closed {
		return nil
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return nil
	}
	return fromSockaddr(sa)
}

func (s *socket) RemoteAddr() net.Addr {
	if s.closed {
		return nil
	}
	sa, err := unix.Getpeername(s.fd)
	if err != nil {
		return nil
	}
	return fromSockaddr(sa)
}

// classify maps errno values that only mean "no progress right now" to
// api.ErrWouldBlock. Everything else is returned wrapped.
func classify(op string, err error) error {
	switch err {
	case unix.EAGAIN, unix.EINTR:
		return api.ErrWouldBlock
	case unix.EINPROGRESS:
		return api.ErrInProgress
	}
	return errors.Wrap(err, op)
}
