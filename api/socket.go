// File: api/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw non-blocking socket contract wrapped by connections and listeners.

package api

import "net"

// ShutdownHow selects the direction(s) closed by Socket.Shutdown.
type ShutdownHow int

const (
	ShutRead ShutdownHow = iota
	ShutWrite
	ShutBoth
)

// Socket abstracts an OS-level non-blocking socket. It is exclusively owned
// by the connection or listener wrapping it.
//
// Read, Write and Accept return ErrWouldBlock when no progress is possible.
// Connect returns ErrInProgress when completion will be signalled by write
// readiness, after which ConnectResult reports the outcome.
type Socket interface {
	Fd() int
	Family() int
	Type() int
	Proto() int

	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Shutdown(how ShutdownHow) error
	Close() error

	Connect(addr net.Addr) error
	ConnectResult() error
	Bind(addr net.Addr) error
	Listen(backlog int) error
	Accept() (Socket, net.Addr, error)

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}
