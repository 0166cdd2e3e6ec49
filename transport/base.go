// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"net"

	"github.com/momentics/esocket/api"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "transport")

// Socket is the common view of a Connection or Listener handed to
// bookkeeping observers.
type Socket interface {
	Family() int
	Type() int
	Proto() int
	IsActive() bool
	UserData() any
	LocalAddr() net.Addr
}

// BaseSocket holds what connections and listeners share: the owned raw
// socket, the reactor, the active flag, user data and the bookkeeping
// observers.
type BaseSocket struct {
	reactor  api.Reactor
	sock     api.Socket
	active   bool
	userData any

	observers map[Event][]EventFunc
	self      Socket

	faults    int
	lastFault *api.HandlerFault
}

func (b *BaseSocket) init(r api.Reactor, sock api.Socket, self Socket) {
	b.reactor = r
	b.sock = sock
	b.self = self
	b.observers = make(map[Event][]EventFunc)
}

// Family returns the socket address family.
func (b *BaseSocket) Family() int { return b.sock.Family() }

// Type returns the socket type.
func (b *BaseSocket) Type() int { return b.sock.Type() }

// Proto returns the socket protocol.
func (b *BaseSocket) Proto() int { return b.sock.Proto() }

// IsActive reports whether the socket is connected, or listening in the
// case of a listener.
func (b *BaseSocket) IsActive() bool { return b.active }

// UserData returns the value attached with SetUserData.
func (b *BaseSocket) UserData() any { return b.userData }

// SetUserData attaches an arbitrary value to the socket.
func (b *BaseSocket) SetUserData(v any) { b.userData = v }

// Reactor returns the reactor driving the socket.
func (b *BaseSocket) Reactor() api.Reactor { return b.reactor }

// LocalAddr returns the bound address, or nil once closed.
func (b *BaseSocket) LocalAddr() net.Addr { return b.sock.LocalAddr() }

// Faults returns how many observer or handler panics were captured.
func (b *BaseSocket) Faults() int { return b.faults }

// LastFault returns the most recent captured panic, if any.
func (b *BaseSocket) LastFault() error {
	if b.lastFault == nil {
		return nil
	}
	return b.lastFault
}

// On registers a bookkeeping observer for ev. Observers run in
// registration order, before the Handler.
func (b *BaseSocket) On(ev Event, fn EventFunc) {
	if fn == nil {
		return
	}
	b.observers[ev] = append(b.observers[ev], fn)
}

// Shutdown half-closes the socket. send stops further transmissions, recv
// further receptions.
func (b *BaseSocket) Shutdown(send, recv bool) error {
	switch {
	case send && recv:
		return b.sock.Shutdown(api.ShutBoth)
	case send:
		return b.sock.Shutdown(api.ShutWrite)
	case recv:
		return b.sock.Shutdown(api.ShutRead)
	}
	return nil
}

func (b *BaseSocket) observed(ev Event) bool { return len(b.observers[ev]) > 0 }

// emit notifies the bookkeeping observers of ev. It reports true only if
// there was at least one observer and all of them returned true.
func (b *BaseSocket) emit(ev Event, data any) bool {
	fns := b.observers[ev]
	if len(fns) == 0 {
		return false
	}
	ok := true
	for _, fn := range fns {
		r, fault := capture(ev.String(), func() bool { return fn(b.self, data) })
		if fault != nil {
			b.recordFault(fault)
		}
		ok = ok && r
	}
	return ok
}

func (b *BaseSocket) recordFault(f *api.HandlerFault) {
	b.faults++
	b.lastFault = f
}

// closeHandle shuts the raw socket down in both directions, ignoring the
// result, and closes it.
func (b *BaseSocket) closeHandle() {
	_ = b.sock.Shutdown(api.ShutBoth)
	_ = b.sock.Close()
}
