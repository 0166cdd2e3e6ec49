// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/momentics/esocket/api"
)

// DefaultBacklog is the accept queue depth used when none is given.
const DefaultBacklog = 5

// ListenerState is the lifecycle stage of a Listener.
type ListenerState int

const (
	ListenerIdle ListenerState = iota
	ListenerListening
	// ListenerDraining follows a delayed close: the socket is closed but
	// peers remain until they are gone.
	ListenerDraining
	ListenerClosed
)

func (s ListenerState) String() string {
	switch s {
	case ListenerIdle:
		return "idle"
	case ListenerListening:
		return "listening"
	case ListenerDraining:
		return "draining"
	case ListenerClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var errNotListenable = errors.New("listener is not idle")

// acceptRetry is how long the accept watcher stays parked after accept
// fails with something other than an empty queue, e.g. EMFILE.
const acceptRetry = 100 * time.Millisecond

// Listener accepts stream connections and keeps track of the peers it
// created.
//
// Bookkeeping events: "connected" once listening, "error" when listening
// fails, "peer" to admit an incoming address, "peer-added" and
// "peer-removed" as the live set changes, and a single terminal
// "disconnected".
type Listener struct {
	BaseSocket

	state     ListenerState
	accepting bool

	peers    map[*Connection]struct{}
	count    int
	maxPeers api.Limit
	factory  *PeerFactory

	acceptW api.Watcher
	retryW  api.Watcher
	drainW  api.Watcher
}

var _ Socket = (*Listener)(nil)

// ListenerOption customizes a Listener.
type ListenerOption func(*Listener)

// WithMaxPeers caps the number of live peers.
func WithMaxPeers(l api.Limit) ListenerOption {
	return func(ln *Listener) { ln.maxPeers = l }
}

// WithAdmission registers fn as a "peer" observer deciding whether an
// incoming address is accepted.
func WithAdmission(fn func(l *Listener, addr net.Addr) bool) ListenerOption {
	return func(ln *Listener) { ln.OnPeer(fn) }
}

// WithListenerUserData attaches v to the listener.
func WithListenerUserData(v any) ListenerOption {
	return func(ln *Listener) { ln.userData = v }
}

// NewListener wraps sock, which must be unbound. The listener takes
// ownership of sock.
func NewListener(r api.Reactor, sock api.Socket, factory *PeerFactory, opts ...ListenerOption) *Listener {
	l := &Listener{
		peers:   make(map[*Connection]struct{}),
		factory: factory,
	}
	l.init(r, sock, l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnPeer registers an admission hook. Without any, every peer is admitted;
// otherwise every hook must agree.
func (l *Listener) OnPeer(fn func(l *Listener, addr net.Addr) bool) {
	if fn == nil {
		return
	}
	l.On(EventPeer, func(_ Socket, data any) bool {
		addr, _ := data.(net.Addr)
		return fn(l, addr)
	})
}

// State returns the lifecycle stage.
func (l *Listener) State() ListenerState { return l.state }

// IsAccepting reports whether new peers are being accepted.
func (l *Listener) IsAccepting() bool { return l.accepting }

// Peers returns the number of live peers.
func (l *Listener) Peers() int { return l.count }

// PeerSet returns a snapshot of the live peers.
func (l *Listener) PeerSet() []*Connection {
	out := make([]*Connection, 0, len(l.peers))
	for p := range l.peers {
		out = append(out, p)
	}
	return out
}

// MaxPeers returns the peer cap.
func (l *Listener) MaxPeers() api.Limit { return l.maxPeers }

// SetMaxPeers changes the peer cap. Existing peers are kept.
func (l *Listener) SetMaxPeers(max api.Limit) {
	l.maxPeers = max
	l.throttle()
}

// PeerFactory returns the factory building new peers.
func (l *Listener) PeerFactory() *PeerFactory { return l.factory }

// SetPeerFactory replaces the factory used for peers accepted from now on.
func (l *Listener) SetPeerFactory(f *PeerFactory) { l.factory = f }

// Listen binds to addr and starts accepting. Failure dispatches "error"
// with a ConnectError followed by "disconnected", and leaves the listener
// closed.
func (l *Listener) Listen(addr net.Addr, backlog int) {
	if l.state != ListenerIdle {
		l.emit(EventError, &api.ConnectError{Op: "listen", Addr: addr, Err: errNotListenable})
		return
	}
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	err := l.sock.Bind(addr)
	if err == nil {
		err = l.sock.Listen(backlog)
	}
	if err != nil {
		_ = l.sock.Close()
		l.state = ListenerClosed
		l.emit(EventError, &api.ConnectError{Op: "listen", Addr: addr, Err: err})
		l.emit(EventDisconnected, nil)
		return
	}

	l.acceptW = l.reactor.NewIO(l.sock.Fd(), api.IORead, l.onAcceptable)
	l.acceptW.Start()
	l.active = true
	l.accepting = true
	l.state = ListenerListening
	l.emit(EventConnected, nil)
}

// Close stops accepting and closes the listening socket. Without delay
// every peer is closed too and "disconnected" fires right away. With delay
// the peers stay connected and "disconnected" fires once the last of them
// is gone, or when ClosePeers forces them out.
func (l *Listener) Close(delay bool) {
	if l.state == ListenerIdle {
		// Never listened: release the socket without any event.
		_ = l.sock.Close()
		l.state = ListenerClosed
		return
	}
	if l.state != ListenerListening {
		return
	}
	l.accepting = false
	l.acceptW.Stop()
	if l.retryW != nil {
		l.retryW.Stop()
	}
	l.closeHandle()
	l.active = false

	if delay {
		l.state = ListenerDraining
		l.drainW = l.reactor.NewIdle(l.onDrainIdle)
		l.drainW.Start()
		return
	}

	l.ClosePeers()
	l.state = ListenerClosed
	l.emit(EventDisconnected, nil)
}

// ClosePeers closes every live peer. While draining this completes the
// delayed close.
func (l *Listener) ClosePeers() {
	for _, p := range l.PeerSet() {
		p.Close()
	}
	// Peers whose removal did not go through are dropped here.
	if len(l.peers) > 0 {
		l.peers = make(map[*Connection]struct{})
	}
	l.count = 0
	if l.state == ListenerDraining {
		l.finish()
	}
}

// onAcceptable drains the accept queue until it is empty or the peer cap
// is reached.
func (l *Listener) onAcceptable() {
	for l.accepting && !l.maxPeers.Reached(l.count) {
		sock, addr, err := l.sock.Accept()
		if err != nil {
			if errors.Is(err, api.ErrWouldBlock) {
				break
			}
			// The queue is still readable, so a level-triggered watcher
			// would spin. Park it until a peer leaves or the retry fires.
			log.WithError(err).Debug("accept failed")
			l.parkAccept()
			return
		}
		l.admit(sock, addr)
	}
	l.throttle()
}

func (l *Listener) admit(sock api.Socket, addr net.Addr) {
	if l.observed(EventPeer) && !l.emit(EventPeer, addr) {
		_ = sock.Shutdown(api.ShutBoth)
		_ = sock.Close()
		return
	}

	var peer *Connection
	_, fault := capture("build", func() bool {
		peer = l.factory.Build(l, sock, addr)
		return true
	})
	if fault != nil {
		l.recordFault(fault)
		_ = sock.Shutdown(api.ShutBoth)
		_ = sock.Close()
		return
	}

	peer.On(EventDisconnected, l.onPeerDisconnected)
	l.peers[peer] = struct{}{}
	l.count++
	l.checkPeers()
	l.emit(EventPeerAdded, peer)
	peer.start()
}

func (l *Listener) onPeerDisconnected(src Socket, _ any) bool {
	peer, ok := src.(*Connection)
	if !ok {
		return false
	}
	if _, ok := l.peers[peer]; !ok {
		return false
	}
	delete(l.peers, peer)
	l.count--
	l.checkPeers()
	l.emit(EventPeerRemoved, peer)

	switch l.state {
	case ListenerDraining:
		if l.count == 0 {
			l.finish()
		}
	case ListenerListening:
		l.throttle()
	}
	return true
}

// onDrainIdle completes a delayed close that found no peers. Otherwise the
// last peer removal completes it.
func (l *Listener) onDrainIdle() {
	if l.count == 0 {
		l.finish()
		return
	}
	if l.drainW != nil {
		l.drainW.Stop()
	}
}

// finish ends a delayed close exactly once.
func (l *Listener) finish() {
	if l.state != ListenerDraining {
		return
	}
	if l.drainW != nil {
		l.drainW.Stop()
		l.drainW = nil
	}
	l.state = ListenerClosed
	l.emit(EventDisconnected, nil)
}

func (l *Listener) parkAccept() {
	l.acceptW.Stop()
	if l.retryW == nil {
		l.retryW = l.reactor.NewTimer(acceptRetry, 0, l.throttle)
	}
	l.retryW.Start()
}

// throttle parks the accept watcher while the peer cap is reached, so a
// full backlog does not keep waking the reactor.
func (l *Listener) throttle() {
	if !l.accepting || l.acceptW == nil {
		return
	}
	if l.maxPeers.Reached(l.count) {
		l.acceptW.Stop()
	} else {
		l.acceptW.Start()
	}
}

func (l *Listener) checkPeers() {
	if l.count != len(l.peers) {
		panic(fmt.Sprintf("transport: peer count %d does not match peer set size %d", l.count, len(l.peers)))
	}
}
