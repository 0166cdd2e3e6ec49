// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"github.com/momentics/esocket/api"
)

// Event identifies a bookkeeping notification.
type Event int

const (
	// EventConnected fires when a connection is established or a listener
	// starts listening.
	EventConnected Event = iota
	// EventDisconnected is the terminal event of a connection or listener.
	EventDisconnected
	// EventError carries a ConnectError or an overflow error.
	EventError
	// EventPeer asks a listener's observers to admit a peer address.
	EventPeer
	// EventPeerAdded and EventPeerRemoved report changes to a listener's
	// live peer set. The payload is the peer *Connection.
	EventPeerAdded
	EventPeerRemoved
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	case EventPeer:
		return "peer"
	case EventPeerAdded:
		return "peer-added"
	case EventPeerRemoved:
		return "peer-removed"
	default:
		return "unknown"
	}
}

// EventFunc is a bookkeeping observer. src is the *Connection or *Listener
// the event originated from.
type EventFunc func(src Socket, data any) bool

// capture runs fn and converts a panic into a HandlerFault.
func capture(event string, fn func() bool) (ok bool, fault *api.HandlerFault) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			fault = &api.HandlerFault{Event: event, Value: r}
		}
	}()
	return fn(), nil
}
