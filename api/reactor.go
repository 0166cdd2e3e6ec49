// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the minimal interface the socket layer consumes from an external
// readiness-based event loop: IO watchers, timers and idle callbacks.

package api

import "time"

// IOKind selects the readiness condition an IO watcher waits for.
type IOKind int

const (
	IORead IOKind = 1 << iota
	IOWrite
)

func (k IOKind) String() string {
	switch k {
	case IORead:
		return "read"
	case IOWrite:
		return "write"
	case IORead | IOWrite:
		return "read|write"
	default:
		return "none"
	}
}

// Watcher is a single registration with the reactor for one event source.
// Start and Stop are idempotent. A stopped watcher never fires again until
// it is restarted.
type Watcher interface {
	Start()
	Stop()
	Active() bool
}

// Reactor is the event source driving sockets. All callbacks are delivered
// serially on the reactor's goroutine.
type Reactor interface {
	// NewIO creates a watcher firing cb while fd is ready for kind.
	NewIO(fd int, kind IOKind, cb func()) Watcher

	// NewTimer creates a timer firing first after `after` and then every
	// `repeat`. A zero repeat makes it one-shot.
	NewTimer(after, repeat time.Duration, cb func()) Watcher

	// NewIdle creates a watcher firing once per loop iteration in which
	// nothing else was pending.
	NewIdle(cb func()) Watcher
}
