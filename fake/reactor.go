// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"time"

	"github.com/momentics/esocket/api"
)

// WatcherKind tells fake watchers apart.
type WatcherKind int

const (
	IOWatcher WatcherKind = iota
	TimerWatcher
	IdleWatcher
)

// Watcher is a manually fired api.Watcher.
type Watcher struct {
	Kind   WatcherKind
	Fd     int
	IO     api.IOKind
	After  time.Duration
	Repeat time.Duration

	Starts int
	Stops  int

	cb     func()
	active bool
}

func (w *Watcher) Start() {
	if w.active {
		return
	}
	w.active = true
	w.Starts++
}

func (w *Watcher) Stop() {
	if !w.active {
		return
	}
	w.active = false
	w.Stops++
}

func (w *Watcher) Active() bool { return w.active }

// Reactor provides a deterministic api.Reactor for tests: nothing fires
// until the test calls Readable, Writable, FireTimers or RunIdle.
type Reactor struct {
	watchers []*Watcher
}

var _ api.Reactor = (*Reactor)(nil)

// NewReactor returns an empty fake reactor.
func NewReactor() *Reactor { return &Reactor{} }

func (r *Reactor) NewIO(fd int, kind api.IOKind, cb func()) api.Watcher {
	return r.add(&Watcher{Kind: IOWatcher, Fd: fd, IO: kind, cb: cb})
}

func (r *Reactor) NewTimer(after, repeat time.Duration, cb func()) api.Watcher {
	return r.add(&Watcher{Kind: TimerWatcher, After: after, Repeat: repeat, cb: cb})
}

func (r *Reactor) NewIdle(cb func()) api.Watcher {
	return r.add(&Watcher{Kind: IdleWatcher, cb: cb})
}

func (r *Reactor) add(w *Watcher) *Watcher {
	r.watchers = append(r.watchers, w)
	return w
}

// Readable fires the active read watchers of fd and reports whether any fired.
func (r *Reactor) Readable(fd int) bool {
	return r.fire(func(w *Watcher) bool { return w.Kind == IOWatcher && w.Fd == fd && w.IO&api.IORead != 0 }) > 0
}

// Writable fires the active write watchers of fd and reports whether any fired.
func (r *Reactor) Writable(fd int) bool {
	return r.fire(func(w *Watcher) bool { return w.Kind == IOWatcher && w.Fd == fd && w.IO&api.IOWrite != 0 }) > 0
}

// FireTimers expires every active timer once. One-shot timers become
// inactive before their callback runs.
func (r *Reactor) FireTimers() int {
	return r.fire(func(w *Watcher) bool { return w.Kind == TimerWatcher })
}

// RunIdle fires every active idle watcher once.
func (r *Reactor) RunIdle() int {
	return r.fire(func(w *Watcher) bool { return w.Kind == IdleWatcher })
}

// IsArmed reports whether fd has an active watcher for kind.
func (r *Reactor) IsArmed(fd int, kind api.IOKind) bool {
	for _, w := range r.watchers {
		if w.active && w.Kind == IOWatcher && w.Fd == fd && w.IO&kind != 0 {
			return true
		}
	}
	return false
}

// Active returns the currently active watchers of the given kind.
func (r *Reactor) Active(kind WatcherKind) []*Watcher {
	var out []*Watcher
	for _, w := range r.watchers {
		if w.active && w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

func (r *Reactor) fire(match func(*Watcher) bool) int {
	var due []*Watcher
	for _, w := range r.watchers {
		if w.active && match(w) {
			due = append(due, w)
		}
	}
	n := 0
	for _, w := range due {
		// An earlier callback may have stopped it.
		if !w.active {
			continue
		}
		if w.Kind == TimerWatcher && w.Repeat == 0 {
			w.Stop()
		}
		w.cb()
		n++
	}
	return n
}
