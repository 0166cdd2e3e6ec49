//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"container/heap"
	"time"

	"github.com/momentics/esocket/api"
)

// ioWatcher fires while its descriptor is ready for kind.
type ioWatcher struct {
	loop   *Loop
	fd     int
	kind   api.IOKind
	cb     func()
	active bool
}

func (w *ioWatcher) Start() {
	if w.active {
		return
	}
	w.active = true
	w.loop.attach(w)
}

func (w *ioWatcher) Stop() {
	if !w.active {
		return
	}
	w.active = false
	w.loop.detach(w)
}

func (w *ioWatcher) Active() bool { return w.active }

func (w *ioWatcher) run() {
	if w.active {
		w.loop.call(w.kind.String(), w.cb)
	}
}

// timerWatcher fires after a delay and then every repeat interval.
type timerWatcher struct {
	loop    *Loop
	after   time.Duration
	repeat  time.Duration
	cb      func()
	when    time.Time
	index   int
	pending bool
}

func (w *timerWatcher) Start() {
	if w.Active() {
		return
	}
	w.when = time.Now().Add(w.after)
	heap.Push(&w.loop.timers, w)
}

func (w *timerWatcher) Stop() {
	w.pending = false
	if w.index >= 0 {
		heap.Remove(&w.loop.timers, w.index)
	}
}

func (w *timerWatcher) Active() bool { return w.index >= 0 || w.pending }

func (w *timerWatcher) run() {
	if !w.pending {
		return
	}
	w.pending = false
	w.loop.call("timer", w.cb)
}

// idleWatcher fires once per iteration in which nothing else was ready.
type idleWatcher struct {
	loop    *Loop
	cb      func()
	active  bool
	pending bool
}

func (w *idleWatcher) Start() {
	if w.active {
		return
	}
	w.active = true
	w.loop.idles = append(w.loop.idles, w)
}

func (w *idleWatcher) Stop() {
	w.pending = false
	if !w.active {
		return
	}
	w.active = false
	idles := w.loop.idles
	for i, iw := range idles {
		if iw == w {
			w.loop.idles = append(idles[:i:i], idles[i+1:]...)
			break
		}
	}
}

func (w *idleWatcher) Active() bool { return w.active }

func (w *idleWatcher) run() {
	if !w.pending || !w.active {
		return
	}
	w.pending = false
	w.loop.call("idle", w.cb)
}

// timerHeap orders timers by deadline.
type timerHeap []*timerWatcher

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].when.Before(h[j].when) }

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timerWatcher)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
