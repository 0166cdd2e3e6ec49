//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll event loop.

package reactor

import (
	"container/heap"
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/esocket/api"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const maxEvents = 128

// task is anything the loop can run from its dispatch queue.
type task interface {
	run()
}

// taskFunc adapts a posted function to task.
type taskFunc func()

func (f taskFunc) run() { f() }

// fdEntry tracks the watchers registered for one descriptor.
type fdEntry struct {
	read  *ioWatcher
	write *ioWatcher
	mask  uint32
}

// Loop is a level-triggered epoll reactor.
type Loop struct {
	epfd   int
	wakefd int

	fds    map[int]*fdEntry
	timers timerHeap
	idles  []*idleWatcher

	// ready holds the tasks collected for the current iteration, in order.
	ready *queue.Queue

	postMu sync.Mutex
	posted *queue.Queue

	events  []unix.EpollEvent
	running bool
	stopped atomic.Bool
	closed  bool

	log *logrus.Entry
}

var _ api.Reactor = (*Loop)(nil)

// New creates an epoll instance and its wakeup eventfd.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll create")
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, errors.Wrap(err, "eventfd")
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, errors.Wrap(err, "epoll ctl add eventfd")
	}
	return &Loop{
		epfd:   epfd,
		wakefd: wakefd,
		fds:    make(map[int]*fdEntry),
		ready:  queue.New(),
		posted: queue.New(),
		events: make([]unix.EpollEvent, maxEvents),
		log:    logrus.WithField("module", "reactor"),
	}, nil
}

// NewIO implements api.Reactor.
func (l *Loop) NewIO(fd int, kind api.IOKind, cb func()) api.Watcher {
	return &ioWatcher{loop: l, fd: fd, kind: kind, cb: cb}
}

// NewTimer implements api.Reactor.
func (l *Loop) NewTimer(after, repeat time.Duration, cb func()) api.Watcher {
	return &timerWatcher{loop: l, after: after, repeat: repeat, cb: cb, index: -1}
}

// NewIdle implements api.Reactor.
func (l *Loop) NewIdle(cb func()) api.Watcher {
	return &idleWatcher{loop: l, cb: cb}
}

// Post schedules fn to run on the loop goroutine. It is the only method
// safe to call from other goroutines.
func (l *Loop) Post(fn func()) {
	l.postMu.Lock()
	l.posted.Add(taskFunc(fn))
	l.postMu.Unlock()
	l.wake()
}

// Stop makes Run return after the current iteration.
func (l *Loop) Stop() {
	l.stopped.Store(true)
	l.wake()
}

// Run dispatches events until Stop is called or ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed {
		return errors.New("reactor: loop is closed")
	}
	if l.running {
		return errors.New("reactor: loop is already running")
	}
	l.running = true
	l.stopped.Store(false)
	defer func() { l.running = false }()

	cancel := context.AfterFunc(ctx, l.wake)
	defer cancel()

	for !l.stopped.Load() && ctx.Err() == nil {
		if err := l.RunOnce(); err != nil {
			return err
		}
	}
	return nil
}

// RunOnce performs a single loop iteration, blocking until at least one
// event source is ready or the loop is woken.
func (l *Loop) RunOnce() error {
	n, err := unix.EpollWait(l.epfd, l.events, l.pollTimeout())
	if err != nil && err != unix.EINTR {
		return errors.Wrap(err, "epoll wait")
	}
	for i := 0; i < n; i++ {
		ev := l.events[i]
		fd := int(ev.Fd)
		if fd == l.wakefd {
			l.drainWake()
			continue
		}
		e := l.fds[fd]
		if e == nil {
			continue
		}
		if e.read != nil && ev.Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			l.ready.Add(e.read)
		}
		if e.write != nil && ev.Events&(unix.EPOLLOUT|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			l.ready.Add(e.write)
		}
	}
	l.collectTimers(time.Now())
	l.collectPosted()
	if l.ready.Length() == 0 {
		for _, w := range l.idles {
			w.pending = true
			l.ready.Add(w)
		}
	}
	for l.ready.Length() > 0 {
		l.ready.Remove().(task).run()
	}
	return nil
}

// Close releases the epoll instance and the wakeup descriptor.
func (l *Loop) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	err := unix.Close(l.wakefd)
	if cerr := unix.Close(l.epfd); err == nil {
		err = cerr
	}
	return err
}

func (l *Loop) pollTimeout() int {
	if l.ready.Length() > 0 || len(l.idles) > 0 {
		return 0
	}
	l.postMu.Lock()
	posted := l.posted.Length()
	l.postMu.Unlock()
	if posted > 0 {
		return 0
	}
	if len(l.timers) == 0 {
		return -1
	}
	d := time.Until(l.timers[0].when)
	if d <= 0 {
		return 0
	}
	// Round up so the timer is due when epoll returns.
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

func (l *Loop) collectTimers(now time.Time) {
	for len(l.timers) > 0 && !l.timers[0].when.After(now) {
		t := l.timers[0]
		if t.repeat > 0 {
			t.when = now.Add(t.repeat)
			heap.Fix(&l.timers, 0)
		} else {
			heap.Pop(&l.timers)
		}
		t.pending = true
		l.ready.Add(t)
	}
}

func (l *Loop) collectPosted() {
	l.postMu.Lock()
	defer l.postMu.Unlock()
	for l.posted.Length() > 0 {
		l.ready.Add(l.posted.Remove())
	}
}

func (l *Loop) wake() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(l.wakefd, buf[:]); err != nil && err != unix.EAGAIN {
		l.log.WithError(err).Debug("wakeup write failed")
	}
}

func (l *Loop) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(l.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// call runs a watcher callback, recovering panics so one faulty callback
// cannot stop the loop.
func (l *Loop) call(kind string, cb func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithField("watcher", kind).Errorf("recovered panic in callback: %v", r)
		}
	}()
	cb()
}

// attach registers w's interest with epoll.
func (l *Loop) attach(w *ioWatcher) {
	e := l.fds[w.fd]
	if e == nil {
		e = &fdEntry{}
		l.fds[w.fd] = e
	}
	var prev *ioWatcher
	if w.kind == api.IOWrite {
		prev, e.write = e.write, w
	} else {
		prev, e.read = e.read, w
	}
	if prev != nil && prev != w {
		prev.active = false
		l.log.WithField("fd", w.fd).Warnf("%s watcher replaced", w.kind)
	}
	l.sync(w.fd, e)
}

// detach drops w's interest from epoll.
func (l *Loop) detach(w *ioWatcher) {
	e := l.fds[w.fd]
	if e == nil {
		return
	}
	if e.read == w {
		e.read = nil
	}
	if e.write == w {
		e.write = nil
	}
	l.sync(w.fd, e)
}

func (l *Loop) sync(fd int, e *fdEntry) {
	var mask uint32
	if e.read != nil {
		mask |= unix.EPOLLIN
	}
	if e.write != nil {
		mask |= unix.EPOLLOUT
	}
	if mask == e.mask {
		if mask == 0 {
			delete(l.fds, fd)
		}
		return
	}

	var err error
	switch {
	case mask == 0:
		delete(l.fds, fd)
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
		if err == unix.EBADF || err == unix.ENOENT {
			// Closing the descriptor already dropped it from the set.
			err = nil
		}
	case e.mask == 0:
		ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
		if err == unix.EEXIST {
			err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
		}
	default:
		ev := unix.EpollEvent{Events: mask, Fd: int32(fd)}
		err = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
	}
	if err != nil {
		l.log.WithFields(logrus.Fields{"fd": fd, "mask": mask}).WithError(err).Error("epoll ctl failed")
	}
	e.mask = mask
}
