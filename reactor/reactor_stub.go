//go:build !linux
// +build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"context"
	"errors"
	"time"

	"github.com/momentics/esocket/api"
)

var errUnsupported = errors.New("reactor: this platform is not supported")

// Loop is unavailable on this platform.
type Loop struct{}

// New returns an error for unsupported platforms.
func New() (*Loop, error) { return nil, errUnsupported }

func (l *Loop) NewIO(fd int, kind api.IOKind, cb func()) api.Watcher        { return nopWatcher{} }
func (l *Loop) NewTimer(after, repeat time.Duration, cb func()) api.Watcher { return nopWatcher{} }
func (l *Loop) NewIdle(cb func()) api.Watcher                               { return nopWatcher{} }
func (l *Loop) Post(fn func())                                              {}
func (l *Loop) Stop()                                                       {}
func (l *Loop) Run(ctx context.Context) error                               { return errUnsupported }
func (l *Loop) RunOnce() error                                              { return errUnsupported }
func (l *Loop) Close() error                                                { return nil }

type nopWatcher struct{}

func (nopWatcher) Start()       {}
func (nopWatcher) Stop()        {}
func (nopWatcher) Active() bool { return false }
