// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides a readiness-based event loop implementing
// api.Reactor on top of Linux epoll: IO watchers, repeating timers, idle
// watchers and a goroutine-safe Post for handing work to the loop.
//
// All watchers fire serially on the goroutine running Loop.Run. Watchers
// must be created and started from that goroutine, or before Run is called.
package reactor
