// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package transport wraps raw non-blocking sockets in an event-driven
// connection/listener model driven by an api.Reactor.
//
// A Connection buffers outbound data up to its send cap and writes it as
// the socket becomes writable. Inbound data is accumulated up to the receive
// cap and offered to the Handler as a snapshot of the whole buffer; only
// Recv removes bytes from it. A Listener accepts peers, subject to an
// admission hook and a peer cap, and keeps track of them until they
// disconnect.
//
// Two observer channels are notified of lifecycle events: bookkeeping
// observers registered with On, which fire first, and the connection's
// Handler. A panic inside either is captured at the dispatch boundary and
// never reaches the reactor.
//
// Nothing in this package is safe for concurrent use. All methods must run
// on the reactor goroutine.
package transport
