// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp binds the event-driven sockets of package transport to TCP
// over IPv4 and IPv6. Addresses are given as host:port strings and
// resolved once, before any socket is created.
package tcp
