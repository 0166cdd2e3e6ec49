// File: internal/transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OS-level non-blocking socket primitives backing api.Socket. Every socket
// is created non-blocking and close-on-exec, is owned by exactly one
// connection or listener, and is closed exactly once. Would-block results
// are reported as api.ErrWouldBlock so callers treat them as zero progress.

package transport
