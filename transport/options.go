// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package transport

import (
	"time"

	"github.com/momentics/esocket/api"
)

// DefaultReadSize is the number of bytes read per readiness notification.
const DefaultReadSize = 4096

type options struct {
	timeout        time.Duration
	connectTimeout time.Duration
	maxSend        api.Limit
	maxRecv        api.Limit
	readSize       int
	userData       any
}

func defaultOptions() options {
	return options{readSize: DefaultReadSize}
}

// Option customizes a Connection or the peers built by a PeerFactory.
type Option func(*options)

// WithTimeout installs a repeating timeout of d. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithConnectTimeout bounds how long a pending connect may take.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithMaxSend caps the send buffer.
func WithMaxSend(l api.Limit) Option {
	return func(o *options) { o.maxSend = l }
}

// WithMaxRecv caps the receive buffer.
func WithMaxRecv(l api.Limit) Option {
	return func(o *options) { o.maxRecv = l }
}

// WithReadSize sets the size of a single read.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithUserData attaches v to the connection.
func WithUserData(v any) Option {
	return func(o *options) { o.userData = v }
}
