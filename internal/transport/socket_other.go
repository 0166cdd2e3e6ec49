//go:build !linux
// +build !linux

// File: internal/transport/socket_other.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package transport

import (
	"net"

	"github.com/momentics/esocket/api"
	"github.com/pkg/errors"
)

var errUnsupported = errors.New("transport: this platform is not supported")

// NewSocket returns an error for unsupported platforms.
func NewSocket(family, typ, proto int) (api.Socket, error) {
	return nil, errUnsupported
}

// NewTCPSocket returns an error for unsupported platforms.
func NewTCPSocket(family int) (api.Socket, error) {
	return nil, errUnsupported
}

// TCPFamily always returns zero on unsupported platforms.
func TCPFamily(addr *net.TCPAddr) int { return 0 }
