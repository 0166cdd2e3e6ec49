// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types surfaced through the socket layer. Connect and overflow
// errors reach callers only through the "error" event, never as return
// values of Send, Recv or Connect.

package api

import (
	"errors"
	"fmt"
	"net"
)

// Common errors used across the library.
var (
	ErrWouldBlock = errors.New("operation would block")
	ErrInProgress = errors.New("operation in progress")
	ErrClosed     = errors.New("socket is closed")
	ErrTimeout    = errors.New("operation timeout")
)

// ConnectError reports a failed connect, bind or listen.
type ConnectError struct {
	Op   string
	Addr net.Addr
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Addr == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// SendOverflowError is dispatched when buffering data would exceed the
// send cap. The data is not buffered.
type SendOverflowError struct {
	Buffered int
	Rejected int
	Limit    int
}

func (e *SendOverflowError) Error() string {
	return fmt.Sprintf("send buffer overflow: %d buffered + %d rejected > %d", e.Buffered, e.Rejected, e.Limit)
}

// ReceiveOverflowError is dispatched when a received chunk would exceed the
// receive cap. The chunk is discarded.
type ReceiveOverflowError struct {
	Buffered int
	Rejected int
	Limit    int
}

func (e *ReceiveOverflowError) Error() string {
	return fmt.Sprintf("receive buffer overflow: %d buffered + %d rejected > %d", e.Buffered, e.Rejected, e.Limit)
}

// HandlerFault captures a panic raised inside an event callback.
type HandlerFault struct {
	Event string
	Value any
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("handler fault in %s: %v", e.Event, e.Value)
}

// IsOverflow reports whether err is a send or receive overflow.
func IsOverflow(err error) bool {
	var se *SendOverflowError
	var re *ReceiveOverflowError
	return errors.As(err, &se) || errors.As(err, &re)
}
