//go:build linux
// +build linux

package tcp_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/reactor"
	"github.com/momentics/esocket/transport"
	"github.com/momentics/esocket/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newLoop(t *testing.T) *reactor.Loop {
	t.Helper()
	l, err := reactor.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func run(t *testing.T, loop *reactor.Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Run(ctx))
	require.NoError(t, ctx.Err(), "loop did not stop in time")
}

func TestEchoRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := newLoop(t)

	var serverSaw []byte
	leftover := -1
	factory := transport.NewPeerFactory(func() transport.Handler {
		return &transport.HandlerFuncs{
			OnData: func(c *transport.Connection, buf []byte) {
				i := bytes.IndexByte(buf, '\n')
				if i < 0 {
					return
				}
				line := c.Recv(i + 1)
				serverSaw = line
				leftover = c.RecvLen()
				c.Send(line)
			},
		}
	})
	ln, err := tcp.Listen(loop, "127.0.0.1:0", factory, 0)
	require.NoError(t, err)
	require.NotNil(t, ln.LocalAddr())

	var clientGot []byte
	var clientErr error
	var disconnected bool
	client, err := tcp.Dial(loop, ln.LocalAddr().String(), &transport.HandlerFuncs{
		OnConnected: func(c *transport.Connection) { c.Send([]byte("A\n")) },
		OnData: func(c *transport.Connection, buf []byte) {
			if bytes.IndexByte(buf, '\n') >= 0 {
				clientGot = c.Recv(-1)
				c.Close()
			}
		},
		OnError: func(c *transport.Connection, err error) {
			clientErr = err
			loop.Stop()
		},
		OnDisconnected: func(*transport.Connection) {
			disconnected = true
			ln.Close(false)
			loop.Stop()
		},
	}, transport.WithConnectTimeout(time.Second))
	require.NoError(t, err)

	run(t, loop)

	require.NoError(t, clientErr)
	assert.Equal(t, "A\n", string(serverSaw))
	assert.Zero(t, leftover)
	assert.Equal(t, "A\n", string(clientGot))
	assert.True(t, disconnected)
	assert.Equal(t, transport.StateClosed, client.State())
	assert.Equal(t, transport.ListenerClosed, ln.State())
	assert.Zero(t, ln.Peers())
}

func TestListenAddressInUse(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := newLoop(t)
	factory := transport.NewPeerFactory(func() transport.Handler { return transport.NopHandler{} })

	first, err := tcp.Listen(loop, "127.0.0.1:0", factory, 0)
	require.NoError(t, err)
	defer first.Close(false)

	second, err := tcp.ListenerConfig{Addr: first.LocalAddr().String()}.Listen(loop, factory)
	var ce *api.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "listen", ce.Op)
	assert.Equal(t, transport.ListenerClosed, second.State())
}

func TestDialRefused(t *testing.T) {
	defer goleak.VerifyNone(t)
	loop := newLoop(t)
	factory := transport.NewPeerFactory(func() transport.Handler { return transport.NopHandler{} })

	// Grab a free port, then release it so nothing listens there.
	ln, err := tcp.Listen(loop, "127.0.0.1:0", factory, 0)
	require.NoError(t, err)
	addr := ln.LocalAddr().String()
	ln.Close(false)

	var got error
	connected := false
	_, err = tcp.Dial(loop, addr, &transport.HandlerFuncs{
		OnConnected: func(*transport.Connection) { connected = true; loop.Stop() },
		OnError: func(_ *transport.Connection, err error) {
			got = err
			loop.Stop()
		},
	})
	require.NoError(t, err)

	// Loopback may refuse the connect before the loop even runs.
	if got == nil {
		run(t, loop)
	}

	assert.False(t, connected)
	var ce *api.ConnectError
	assert.ErrorAs(t, got, &ce)
}

func TestDialBadAddress(t *testing.T) {
	loop := newLoop(t)
	_, err := tcp.Dial(loop, "not-an-address", transport.NopHandler{})
	assert.Error(t, err)
}
