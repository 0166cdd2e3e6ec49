//go:build linux
// +build linux

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/esocket/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

var loopback = &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}

// retry calls fn until it stops reporting would-block.
func retry[T any](t *testing.T, fn func() (T, error)) (T, error) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		v, err := fn()
		if err != api.ErrWouldBlock && err != api.ErrInProgress || time.Now().After(deadline) {
			return v, err
		}
		time.Sleep(time.Millisecond)
	}
}

func listenLoopback(t *testing.T) api.Socket {
	t.Helper()
	ln, err := NewTCPSocket(unix.AF_INET)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	require.NoError(t, ln.Bind(loopback))
	require.NoError(t, ln.Listen(5))
	return ln
}

func TestSocketRoundTrip(t *testing.T) {
	ln := listenLoopback(t)
	laddr := ln.LocalAddr().(*net.TCPAddr)
	require.NotZero(t, laddr.Port)
	assert.Equal(t, unix.AF_INET, ln.Family())
	assert.Equal(t, unix.SOCK_STREAM, ln.Type())
	assert.Equal(t, unix.IPPROTO_TCP, ln.Proto())

	_, _, err := ln.Accept()
	assert.ErrorIs(t, err, api.ErrWouldBlock)

	client, err := NewTCPSocket(TCPFamily(laddr))
	require.NoError(t, err)
	defer client.Close()
	err = client.Connect(laddr)
	if err != nil {
		require.ErrorIs(t, err, api.ErrInProgress)
	}

	type accepted struct {
		sock api.Socket
		addr net.Addr
	}
	got, err := retry(t, func() (accepted, error) {
		s, a, err := ln.Accept()
		return accepted{s, a}, err
	})
	require.NoError(t, err)
	server := got.sock
	defer server.Close()
	require.NoError(t, client.ConnectResult())
	assert.Equal(t, client.LocalAddr(), got.addr)
	assert.Equal(t, laddr, client.RemoteAddr())

	buf := make([]byte, 16)
	_, err = server.Read(buf)
	assert.ErrorIs(t, err, api.ErrWouldBlock)

	n, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, err = retry(t, func() (int, error) { return server.Read(buf) })
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	require.NoError(t, client.Shutdown(api.ShutWrite))
	n, err = retry(t, func() (int, error) { return server.Read(buf) })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSocketCloseOnce(t *testing.T) {
	s, err := NewTCPSocket(unix.AF_INET)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Close(), api.ErrClosed)
	_, err = s.Read(make([]byte, 1))
	assert.ErrorIs(t, err, api.ErrClosed)
	_, err = s.Write([]byte("x"))
	assert.ErrorIs(t, err, api.ErrClosed)
	assert.ErrorIs(t, s.Shutdown(api.ShutBoth), api.ErrClosed)
	assert.Nil(t, s.LocalAddr())
}

func TestConnectRefused(t *testing.T) {
	ln := listenLoopback(t)
	addr := ln.LocalAddr()
	require.NoError(t, ln.Close())

	client, err := NewTCPSocket(unix.AF_INET)
	require.NoError(t, err)
	defer client.Close()

	err = client.Connect(addr)
	if err == api.ErrInProgress {
		_, err = retry(t, func() (struct{}, error) {
			if err := client.ConnectResult(); err != nil {
				return struct{}{}, err
			}
			// Still pending: SO_ERROR is clear until the attempt resolves.
			if _, perr := unix.Getpeername(client.Fd()); perr != nil {
				return struct{}{}, api.ErrInProgress
			}
			return struct{}{}, nil
		})
	}
	assert.ErrorIs(t, err, unix.ECONNREFUSED)
}

func TestSockaddrConversion(t *testing.T) {
	sa, err := toSockaddr(unix.AF_INET, &net.TCPAddr{IP: net.IPv4(10, 1, 2, 3), Port: 80})
	require.NoError(t, err)
	assert.Equal(t, &net.TCPAddr{IP: net.IPv4(10, 1, 2, 3).To4(), Port: 80}, fromSockaddr(sa))

	sa, err = toSockaddr(unix.AF_INET6, &net.TCPAddr{IP: net.IPv6loopback, Port: 443})
	require.NoError(t, err)
	assert.Equal(t, &net.TCPAddr{IP: net.IPv6loopback, Port: 443}, fromSockaddr(sa))

	_, err = toSockaddr(unix.AF_INET, &net.TCPAddr{IP: net.IPv6loopback})
	assert.Error(t, err)
	_, err = toSockaddr(unix.AF_INET, nil)
	assert.Error(t, err)
	_, err = toSockaddr(unix.AF_INET, &net.IPAddr{})
	assert.Error(t, err)

	assert.Equal(t, unix.AF_INET6, TCPFamily(&net.TCPAddr{IP: net.IPv6loopback}))
	assert.Equal(t, unix.AF_INET, TCPFamily(&net.TCPAddr{}))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, api.ErrWouldBlock, classify("read", unix.EAGAIN))
	assert.Equal(t, api.ErrWouldBlock, classify("read", unix.EINTR))
	err := classify("read", unix.ECONNRESET)
	assert.ErrorIs(t, err, unix.ECONNRESET)
	assert.Contains(t, err.Error(), "read")
}
