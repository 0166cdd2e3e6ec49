package control_test

import (
	"net"
	"testing"

	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/control"
	"github.com/momentics/esocket/fake"
	"github.com/momentics/esocket/transport"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestMetricsInstrument(t *testing.T) {
	r := fake.NewReactor()
	lsock := fake.NewSocket()
	factory := transport.NewPeerFactory(
		func() transport.Handler { return transport.NopHandler{} },
		transport.WithMaxRecv(api.LimitOf(2)),
		transport.WithMaxSend(api.LimitOf(2)),
	)
	l := transport.NewListener(r, lsock, factory)
	m := control.NewMetrics("esocket")
	m.Instrument(l)
	l.OnPeer(func(_ *transport.Listener, addr net.Addr) bool {
		return addr.(*net.TCPAddr).Port != 1
	})
	l.Listen(&net.TCPAddr{Port: 9000}, 0)

	peers := []*fake.Socket{fake.NewSocket(), fake.NewSocket(), fake.NewSocket()}
	for i, s := range peers {
		lsock.Enqueue(s, &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: i})
	}
	r.Readable(lsock.Fd())

	assert.Equal(t, 3.0, value(t, m.Offered))
	assert.Equal(t, 2.0, value(t, m.Accepted))
	assert.Equal(t, 2.0, value(t, m.Peers))

	peers[0].Feed([]byte("toolong"))
	r.Readable(peers[0].Fd())
	assert.Equal(t, 1.0, value(t, m.Overflows.WithLabelValues("recv")))

	for _, p := range l.PeerSet() {
		p.Send([]byte("xyz"))
	}
	assert.Equal(t, 2.0, value(t, m.Overflows.WithLabelValues("send")))

	peers[2].SetEOF()
	r.Readable(peers[2].Fd())
	assert.Equal(t, 1.0, value(t, m.Peers))
	assert.Equal(t, 1.0, value(t, m.Disconnects))

	l.Close(false)
	assert.Equal(t, 0.0, value(t, m.Peers))
	assert.Equal(t, 2.0, value(t, m.Disconnects))
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := control.NewMetrics("esocket")
	require.NoError(t, m.Register(reg))
	assert.Error(t, m.Register(reg))

	m.Overflows.WithLabelValues("send").Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "esocket_peers_accepted_total")
	assert.Contains(t, names, "esocket_buffer_overflows_total")
}
