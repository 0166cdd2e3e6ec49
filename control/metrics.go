// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus metrics fed by listener bookkeeping events.

package control

import (
	"errors"

	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/transport"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what listeners and their peers go through.
type Metrics struct {
	Offered     prometheus.Counter
	Accepted    prometheus.Counter
	Peers       prometheus.Gauge
	Overflows   *prometheus.CounterVec
	Disconnects prometheus.Counter
}

// NewMetrics creates unregistered metrics under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Offered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peers_offered_total",
			Help:      "Incoming connections submitted to admission.",
		}),
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peers_accepted_total",
			Help:      "Incoming connections turned into peers.",
		}),
		Peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Live peers.",
		}),
		Overflows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffer_overflows_total",
			Help:      "Send or receive data rejected by a buffer cap.",
		}, []string{"direction"}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_disconnects_total",
			Help:      "Peers removed from their listener.",
		}),
	}
}

// Register adds every metric to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Offered, m.Accepted, m.Peers, m.Overflows, m.Disconnects} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Instrument subscribes m to l. Call it before l starts listening. The
// admission observer it adds always agrees, so it never rejects a peer.
func (m *Metrics) Instrument(l *transport.Listener) {
	l.On(transport.EventPeer, func(transport.Socket, any) bool {
		m.Offered.Inc()
		return true
	})
	l.On(transport.EventPeerAdded, func(_ transport.Socket, data any) bool {
		m.Accepted.Inc()
		m.Peers.Inc()
		if peer, ok := data.(*transport.Connection); ok {
			peer.On(transport.EventError, m.countOverflow)
		}
		return true
	})
	l.On(transport.EventPeerRemoved, func(transport.Socket, any) bool {
		m.Peers.Dec()
		m.Disconnects.Inc()
		return true
	})
}

func (m *Metrics) countOverflow(_ transport.Socket, data any) bool {
	err, _ := data.(error)
	var se *api.SendOverflowError
	var re *api.ReceiveOverflowError
	switch {
	case errors.As(err, &se):
		m.Overflows.WithLabelValues("send").Inc()
	case errors.As(err, &re):
		m.Overflows.WithLabelValues("recv").Inc()
	}
	return true
}
