package transport_test

import (
	"fmt"

	"github.com/momentics/esocket/transport"
)

// recorder is a Handler appending every event to a shared log.
type recorder struct {
	name string
	log  *[]string
	data [][]byte
	errs []error

	onConnected func(c *transport.Connection)
	onData      func(c *transport.Connection, buf []byte)
}

func newRecorder(name string, log *[]string) *recorder {
	return &recorder{name: name, log: log}
}

func (r *recorder) add(ev string) { *r.log = append(*r.log, r.name+":"+ev) }

func (r *recorder) Connected(c *transport.Connection, _ any) {
	r.add("connected")
	if r.onConnected != nil {
		r.onConnected(c)
	}
}

func (r *recorder) Data(c *transport.Connection, buf []byte) {
	r.add(fmt.Sprintf("data(%s)", buf))
	r.data = append(r.data, buf)
	if r.onData != nil {
		r.onData(c, buf)
	}
}

func (r *recorder) Timeout(*transport.Connection, any) { r.add("timeout") }

func (r *recorder) Error(_ *transport.Connection, err error) {
	r.add("error")
	r.errs = append(r.errs, err)
}

func (r *recorder) Disconnected(*transport.Connection, any) { r.add("disconnected") }

// observe registers bookkeeping observers writing to log.
func observe(s interface {
	On(transport.Event, transport.EventFunc)
}, name string, log *[]string, events ...transport.Event) {
	for _, ev := range events {
		ev := ev
		s.On(ev, func(transport.Socket, any) bool {
			*log = append(*log, name+":"+ev.String())
			return true
		})
	}
}
