// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package protocol

import (
	"bytes"

	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/transport"
	"github.com/pkg/errors"
)

// ErrLineTooLong is reported when the buffered bytes exceed the line limit
// without containing a delimiter.
var ErrLineTooLong = errors.New("protocol: line too long")

// Newline is the default record delimiter.
var Newline = []byte("\n")

// ReadLine removes the first complete record from c's receive buffer.
// snapshot must be the buffer contents as given to Handler.Data, minus
// whatever was consumed since. The returned record includes the
// delimiter. ok is false when no complete record is buffered.
func ReadLine(c *transport.Connection, snapshot, delim []byte) (line []byte, ok bool) {
	if len(delim) == 0 {
		delim = Newline
	}
	i := bytes.Index(snapshot, delim)
	if i < 0 {
		return nil, false
	}
	return c.Recv(i + len(delim)), true
}

// ReadLines removes every complete record from c's receive buffer.
func ReadLines(c *transport.Connection, snapshot, delim []byte) [][]byte {
	var lines [][]byte
	for {
		line, ok := ReadLine(c, snapshot, delim)
		if !ok {
			return lines
		}
		snapshot = snapshot[len(line):]
		lines = append(lines, line)
	}
}

// LineHandler turns "data" events into one OnLine call per complete
// record. The remaining events go to the embedded Handler, which may be
// nil.
type LineHandler struct {
	transport.Handler

	// OnLine receives each record, delimiter included.
	OnLine func(c *transport.Connection, line []byte)
	// Delim separates records, Newline if empty.
	Delim []byte
	// MaxLine bounds a pending partial record. Exceeding it reports
	// ErrLineTooLong through Error and closes the connection.
	MaxLine api.Limit
}

var _ transport.Handler = (*LineHandler)(nil)

func (h *LineHandler) Data(c *transport.Connection, buf []byte) {
	for _, line := range ReadLines(c, buf, h.Delim) {
		if h.OnLine != nil {
			h.OnLine(c, line)
		}
		if !c.IsActive() {
			return
		}
	}
	if !h.MaxLine.Allows(c.RecvLen()) {
		h.Error(c, ErrLineTooLong)
		c.Close()
	}
}

func (h *LineHandler) Connected(c *transport.Connection, data any) {
	if h.Handler != nil {
		h.Handler.Connected(c, data)
	}
}

func (h *LineHandler) Timeout(c *transport.Connection, data any) {
	if h.Handler != nil {
		h.Handler.Timeout(c, data)
	}
}

func (h *LineHandler) Error(c *transport.Connection, err error) {
	if h.Handler != nil {
		h.Handler.Error(c, err)
	}
}

func (h *LineHandler) Disconnected(c *transport.Connection, data any) {
	if h.Handler != nil {
		h.Handler.Disconnected(c, data)
	}
}
