// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Record extraction on top of transport.Connection. Connections hand
// handlers a snapshot of everything received so far; the helpers here cut
// complete delimited records out of it and consume them with Recv, leaving
// partial records buffered for the next "data" event.

package protocol
