// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Debug probes for inspecting live sockets.

package control

import (
	"runtime"
	"sort"
	"sync"

	"github.com/momentics/esocket/transport"
	"github.com/sirupsen/logrus"
)

// DebugProbes holds registered probe functions. Probes that read socket
// state must be dumped from the reactor goroutine.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry with a goroutine count probe.
func NewDebugProbes() *DebugProbes {
	dp := &DebugProbes{probes: make(map[string]func() any)}
	dp.RegisterProbe("runtime.goroutines", func() any { return runtime.NumGoroutine() })
	return dp
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// RegisterListener adds a probe describing l and its peers.
func (dp *DebugProbes) RegisterListener(name string, l *transport.Listener) {
	dp.RegisterProbe(name, func() any {
		return map[string]any{
			"state":     l.State().String(),
			"accepting": l.IsAccepting(),
			"peers":     l.Peers(),
			"max_peers": l.MaxPeers().String(),
			"faults":    l.Faults(),
		}
	})
}

// DumpState returns output of all probes.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// Log writes every probe to logger, one entry per probe in name order.
func (dp *DebugProbes) Log(logger logrus.FieldLogger) {
	state := dp.DumpState()
	names := make([]string, 0, len(state))
	for k := range state {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		logger.WithField("probe", k).WithField("value", state[k]).Info("debug probe")
	}
}
