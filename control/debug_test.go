package control_test

import (
	"net"
	"testing"

	"github.com/momentics/esocket/api"
	"github.com/momentics/esocket/control"
	"github.com/momentics/esocket/fake"
	"github.com/momentics/esocket/transport"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugProbes(t *testing.T) {
	r := fake.NewReactor()
	l := transport.NewListener(r, fake.NewSocket(), transport.NewPeerFactory(nil), transport.WithMaxPeers(api.LimitOf(4)))
	l.Listen(&net.TCPAddr{Port: 9000}, 0)

	dp := control.NewDebugProbes()
	dp.RegisterListener("listener", l)
	state := dp.DumpState()

	require.Contains(t, state, "runtime.goroutines")
	ls, ok := state["listener"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "listening", ls["state"])
	assert.Equal(t, "4", ls["max_peers"])
	assert.Equal(t, 0, ls["peers"])

	logger, hook := test.NewNullLogger()
	dp.Log(logger)
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, "listener", hook.AllEntries()[0].Data["probe"])
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
}
