package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture(t *testing.T) {
	ok, fault := capture("data", func() bool { return true })
	assert.True(t, ok)
	assert.Nil(t, fault)

	ok, fault = capture("data", func() bool { return false })
	assert.False(t, ok)
	assert.Nil(t, fault)

	ok, fault = capture("timeout", func() bool { panic("boom") })
	assert.False(t, ok)
	require.NotNil(t, fault)
	assert.Equal(t, "timeout", fault.Event)
	assert.Equal(t, "boom", fault.Value)
	assert.Contains(t, fault.Error(), "timeout")
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "peer-added", EventPeerAdded.String())
	assert.Equal(t, "unknown", Event(99).String())
	assert.Equal(t, "draining", ListenerDraining.String())
	assert.Equal(t, "connecting", StateConnecting.String())
}

func TestConsume(t *testing.T) {
	b := buffers.Get()
	defer buffers.Put(b)
	_, _ = b.WriteString("abcdef")
	consume(b, 2)
	assert.Equal(t, "cdef", b.String())
	consume(b, 4)
	assert.Zero(t, b.Len())
}
