//go:build linux
// +build linux

package affinity_test

import (
	"runtime"
	"testing"

	"github.com/momentics/esocket/affinity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPin(t *testing.T) {
	done := make(chan struct{})
	// Pin a throwaway goroutine: its thread exits with the locked goroutine.
	go func() {
		defer close(done)
		runtime.LockOSThread()

		allowed, err := affinity.Current()
		require.NoError(t, err)
		require.NotEmpty(t, allowed)
		cpu := allowed[len(allowed)-1]

		unpin, err := affinity.Pin(cpu)
		require.NoError(t, err)
		defer unpin()

		now, err := affinity.Current()
		require.NoError(t, err)
		assert.Equal(t, []int{cpu}, now)
	}()
	<-done
}

func TestPinInvalid(t *testing.T) {
	unpin, err := affinity.Pin(-1)
	assert.Error(t, err)
	unpin()
}
