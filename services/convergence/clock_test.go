package convergence

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockWaitCountsTicks(t *testing.T) {
	var ticks int32
	c := Clock{Tick: time.Millisecond, TickSeconds: 1}

	err := c.Wait(context.Background(), 10*time.Second, func() float64 { return 2 }, func() bool {
		atomic.AddInt32(&ticks, 1)
		return false
	})

	require.NoError(t, err)
	assert.Equal(t, int32(5), atomic.LoadInt32(&ticks))
}

func TestClockWaitFloorsSpeed(t *testing.T) {
	var ticks int32
	c := Clock{Tick: time.Millisecond, TickSeconds: 1}

	err := c.Wait(context.Background(), time.Second, func() float64 { return 0 }, func() bool {
		atomic.AddInt32(&ticks, 1)
		return false
	})

	require.NoError(t, err)
	// 0.1 simulated seconds per tick; float accumulation may need one extra tick.
	assert.InDelta(t, 10, atomic.LoadInt32(&ticks), 1)
}

func TestClockWaitStopsWhenDone(t *testing.T) {
	var ticks int32
	c := Clock{Tick: time.Millisecond, TickSeconds: 1}

	err := c.Wait(context.Background(), time.Hour, func() float64 { return 1 }, func() bool {
		return atomic.AddInt32(&ticks, 1) == 3
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&ticks))
}

func TestRandomSimulatorIsSeeded(t *testing.T) {
	a := NewRandomSimulator(7)
	b := NewRandomSimulator(7)
	p := StandardPreset()
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Draw(mockPool(1)[0], p), b.Draw(mockPool(1)[0], p))
	}
}
