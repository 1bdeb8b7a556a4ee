package convergence

import (
	"context"
	"math"
	"time"
)

// minSpeed keeps a zero or negative multiplier from stalling a wait forever.
const minSpeed = 0.1

// Clock advances simulated time in short real-time ticks so status changes and
// real responses are noticed within one tick.
type Clock struct {
	Tick        time.Duration // real time between checks
	TickSeconds float64       // simulated seconds per tick before the speed multiplier
}

// DefaultClock ticks once per real second.
func DefaultClock() Clock {
	return Clock{Tick: time.Second, TickSeconds: 1}
}

// Wait returns once wait simulated time has passed, done reports true, or ctx
// ends. speed is re-read every tick so the multiplier can change mid-wait.
func (c Clock) Wait(ctx context.Context, wait time.Duration, speed func() float64, done func() bool) error {
	tick := c.Tick
	if tick <= 0 {
		tick = time.Second
	}
	perTick := c.TickSeconds
	if perTick <= 0 {
		perTick = tick.Seconds()
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	target := wait.Seconds()
	elapsed := 0.0
	for elapsed < target {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if done() {
			return nil
		}
		elapsed += perTick * math.Max(minSpeed, speed())
	}
	return nil
}
