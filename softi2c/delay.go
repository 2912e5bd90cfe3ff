package softi2c

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// DefaultDelayUnits is the half-bit loop count used when none is configured.
// Larger values give a slower bus.
const DefaultDelayUnits = 45

// Delayer waits for half of one bit period. Implementations must not yield:
// the lines have to change inside tight windows.
type Delayer interface {
	WaitHalfBit()
}

// LoopDelay spins for a fixed number of loop iterations.
type LoopDelay int

func (l LoopDelay) WaitHalfBit() {
	spin(int(l))
}

// spin stays out of line so the loop is not optimized away.
//
//go:noinline
func spin(n int) int {
	k := 0
	for i := 0; i < n; i++ {
		k += i
	}
	return k
}

// SpinDelay busy-waits on the monotonic clock.
type SpinDelay time.Duration

func (s SpinDelay) WaitHalfBit() {
	start := time.Now()
	for time.Since(start) < time.Duration(s) {
	}
}

type noDelay struct{}

func (noDelay) WaitHalfBit() {}

// NoDelay returns immediately. It is meant for simulated lines.
var NoDelay Delayer = noDelay{}

// DelayForSpeed returns a SpinDelay of half the bit period at f.
func DelayForSpeed(f physic.Frequency) Delayer {
	if f <= 0 {
		return LoopDelay(DefaultDelayUnits)
	}
	return SpinDelay(f.Period() / 2)
}
