//go:build linux

package softi2c

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// LockThread wires the calling goroutine to its OS thread and, when cpu is not
// negative, restricts that thread to the given CPU. The returned function
// undoes both.
func LockThread(cpu int) (func(), error) {
	runtime.LockOSThread()

	if cpu < 0 {
		return runtime.UnlockOSThread, nil
	}

	var old unix.CPUSet
	if err := unix.SchedGetaffinity(0, &old); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("get affinity: %w", err)
	}

	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("pin to cpu %d: %w", cpu, err)
	}

	return func() {
		unix.SchedSetaffinity(0, &old)
		runtime.UnlockOSThread()
	}, nil
}
