//go:build !linux

package softi2c

import "runtime"

// LockThread wires the calling goroutine to its OS thread. CPU pinning is
// only available on Linux; cpu is ignored elsewhere.
func LockThread(cpu int) (func(), error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, nil
}
