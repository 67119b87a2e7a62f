package common

import (
	deadlock "github.com/sasha-s/go-deadlock"
)

// Latch is the exclusive lock guarding replacer and store state.
// With detection disabled it behaves exactly like sync.Mutex.
type Latch = deadlock.Mutex

func init() {
	deadlock.Opts.Disable = true
}

// EnableDeadlockDetection turns on lock-order and timeout checks for every Latch.
// Call it before any latch is used; it is not safe to flip while locks are held.
func EnableDeadlockDetection(enabled bool) {
	deadlock.Opts.Disable = !enabled
}
