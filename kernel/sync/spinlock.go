// Package sync provides the synchronization primitives used by the kernel core:
// a spinlock for short critical sections and a once-only initialization cell.
package sync

import (
	"runtime"
	"sync/atomic"
)

const attemptsBeforeYielding = 64

var (
	// yieldFn is invoked after a number of failed acquisition attempts. The
	// kernel runs a single cooperative thread so yielding only matters
	// when the lock holder runs on another goroutine (emulated interrupts).
	yieldFn = runtime.Gosched
)

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempts := uint32(0); ; attempts++ {
		if atomic.LoadUint32(&l.state) == 0 && atomic.CompareAndSwapUint32(&l.state, 0, 1) {
			return
		}

		if attempts == attemptsBeforeYielding {
			attempts = 0
			if yieldFn != nil {
				yieldFn()
			}
		}
	}
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
