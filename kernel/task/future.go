// Package task implements cooperative multitasking: futures that are polled
// by a single-threaded executor and rescheduled by wakers, typically invoked
// from interrupt handlers.
package task

import (
	"sync/atomic"
)

// Poll is the outcome of polling a Future.
type Poll uint8

const (
	// Pending indicates that the future cannot make progress until its
	// waker is invoked.
	Pending Poll = iota

	// Ready indicates that the future has completed.
	Ready
)

// Future is a computation that advances each time it is polled. A Future that
// returns Pending must arrange for the waker in ctx to be invoked once it can
// make progress.
type Future interface {
	Poll(ctx *Context) Poll
}

// FutureFunc adapts a function to the Future interface.
type FutureFunc func(ctx *Context) Poll

// Poll implements Future.
func (fn FutureFunc) Poll(ctx *Context) Poll { return fn(ctx) }

// Waker reschedules the task it was created for. Wake must be safe to invoke
// from an interrupt handler and waking a task that is already scheduled must
// be a no-op.
type Waker interface {
	Wake()
}

// Context is passed to Future.Poll.
type Context struct {
	waker Waker
}

// NewContext returns a Context carrying waker.
func NewContext(waker Waker) *Context {
	return &Context{waker: waker}
}

// Waker returns the waker of the task being polled.
func (c *Context) Waker() Waker {
	return c.waker
}

// AtomicWaker holds at most one waker. Registering replaces any previously
// registered waker, so the cell always targets the most recent poller.
type AtomicWaker struct {
	cell atomic.Pointer[wakerCell]
}

type wakerCell struct {
	waker Waker
}

// Register stores waker, replacing the current registration.
func (a *AtomicWaker) Register(waker Waker) {
	a.cell.Store(&wakerCell{waker: waker})
}

// Take removes and returns the registered waker, or nil if there is none.
func (a *AtomicWaker) Take() Waker {
	if cell := a.cell.Swap(nil); cell != nil {
		return cell.waker
	}
	return nil
}

// Wake takes the registered waker, if any, and invokes it.
func (a *AtomicWaker) Wake() {
	if waker := a.Take(); waker != nil {
		waker.Wake()
	}
}
