// Package irqbridge hands bytes from an interrupt handler to a task. The
// producer side never blocks and never allocates; the consumer side is polled
// by the executor and sleeps on a waker while the bridge is empty.
package irqbridge

import (
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/task"
)

// Ring is the bounded buffer behind a Bridge. It is implemented by
// *task.Queue.
type Ring interface {
	Push(value uint64) *kernel.Error
	Pop() (uint64, bool)
}

// Stream is an asynchronous sequence of bytes. PollNext returns task.Pending
// if no byte is available yet, in which case the waker in ctx is invoked once
// that changes. Otherwise it returns task.Ready and either the next byte with
// ok set, or ok unset once the stream has ended.
type Stream interface {
	PollNext(ctx *task.Context) (poll task.Poll, value byte, ok bool)
}

// Bridge is a single-producer single-consumer channel between an interrupt
// handler, which calls Offer and Close, and one consumer task, which calls
// PollNext.
type Bridge struct {
	ring   Ring
	waker  task.AtomicWaker
	closed atomic.Bool

	dropped     atomic.Uint64
	overflows   atomic.Uint64
	lastDropped atomic.Uint32

	// reported is the number of overflows already reported by the
	// consumer.
	reported uint64
}

// New returns a bridge that buffers bytes in ring.
func New(ring Ring) *Bridge {
	return &Bridge{ring: ring}
}

// Offer queues value and wakes the consumer. If the buffer is full or the
// bridge is closed the byte is dropped and Offer returns false. Offer runs in
// interrupt context and never prints; overflows are reported by PollNext.
func (b *Bridge) Offer(value byte) bool {
	if b.closed.Load() {
		b.dropped.Add(1)
		return false
	}

	if err := b.ring.Push(uint64(value)); err != nil {
		b.dropped.Add(1)
		b.lastDropped.Store(uint32(value))
		b.overflows.Add(1)
		// Keep the consumer running so it reports the overflow
		b.waker.Wake()
		return false
	}

	b.waker.Wake()
	return true
}

// Close ends the stream. Bytes already queued are still delivered; once they
// are drained PollNext reports the end of the stream.
func (b *Bridge) Close() {
	b.closed.Store(true)
	b.waker.Wake()
}

// Dropped returns the number of bytes discarded by Offer.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

// PollNext implements Stream.
func (b *Bridge) PollNext(ctx *task.Context) (task.Poll, byte, bool) {
	b.reportOverflows()

	// fast path
	if value, ok := b.ring.Pop(); ok {
		return task.Ready, byte(value), true
	}

	b.waker.Register(ctx.Waker())

	// A byte offered between the first pop and the registration would
	// not have woken us, so look again.
	if value, ok := b.ring.Pop(); ok {
		b.waker.Take()
		return task.Ready, byte(value), true
	}

	if b.closed.Load() {
		// Bytes offered before Close may land after the pop above
		if value, ok := b.ring.Pop(); ok {
			b.waker.Take()
			return task.Ready, byte(value), true
		}

		b.waker.Take()
		return task.Ready, 0, false
	}

	return task.Pending, 0, false
}

// reportOverflows prints a warning for the bytes Offer dropped on a full
// queue since the last report. It runs on the kernel thread.
func (b *Bridge) reportOverflows() {
	overflows := b.overflows.Load()
	if overflows == b.reported {
		return
	}

	kfmt.Printf("[irqbridge] WARNING: queue full; dropped %d byte(s), last 0x%02x\n", overflows-b.reported, byte(b.lastDropped.Load()))
	b.reported = overflows
}
