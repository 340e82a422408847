package task

import (
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/mm"
)

const (
	// QueueSlotSize is the number of bytes a Queue needs per slot.
	QueueSlotSize = uintptr(16)

	// QueueAlign is the alignment a Queue backing must have. Every
	// access is an aligned 8-byte word, so no access straddles a page.
	QueueAlign = uintptr(8)
)

var (
	// ErrQueueFull is returned when pushing to a full queue.
	ErrQueueFull = &kernel.Error{Module: "task", Message: "queue is full"}

	errQueueBacking = &kernel.Error{Module: "task", Message: "queue backing is too small or misaligned"}
)

// Queue is a bounded, lock-free, multi-producer multi-consumer FIFO of
// 64-bit values. Its slots live in caller-supplied memory; each slot holds a
// sequence number that tells producers and consumers whether the slot is
// free for the current lap.
type Queue struct {
	slots    mm.Backing
	capacity uint64

	enqueuePos atomic.Uint64
	dequeuePos atomic.Uint64
}

// QueueSize returns the number of bytes of backing needed for capacity slots.
func QueueSize(capacity uint64) uintptr {
	return uintptr(capacity) * QueueSlotSize
}

// NewQueue creates a queue with room for capacity values inside slots, which
// must be at least QueueSize(capacity) bytes and QueueAlign aligned.
func NewQueue(slots mm.Backing, capacity uint64) (*Queue, *kernel.Error) {
	if capacity == 0 || slots.Size() < QueueSize(capacity) || uintptr(slots.Pointer(0))&(QueueAlign-1) != 0 {
		return nil, errQueueBacking
	}

	q := &Queue{slots: slots, capacity: capacity}
	for i := uint64(0); i < capacity; i++ {
		atomic.StoreUint64(q.seq(i), i)
	}
	return q, nil
}

// Cap returns the capacity of the queue.
func (q *Queue) Cap() uint64 {
	return q.capacity
}

// Len returns the number of queued values. The result is approximate while
// other goroutines are pushing or popping.
func (q *Queue) Len() uint64 {
	head, tail := q.dequeuePos.Load(), q.enqueuePos.Load()
	if tail < head {
		return 0
	}
	return tail - head
}

// Push appends value to the queue or returns ErrQueueFull. Push never blocks.
func (q *Queue) Push(value uint64) *kernel.Error {
	pos := q.enqueuePos.Load()
	for {
		index := pos % q.capacity
		seq := atomic.LoadUint64(q.seq(index))

		switch dif := int64(seq - pos); {
		case dif == 0:
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				atomic.StoreUint64(q.value(index), value)
				atomic.StoreUint64(q.seq(index), pos+1)
				return nil
			}
			pos = q.enqueuePos.Load()
		case dif < 0:
			// The slot still holds the value from the previous lap
			return ErrQueueFull
		default:
			pos = q.enqueuePos.Load()
		}
	}
}

// Pop removes the value at the front of the queue. It returns false if the
// queue is empty. Pop never blocks.
func (q *Queue) Pop() (uint64, bool) {
	pos := q.dequeuePos.Load()
	for {
		index := pos % q.capacity
		seq := atomic.LoadUint64(q.seq(index))

		switch dif := int64(seq - (pos + 1)); {
		case dif == 0:
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				value := atomic.LoadUint64(q.value(index))
				atomic.StoreUint64(q.seq(index), pos+q.capacity)
				return value, true
			}
			pos = q.dequeuePos.Load()
		case dif < 0:
			return 0, false
		default:
			pos = q.dequeuePos.Load()
		}
	}
}

// IsEmpty reports whether the queue held no values at the time of the call.
func (q *Queue) IsEmpty() bool {
	pos := q.dequeuePos.Load()
	return atomic.LoadUint64(q.seq(pos%q.capacity)) != pos+1
}

func (q *Queue) seq(index uint64) *uint64 {
	return (*uint64)(q.slots.Pointer(uintptr(index) * QueueSlotSize))
}

func (q *Queue) value(index uint64) *uint64 {
	return (*uint64)(q.slots.Pointer(uintptr(index)*QueueSlotSize + 8))
}
