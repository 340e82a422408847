package heap

import (
	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/sync"
)

// Locked serializes access to an allocator with a spinlock that is held for
// the duration of a single Alloc or Dealloc call.
type Locked[A RegionAllocator] struct {
	lock  sync.Spinlock
	inner A
}

// NewLocked wraps inner.
func NewLocked[A RegionAllocator](inner A) *Locked[A] {
	return &Locked[A]{inner: inner}
}

// Init implements RegionAllocator.
func (l *Locked[A]) Init(heapStart, heapSize uintptr) *kernel.Error {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.inner.Init(heapStart, heapSize)
}

// Alloc implements GlobalAllocator.
func (l *Locked[A]) Alloc(layout Layout) uintptr {
	l.lock.Acquire()
	defer l.lock.Release()
	return l.inner.Alloc(layout)
}

// Dealloc implements GlobalAllocator.
func (l *Locked[A]) Dealloc(addr uintptr, layout Layout) {
	l.lock.Acquire()
	defer l.lock.Release()
	l.inner.Dealloc(addr, layout)
}

// Do invokes fn with the wrapped allocator while holding the lock.
func (l *Locked[A]) Do(fn func(A)) {
	l.lock.Acquire()
	defer l.lock.Release()
	fn(l.inner)
}
