package sync

import (
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel"
)

const (
	cellUninit uint32 = iota
	cellInitializing
	cellReady
)

var (
	// ErrAlreadyInitialized is returned when a one-shot structure is
	// initialized for a second time.
	ErrAlreadyInitialized = &kernel.Error{Module: "sync", Message: "already initialized"}

	// ErrUninitialized is returned when a cell is read before it was set.
	ErrUninitialized = &kernel.Error{Module: "sync", Message: "not initialized"}
)

// OnceCell holds a value that can be set exactly once. Reads never block so
// a cell can be queried from interrupt context; a read that races with the
// initialization observes the cell as uninitialized.
type OnceCell[T any] struct {
	state uint32
	value T
}

// TryInit stores the value returned by initFn. initFn is only invoked by the
// first caller; every later call returns ErrAlreadyInitialized and leaves the
// stored value untouched.
func (c *OnceCell[T]) TryInit(initFn func() T) *kernel.Error {
	if !atomic.CompareAndSwapUint32(&c.state, cellUninit, cellInitializing) {
		return ErrAlreadyInitialized
	}

	c.value = initFn()
	atomic.StoreUint32(&c.state, cellReady)
	return nil
}

// TryGet returns the stored value or ErrUninitialized if the cell has not
// been set yet.
func (c *OnceCell[T]) TryGet() (T, *kernel.Error) {
	if atomic.LoadUint32(&c.state) != cellReady {
		var zero T
		return zero, ErrUninitialized
	}

	return c.value, nil
}
