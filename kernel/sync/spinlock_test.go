package sync

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpinlock(t *testing.T) {
	// Substitute the yieldFn with runtime.Gosched to avoid deadlocks while testing
	defer func(origYieldFn func()) { yieldFn = origYieldFn }(yieldFn)
	yieldFn = runtime.Gosched

	var (
		sl         Spinlock
		wg         sync.WaitGroup
		numWorkers = 10
		counter    int
	)

	sl.Acquire()
	require.Equal(t, uint32(1), sl.state)

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				sl.Acquire()
				counter++
				sl.Release()
			}
		}()
	}

	<-time.After(50 * time.Millisecond)
	sl.Release()
	wg.Wait()

	require.Equal(t, numWorkers*100, counter)
	require.Zero(t, sl.state)
}
