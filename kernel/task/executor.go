package task

import (
	"sync/atomic"

	"github.com/keyem4251/toyos/kernel"
	"github.com/keyem4251/toyos/kernel/cpu"
)

// ErrTooManyTasks is returned by Spawn when the executor already tracks as
// many tasks as its ready queue can hold.
var ErrTooManyTasks = &kernel.Error{Module: "task", Message: "too many tasks for the ready queue"}

// ID uniquely identifies a task for the lifetime of its executor.
type ID uint64

// task is a spawned future. queued is set while the task id sits in the
// ready queue so repeated wakes enqueue it once. A task that completes while
// its id is still queued is marked done and dropped when the id is popped.
type task struct {
	id     ID
	future Future
	queued atomic.Bool
	done   bool
}

// Executor polls tasks on the kernel thread. Tasks are only polled after they
// have been spawned or woken; when nothing is ready the executor halts the CPU
// until the next interrupt.
type Executor struct {
	proc  cpu.Processor
	ready *Queue

	tasks  map[ID]*task
	wakers map[ID]Waker
	nextID ID

	// completed counts tasks that are done but still own a ready queue slot.
	completed int
}

// NewExecutor returns an executor that uses ready as its ready queue. The
// capacity of ready bounds the number of tracked tasks, including completed
// tasks whose id has not been popped yet, so a wake always finds a free slot.
func NewExecutor(proc cpu.Processor, ready *Queue) *Executor {
	return &Executor{
		proc:   proc,
		ready:  ready,
		tasks:  make(map[ID]*task),
		wakers: make(map[ID]Waker),
	}
}

// Spawn registers future as a new task and schedules it. The future is not
// polled until the executor runs.
func (e *Executor) Spawn(future Future) (ID, *kernel.Error) {
	if uint64(len(e.tasks)) >= e.ready.Cap() {
		return 0, ErrTooManyTasks
	}

	e.nextID++
	t := &task{id: e.nextID, future: future}
	t.queued.Store(true)
	if err := e.ready.Push(uint64(t.id)); err != nil {
		return 0, err
	}

	e.tasks[t.id] = t
	return t.id, nil
}

// Len returns the number of tasks that have not completed yet.
func (e *Executor) Len() int {
	return len(e.tasks) - e.completed
}

// RunReady polls every task in the ready queue, including tasks that are
// woken while it runs, and returns once the queue is empty.
func (e *Executor) RunReady() {
	for {
		value, ok := e.ready.Pop()
		if !ok {
			return
		}

		id := ID(value)
		t, exists := e.tasks[id]
		if !exists {
			// task no longer exists
			continue
		}

		if t.done {
			e.completed--
			delete(e.tasks, id)
			continue
		}

		// Clear the flag before polling so a wake issued during the
		// poll schedules the task again
		t.queued.Store(false)

		waker, exists := e.wakers[id]
		if !exists {
			waker = taskWaker{task: t, ready: e.ready}
			e.wakers[id] = waker
		}

		if t.future.Poll(NewContext(waker)) != Ready {
			continue
		}

		// Completed tasks stay flagged as queued so late wakes are
		// ignored. A task that woke itself during its last poll keeps
		// its slot until the queued id is popped.
		delete(e.wakers, id)
		if t.queued.CompareAndSwap(false, true) {
			delete(e.tasks, id)
			continue
		}
		t.done = true
		e.completed++
	}
}

// Run polls tasks until all of them have completed, halting the CPU whenever
// no task is ready.
func (e *Executor) Run() {
	for len(e.tasks) > 0 {
		e.RunReady()
		e.sleepIfIdle()
	}
}

// sleepIfIdle halts the CPU if the ready queue is empty. The check runs with
// interrupts disabled and the halt re-enables them atomically, so a wake that
// lands after the check ends the halt instead of being lost.
func (e *Executor) sleepIfIdle() {
	if len(e.tasks) == 0 {
		return
	}

	e.proc.DisableInterrupts()
	if e.ready.IsEmpty() {
		e.proc.EnableInterruptsAndHalt()
		return
	}
	e.proc.EnableInterrupts()
}

// taskWaker requeues its task. It is safe to use from interrupt handlers: it
// only touches atomics and the lock-free ready queue.
type taskWaker struct {
	task  *task
	ready *Queue
}

// Wake implements Waker.
func (w taskWaker) Wake() {
	if !w.task.queued.CompareAndSwap(false, true) {
		return
	}

	// Every tracked task owns at most one queued id and Spawn keeps the
	// number of tracked tasks within the queue capacity. A failed push
	// means that accounting is broken.
	if err := w.ready.Push(uint64(w.task.id)); err != nil {
		w.task.queued.Store(false)
		panic(err)
	}
}
