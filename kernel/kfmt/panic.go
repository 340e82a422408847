package kfmt

import (
	"github.com/keyem4251/toyos/kernel"
)

var (
	// haltFn is invoked after the panic banner is printed. It defaults to
	// blocking forever which matches a halted CPU with interrupts masked.
	haltFn = func() { select {} }

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// SetHaltHook installs the function that Panic invokes after reporting the
// failure. The test harness and the host tool use it to translate a kernel
// panic into an exit code.
func SetHaltHook(fn func()) {
	if fn == nil {
		fn = func() { select {} }
	}
	haltFn = fn
}

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic do not return unless the installed halt hook does.
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t}
	case error:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t.Error()}
	case nil:
	default:
		err = errRuntimePanic
	}

	Printf("\n-----------------------------------\n")
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf("\n-----------------------------------\n")

	haltFn()
}
