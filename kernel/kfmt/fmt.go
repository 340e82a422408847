// Package kfmt implements the kernel's formatted output. Output is sent to a
// pluggable sink (the display or serial collaborator); until one is attached
// it is retained in a ring buffer so early boot messages are not lost.
package kfmt

import (
	"fmt"
	"io"

	"github.com/keyem4251/toyos/kernel/sync"
)

var (
	// outputLock serializes writes to the active sink. Printf may be
	// invoked both by the main kernel thread and by interrupt handlers.
	outputLock sync.Spinlock

	// earlyPrintBuffer is a ring buffer that stores Printf output before an
	// output sink is attached.
	earlyPrintBuffer ringBuffer

	// outputSink is an io.Writer where Printf will send its output. If set
	// to nil, then the output will be redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputLock.Acquire()
	defer outputLock.Release()

	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns a writer that forwards to the active output sink (or
// the early print buffer while no sink is attached).
func GetOutputSink() io.Writer {
	return sinkWriter{}
}

// Printf formats according to the format specifier and writes to the active
// output sink.
func Printf(format string, args ...interface{}) {
	outputLock.Acquire()
	defer outputLock.Release()

	_, _ = fmt.Fprintf(activeSink(), format, args...)
}

// Fprintf behaves exactly like Printf but writes its output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func activeSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}
	return outputSink
}

// sinkWriter forwards writes to whatever sink is active at the time of the
// write, holding the output lock for the duration of each write.
type sinkWriter struct{}

func (sinkWriter) Write(p []byte) (int, error) {
	outputLock.Acquire()
	defer outputLock.Release()

	return activeSink().Write(p)
}
