package kfmt

import "io"

// PrefixWriter is an io.Writer that wraps another io.Writer and injects a
// prefix at the beginning of each line. The boot sequence uses it to tag the
// output of each subsystem (e.g. "[pmm] ").
type PrefixWriter struct {
	// A writer where all writes get sent to.
	Sink io.Writer

	// The prefix injected at the beginning of each line.
	Prefix []byte

	midLine bool
}

// Write writes p to the sink injecting the prefix after every newline. The
// injected prefix is not included in the returned byte count.
func (w *PrefixWriter) Write(p []byte) (int, error) {
	var written int

	for len(p) != 0 {
		if !w.midLine {
			if _, err := w.Sink.Write(w.Prefix); err != nil {
				return written, err
			}
			w.midLine = true
		}

		lineEnd := len(p)
		for i, b := range p {
			if b == '\n' {
				lineEnd = i + 1
				break
			}
		}

		n, err := w.Sink.Write(p[:lineEnd])
		written += n
		if err != nil {
			return written, err
		}

		if p[lineEnd-1] == '\n' {
			w.midLine = false
		}
		p = p[lineEnd:]
	}

	return written, nil
}
