package keyboard

import (
	"io"

	"github.com/keyem4251/toyos/kernel/irqbridge"
	"github.com/keyem4251/toyos/kernel/kfmt"
	"github.com/keyem4251/toyos/kernel/task"
)

// PrintKeypresses is a task that decodes the scancodes arriving on a stream
// and echoes every key press to w. It completes when the stream ends.
type PrintKeypresses struct {
	scancodes irqbridge.Stream
	decoder   Decoder
	w         io.Writer
}

// NewPrintKeypresses returns a task that reads scancodes from stream.
func NewPrintKeypresses(stream irqbridge.Stream, w io.Writer) *PrintKeypresses {
	return &PrintKeypresses{scancodes: stream, w: w}
}

// Poll implements task.Future.
func (p *PrintKeypresses) Poll(ctx *task.Context) task.Poll {
	for {
		poll, scancode, ok := p.scancodes.PollNext(ctx)
		if poll == task.Pending {
			return task.Pending
		}
		if !ok {
			return task.Ready
		}

		if key, ok := p.decoder.Decode(scancode); ok {
			kfmt.Fprintf(p.w, "%s", key)
		}
	}
}
