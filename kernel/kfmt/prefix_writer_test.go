package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrefixWriter(t *testing.T) {
	specs := []struct {
		input []string
		exp   string
	}{
		{[]string{"no line break"}, "[p] no line break"},
		{[]string{"line\n"}, "[p] line\n"},
		{[]string{"one\ntwo\n"}, "[p] one\n[p] two\n"},
		{[]string{"spl", "it\nne", "xt"}, "[p] split\n[p] next"},
		{[]string{"\n\n"}, "[p] \n[p] \n"},
		{[]string{""}, ""},
	}

	for specIndex, spec := range specs {
		var buf bytes.Buffer
		w := PrefixWriter{Sink: &buf, Prefix: []byte("[p] ")}

		var expWritten, written int
		for _, in := range spec.input {
			n, err := w.Write([]byte(in))
			require.NoError(t, err, "spec %d", specIndex)
			written += n
			expWritten += len(in)
		}

		require.Equal(t, spec.exp, buf.String(), "spec %d", specIndex)
		require.Equal(t, expWritten, written, "spec %d", specIndex)
	}
}

type failingWriter struct{ failAfter int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.failAfter == 0 {
		return 0, errors.New("write failed")
	}
	w.failAfter--
	return len(p), nil
}

func TestPrefixWriterErrors(t *testing.T) {
	w := PrefixWriter{Sink: &failingWriter{failAfter: 0}, Prefix: []byte("> ")}
	_, err := w.Write([]byte("data"))
	require.Error(t, err)

	w = PrefixWriter{Sink: &failingWriter{failAfter: 1}, Prefix: []byte("> ")}
	n, err := w.Write([]byte("data"))
	require.Error(t, err)
	require.Equal(t, 0, n)
}
