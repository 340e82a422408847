package kfmt

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer(t *testing.T) {
	var (
		buf      bytes.Buffer
		expStr   = "the big brown fox jumped over the lazy dog"
		rb       ringBuffer
		readBuf  = make([]byte, 7)
		chunkLen int
	)

	t.Run("read/write", func(t *testing.T) {
		rb.wIndex, rb.rIndex = 0, 0
		n, err := rb.Write([]byte(expStr))
		require.NoError(t, err)
		require.Equal(t, len(expStr), n)

		buf.Reset()
		_, err = io.Copy(&buf, &rb)
		require.NoError(t, err)
		require.Equal(t, expStr, buf.String())
	})

	t.Run("write index wraps around", func(t *testing.T) {
		rb.wIndex, rb.rIndex = ringBufferSize-1, ringBufferSize-1
		_, err := rb.Write([]byte{'!'})
		require.NoError(t, err)

		require.Equal(t, 0, rb.wIndex)
		require.Equal(t, ringBufferSize-1, rb.rIndex)
	})

	t.Run("wrapped read", func(t *testing.T) {
		rb.wIndex, rb.rIndex = ringBufferSize-3, ringBufferSize-3
		_, err := rb.Write([]byte(expStr))
		require.NoError(t, err)

		buf.Reset()
		for {
			chunkLen, err = rb.Read(readBuf)
			if err == io.EOF {
				break
			}
			buf.Write(readBuf[:chunkLen])
		}
		require.Equal(t, expStr, buf.String())
	})

	t.Run("overflow keeps latest bytes", func(t *testing.T) {
		rb.wIndex, rb.rIndex = 0, 0
		data := bytes.Repeat([]byte{'a'}, ringBufferSize)
		data = append(data, []byte("tail")...)
		_, err := rb.Write(data)
		require.NoError(t, err)

		buf.Reset()
		_, err = io.Copy(&buf, &rb)
		require.NoError(t, err)
		require.Equal(t, ringBufferSize-1, buf.Len())
		require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("tail")))
	})
}
