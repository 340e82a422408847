package tty

import (
	"testing"

	"github.com/keyem4251/toyos/device/video/console"
	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/stretchr/testify/require"
)

func newTestVt(t *testing.T) (*Vt, *console.Vga) {
	cons, err := console.NewVga(mm.NewSliceBacking(console.VgaFramebufferSize), 0xb8000)
	require.Nil(t, err)

	var vt Vt
	vt.AttachTo(cons)
	vt.Clear()
	return &vt, cons
}

func TestVtPosition(t *testing.T) {
	specs := []struct {
		inX, inY   uint16
		expX, expY uint16
	}{
		{20, 20, 20, 20},
		{100, 20, 79, 20},
		{10, 200, 10, 24},
		{100, 100, 79, 24},
	}

	vt, _ := newTestVt(t)

	w, h := vt.Dimensions()
	require.Equal(t, uint16(80), w)
	require.Equal(t, uint16(25), h)

	for specIndex, spec := range specs {
		vt.SetPosition(spec.inX, spec.inY)
		x, y := vt.Position()
		require.Equal(t, spec.expX, x, "spec %d", specIndex)
		require.Equal(t, spec.expY, y, "spec %d", specIndex)
	}
}

func TestVtWrite(t *testing.T) {
	vt, cons := newTestVt(t)

	vt.SetPosition(0, 1)
	_, err := vt.Write([]byte("12\n\t3\n4\r567\b8"))
	require.NoError(t, err)

	// Tab spanning rows
	vt.SetPosition(78, 4)
	require.NoError(t, vt.WriteByte('\t'))
	require.NoError(t, vt.WriteByte('9'))

	// Trigger a scroll
	vt.SetPosition(79, 24)
	_, err = vt.Write([]byte{'!'})
	require.NoError(t, err)

	specs := []struct {
		x, y    uint16
		expChar byte
	}{
		{0, 0, '1'},
		{1, 0, '2'},
		{0, 1, ' '},
		{3, 1, ' '},
		{4, 1, '3'},
		{0, 2, '5'},
		{1, 2, '6'},
		{2, 2, '8'}, // overwritten after BS
		{78, 3, ' '},
		{79, 3, ' '},
		{0, 4, ' '},
		{1, 4, ' '},
		{2, 4, '9'},
		{79, 23, '!'},
	}

	for specIndex, spec := range specs {
		ch, attr := cons.Read(spec.x, spec.y)
		require.Equal(t, string(spec.expChar), string(ch), "spec %d at (%d, %d)", specIndex, spec.x, spec.y)
		if ch != ' ' {
			require.Equal(t, makeAttr(defaultFg, defaultBg), attr)
		}
	}

	x, y := vt.Position()
	require.Equal(t, uint16(0), x)
	require.Equal(t, uint16(24), y)
}

func TestVtLines(t *testing.T) {
	vt, _ := newTestVt(t)
	require.Empty(t, vt.Lines())

	_, err := vt.Write([]byte("hello  \n\nworld\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"hello", "", "world"}, vt.Lines())
}
