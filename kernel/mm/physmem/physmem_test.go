package physmem

import (
	"testing"

	"github.com/keyem4251/toyos/kernel/mm"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(mm.PageSize - 1)
	require.Equal(t, errInvalidSize, err)

	m, err := New(3*mm.PageSize + 1)
	require.Nil(t, err)
	defer func() { require.NoError(t, m.Close()) }()

	require.Equal(t, 4*mm.PageSize, m.Size())

	var pm mm.PhysMap = m
	*(*uint64)(pm.Pointer(0x1008)) = 0xcafebabe
	require.Equal(t, []byte{0xbe, 0xba, 0xfe, 0xca}, m.Bytes(0x1008, 4))

	for _, b := range m.Bytes(0x2000, mm.PageSize) {
		require.Zero(t, b, "emulated RAM must start zeroed")
	}
}

func TestBusError(t *testing.T) {
	m, err := New(mm.PageSize)
	require.Nil(t, err)
	defer m.Close()

	require.PanicsWithValue(t, errBusError, func() { m.Pointer(mm.PageSize) })
	require.PanicsWithValue(t, errBusError, func() { m.Bytes(mm.PageSize-1, 2) })
}

func TestCloseIsIdempotent(t *testing.T) {
	m, err := New(mm.PageSize)
	require.Nil(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}
