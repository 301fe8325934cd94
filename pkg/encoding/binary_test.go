package encoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	seven := uint64(7)
	w := NewWriter(64).
		U8(1).U16(2).U32(3).U64(4).
		Bool(true).
		String("tile").
		OptionU64(&seven).
		OptionU64(nil)

	r := NewReader(w.Bytes())
	require.Equal(t, uint8(1), r.U8())
	require.Equal(t, uint16(2), r.U16())
	require.Equal(t, uint32(3), r.U32())
	require.Equal(t, uint64(4), r.U64())
	require.True(t, r.Bool())
	require.Equal(t, "tile", r.String())
	require.Equal(t, &seven, r.OptionU64())
	require.Nil(t, r.OptionU64())
	require.NoError(t, r.Finish())
}

func TestReaderErrors(t *testing.T) {
	t.Run("short buffer sticks", func(t *testing.T) {
		r := NewReader([]byte{1, 2})
		require.Zero(t, r.U64())
		require.Zero(t, r.U8())
		require.ErrorIs(t, r.Err(), ErrShortBuffer)
	})

	t.Run("bad option tag", func(t *testing.T) {
		r := NewReader([]byte{9})
		require.Nil(t, r.OptionU64())
		require.ErrorIs(t, r.Finish(), ErrInvalidTag)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		r := NewReader([]byte{1, 0})
		r.U8()
		require.ErrorIs(t, r.Finish(), ErrTrailing)
	})

	t.Run("oversized string length", func(t *testing.T) {
		r := NewReader(NewWriter(8).U32(1 << 20).Bytes())
		require.Empty(t, r.String())
		require.ErrorIs(t, r.Err(), ErrShortBuffer)
	})
}
