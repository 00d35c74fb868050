package codec_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/id"
)

func TestWriterPrimitivesAreLittleEndian(t *testing.T) {
	w := codec.NewWriter(0)
	w.U16LE(0x0102)
	require.Equal(t, []byte{0x02, 0x01}, w.Bytes())

	w.Reset()
	w.U32LE(0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, w.Bytes())

	w.Reset()
	w.U64LE(1)
	require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, w.Bytes())
}

func TestWriterListHeaderIsLengthPrefix(t *testing.T) {
	w := codec.NewWriter(0)
	w.ListHeader(3)
	require.Equal(t, []byte{3, 0, 0, 0, 0, 0, 0, 0}, w.Bytes())
}

func TestWriterLenPrefixedBytes(t *testing.T) {
	w := codec.NewWriter(0)
	w.LenPrefixedBytes([]byte("ab"))
	require.Equal(t, []byte{2, 0, 0, 0, 0, 0, 0, 0, 'a', 'b'}, w.Bytes())
}

func TestWriterHash32AppendsRaw32Bytes(t *testing.T) {
	h := id.Hash256([]byte("x"))
	w := codec.NewWriter(0)
	w.Hash32(h)
	require.Equal(t, h.Bytes(), w.Bytes())
}

func TestWriterResetClearsButKeepsCapacity(t *testing.T) {
	w := codec.NewWriter(16)
	w.Raw([]byte("hello"))
	w.Reset()
	require.Empty(t, w.Bytes())
	require.GreaterOrEqual(t, cap(w.Bytes()), 16)
}

func TestEncodingIsOrderSensitive(t *testing.T) {
	w1 := codec.NewWriter(0)
	w1.U8(1)
	w1.U8(2)

	w2 := codec.NewWriter(0)
	w2.U8(2)
	w2.U8(1)

	require.NotEqual(t, w1.Bytes(), w2.Bytes())
}
