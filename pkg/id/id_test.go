package id_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/id"
)

func TestMakeIDDeterministic(t *testing.T) {
	a := id.MakeID("node:", []byte("alpha"))
	b := id.MakeID("node:", []byte("alpha"))
	require.Equal(t, a, b)
}

func TestMakeIDDomainSeparation(t *testing.T) {
	a := id.MakeID("node:", []byte("alpha"))
	b := id.MakeID("edge:", []byte("alpha"))
	require.NotEqual(t, a, b, "same label under different domains must not collide")
}

func TestHash256Deterministic(t *testing.T) {
	require.Equal(t, id.Hash256([]byte("payload")), id.Hash256([]byte("payload")))
	require.NotEqual(t, id.Hash256([]byte("payload")), id.Hash256([]byte("payload2")))
}

func TestHashIsZero(t *testing.T) {
	var h id.Hash
	require.True(t, h.IsZero())
	h = id.Hash256([]byte("x"))
	require.False(t, h.IsZero())
}

func TestHashLessTotalOrder(t *testing.T) {
	a := id.Hash{0x01}
	b := id.Hash{0x02}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestHashStringIsHex(t *testing.T) {
	h := id.Hash256([]byte("x"))
	require.Len(t, h.String(), 64)
}

func TestPutUint64LELittleEndian(t *testing.T) {
	out := id.PutUint64LE(nil, 1)
	require.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, out)
}
