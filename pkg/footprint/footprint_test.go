package footprint_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

func node(label string) warp.NodeKey {
	return warp.NodeKey{
		Warp: id.WarpId(id.MakeID("warp:", []byte("w"))),
		Node: id.NodeId(id.MakeID("node:", []byte(label))),
	}
}

func TestIndependentDisjointNodeWrites(t *testing.T) {
	f1 := footprint.New()
	f1.WriteNode(node("a"))
	f2 := footprint.New()
	f2.WriteNode(node("b"))
	require.True(t, footprint.Independent(f1, f2))
}

func TestNotIndependentOnNodeWriteWriteConflict(t *testing.T) {
	f1 := footprint.New()
	f1.WriteNode(node("a"))
	f2 := footprint.New()
	f2.WriteNode(node("a"))
	require.False(t, footprint.Independent(f1, f2))
}

func TestNotIndependentOnNodeWriteReadConflict(t *testing.T) {
	f1 := footprint.New()
	f1.WriteNode(node("a"))
	f2 := footprint.New()
	f2.ReadNode(node("a"))
	require.False(t, footprint.Independent(f1, f2))
	require.False(t, footprint.Independent(f2, f1), "conflict must be symmetric")
}

func TestIndependentOnReadReadSharedNode(t *testing.T) {
	f1 := footprint.New()
	f1.ReadNode(node("a"))
	f2 := footprint.New()
	f2.ReadNode(node("a"))
	require.True(t, footprint.Independent(f1, f2), "two reads of the same node never conflict")
}

func TestNotIndependentOnFactorMaskOverlap(t *testing.T) {
	f1 := footprint.New()
	f1.FactorMask = 0b0001
	f2 := footprint.New()
	f2.FactorMask = 0b0011
	require.False(t, footprint.Independent(f1, f2))
}

func TestIndependentOnDisjointFactorMask(t *testing.T) {
	f1 := footprint.New()
	f1.FactorMask = 0b0001
	f2 := footprint.New()
	f2.FactorMask = 0b0010
	require.True(t, footprint.Independent(f1, f2))
}

func TestNotIndependentOnPortConflict(t *testing.T) {
	n := id.NodeId(id.MakeID("node:", []byte("p")))
	port := warp.MakePortKey(n, 1, 0)

	f1 := footprint.New()
	f1.PortOut(port)
	f2 := footprint.New()
	f2.PortIn(port)
	require.False(t, footprint.Independent(f1, f2))
}

func TestNotIndependentOnAttachmentWriteConflict(t *testing.T) {
	w := id.WarpId(id.MakeID("warp:", []byte("w")))
	n := id.NodeId(id.MakeID("node:", []byte("a")))
	key := warp.NodeAttachmentKey(w, n)

	f1 := footprint.New()
	f1.WriteAttachment(key)
	f2 := footprint.New()
	f2.WriteAttachment(key)
	require.False(t, footprint.Independent(f1, f2))
}

func TestNotIndependentOnEdgeWriteConflict(t *testing.T) {
	w := id.WarpId(id.MakeID("warp:", []byte("w")))
	e := id.EdgeId(id.MakeID("edge:", []byte("e")))
	key := warp.EdgeKey{Warp: w, Edge: e}

	f1 := footprint.New()
	f1.WriteEdge(key)
	f2 := footprint.New()
	f2.ReadEdge(key)
	require.False(t, footprint.Independent(f1, f2))
}
