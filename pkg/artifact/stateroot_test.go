package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

func freshStore(t *testing.T) (*warp.WarpState, id.WarpId, id.NodeId) {
	t.Helper()
	w := id.WarpId(id.MakeID("warp:", []byte("w")))
	root := id.NodeId(id.MakeID("node:", []byte("root")))
	ty := id.TypeId(id.MakeID("type:", []byte("t")))
	st := warp.NewWarpState()
	require.NoError(t, st.UpsertWarpInstance(warp.WarpInstance{WarpId: w, RootNode: root}))
	g, _ := st.GetInstance(w)
	require.NoError(t, g.InsertNode(root, warp.NodeRecord{Ty: ty}))
	return st, w, root
}

// P4: unreachable nodes/edges do not change state_root (I4).
func TestStateRootIgnoresUnreachableNodes(t *testing.T) {
	st, w, root := freshStore(t)
	before, err := artifact.ComputeStateRoot(st, w, root)
	require.NoError(t, err)

	g, _ := st.GetInstance(w)
	orphan := id.NodeId(id.MakeID("node:", []byte("orphan")))
	ty := id.TypeId(id.MakeID("type:", []byte("t2")))
	require.NoError(t, g.InsertNode(orphan, warp.NodeRecord{Ty: ty}))

	after, err := artifact.ComputeStateRoot(st, w, root)
	require.NoError(t, err)
	require.Equal(t, before, after, "an unreachable node must not change state_root")
}

func TestStateRootChangesWhenReachableNodeIsAdded(t *testing.T) {
	st, w, root := freshStore(t)
	before, err := artifact.ComputeStateRoot(st, w, root)
	require.NoError(t, err)

	g, _ := st.GetInstance(w)
	child := id.NodeId(id.MakeID("node:", []byte("child")))
	ty := id.TypeId(id.MakeID("type:", []byte("t2")))
	require.NoError(t, g.InsertNode(child, warp.NodeRecord{Ty: ty}))
	require.NoError(t, g.InsertEdge(warp.EdgeRecord{
		Id:   id.EdgeId(id.MakeID("edge:", []byte("e1"))),
		From: root,
		To:   child,
		Ty:   ty,
	}))

	after, err := artifact.ComputeStateRoot(st, w, root)
	require.NoError(t, err)
	require.NotEqual(t, before, after, "a reachable child must change state_root")
}

func TestStateRootIsDeterministicAcrossEquivalentStores(t *testing.T) {
	st1, w1, root1 := freshStore(t)
	st2, w2, root2 := freshStore(t)

	r1, err := artifact.ComputeStateRoot(st1, w1, root1)
	require.NoError(t, err)
	r2, err := artifact.ComputeStateRoot(st2, w2, root2)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestStateRootNotFoundOnUnknownInstance(t *testing.T) {
	st, _, _ := freshStore(t)
	_, err := artifact.ComputeStateRoot(st, id.WarpId(id.MakeID("warp:", []byte("ghost"))), id.NodeId{})
	require.Error(t, err)
}
