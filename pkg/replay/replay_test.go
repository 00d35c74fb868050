package replay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/engine"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/replay"
	"echo-engine/echo/pkg/rule"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

func bumpRule(name string) rule.Rule {
	return rule.Rule{
		Name: name,
		Match: func(view warp.GraphView, scope warp.NodeKey) bool {
			_, ok := view.Node(scope.Warp, scope.Node)
			return ok
		},
		ComputeFootprint: func(view warp.GraphView, scope warp.NodeKey) *footprint.Footprint {
			fp := footprint.New()
			fp.WriteAttachment(warp.NodeAttachmentKey(scope.Warp, scope.Node))
			return fp
		},
		Execute: func(view warp.GraphView, scope warp.NodeKey, delta *warpop.PatchBuilder) {
			var next byte
			if av, ok := view.NodeAttachment(scope.Warp, scope.Node); ok && !av.IsDescend && len(av.Atom.Bytes) == 1 {
				next = av.Atom.Bytes[0] + 1
			}
			delta.Emit(warpop.SetAttachment{
				Key: warp.NodeAttachmentKey(scope.Warp, scope.Node),
				Value: &warp.AttachmentValue{Atom: warp.AtomPayload{
					TypeId: id.TypeId(id.MakeID("type:", []byte("counter"))),
					Bytes:  []byte{next},
				}},
			})
		},
		ConflictPolicy: rule.ConflictPolicy{Kind: rule.PolicyAbort},
	}
}

// S6 / P6: committing 10 ticks and replaying the recorded patches against a
// fresh copy of the seed state reproduces every state_root.
func TestReplayReproducesStateRootAtEveryTick(t *testing.T) {
	rootWarp := id.WarpId(id.MakeID("warp:", []byte("root")))
	rootType := id.TypeId(id.MakeID("type:", []byte("root")))
	reg := rule.NewRegistry()
	_, err := reg.Register(bumpRule("bump"))
	require.NoError(t, err)

	eng, rootNode := engine.New(reg, rootWarp, rootType, 0)
	// Bump the root node's own attachment directly, so the changing value
	// is always within the reachable set state_root hashes (I4): scope
	// nodes disconnected from the root would never move state_root.
	scope := warp.NodeKey{Warp: rootWarp, Node: rootNode}

	seed := emptySeed(t, rootWarp, rootType, rootNode)

	log := replay.NewCommitLog()
	var expectedRoots []id.Hash
	for i := 0; i < 10; i++ {
		tx := eng.Begin()
		require.Equal(t, engine.Matched, eng.Apply(tx, "bump", scope))
		snapshot, _, patch, err := eng.Commit(tx)
		require.NoError(t, err)
		log.Append(patch)
		expectedRoots = append(expectedRoots, snapshot.StateRoot)
	}

	roots, err := replay.Replay(seed, log.Patches(), rootWarp, rootNode)
	require.NoError(t, err)
	require.Equal(t, expectedRoots, roots)

	// Sanity: the root's attachment really does change state_root across
	// ticks (distinguishes this from a degenerate always-equal sequence).
	require.NotEqual(t, expectedRoots[0], expectedRoots[len(expectedRoots)-1])
}

// emptySeed builds a fresh WarpState with the same root node the
// committing engine started from, standing in for "U0" (spec.md §4.9).
func emptySeed(t *testing.T, rootWarp id.WarpId, rootType id.TypeId, rootNode id.NodeId) *warp.WarpState {
	t.Helper()
	st := warp.NewWarpState()
	require.NoError(t, st.UpsertWarpInstance(warp.WarpInstance{WarpId: rootWarp, RootNode: rootNode}))
	g, _ := st.GetInstance(rootWarp)
	require.NoError(t, g.InsertNode(rootNode, warp.NodeRecord{Ty: rootType}))
	return st
}

func TestSliceFindsLatestProducerAndItsInputs(t *testing.T) {
	w := id.WarpId(id.MakeID("warp:", []byte("w")))
	target := artifact.Slot{Tag: artifact.SlotNode, Node: warp.NodeKey{Warp: w, Node: id.NodeId(id.MakeID("node:", []byte("x")))}}
	upstream := artifact.Slot{Tag: artifact.SlotNode, Node: warp.NodeKey{Warp: w, Node: id.NodeId(id.MakeID("node:", []byte("y")))}}

	patches := []artifact.TickPatch{
		{OutSlots: []artifact.Slot{upstream}},                                    // tick 0 produces upstream
		{InSlots: []artifact.Slot{upstream}, OutSlots: []artifact.Slot{target}}, // tick 1 consumes upstream, produces target
		{}, // tick 2 touches nothing relevant
	}

	selected := replay.Slice(patches, target, 2)
	require.Equal(t, []int{0, 1}, selected)
}

func TestSliceEmptyWhenValueComesFromSeed(t *testing.T) {
	target := artifact.Slot{Tag: artifact.SlotNode}
	patches := []artifact.TickPatch{{}, {}}
	require.Empty(t, replay.Slice(patches, target, 1))
}

func TestCommitLogAppendPreservesOrder(t *testing.T) {
	log := replay.NewCommitLog()
	idx0 := log.Append(artifact.TickPatch{PolicyId: 1})
	idx1 := log.Append(artifact.TickPatch{PolicyId: 2})
	require.Equal(t, 0, idx0)
	require.Equal(t, 1, idx1)
	require.Equal(t, 2, log.Len())
	patches := log.Patches()
	require.Equal(t, uint32(1), patches[0].PolicyId)
	require.Equal(t, uint32(2), patches[1].PolicyId)
}
