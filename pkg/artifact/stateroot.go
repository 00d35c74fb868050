package artifact

import (
	"sort"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// ComputeStateRoot hashes the reachable subgraph of instance warpID rooted
// at root: a BFS over outbound edges (visiting lower ids first, though the
// final node/edge order written is always the canonical ascending sort,
// per I2) followed by the canonical encoding of §4.8. Unreachable
// nodes/edges never influence the result (I4).
func ComputeStateRoot(ws *warp.WarpState, warpID id.WarpId, root id.NodeId) (id.Hash, error) {
	g, ok := ws.GetInstance(warpID)
	if !ok {
		return id.Hash{}, errs.ErrNotFound
	}
	if _, ok := g.GetNode(root); !ok {
		return id.Hash{}, errs.ErrNotFound
	}

	reachable := map[id.NodeId]struct{}{root: {}}
	queue := []id.NodeId{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range g.IterOutEdges(cur) { // already ascending by EdgeId
			if _, seen := reachable[e.To]; !seen {
				reachable[e.To] = struct{}{}
				queue = append(queue, e.To)
			}
		}
	}

	nodes := make([]id.NodeId, 0, len(reachable))
	for n := range reachable {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })

	w := codec.NewWriter(256 + 128*len(nodes))
	w.Hash32(root.Hash())

	w.ListHeader(len(nodes))
	for _, n := range nodes {
		rec, _ := g.GetNode(n)
		w.Hash32(n.Hash())
		w.Hash32(rec.Ty.Hash())
		var payload []byte
		if av, ok := g.GetNodeAttachment(n); ok {
			payload = warpop.EncodeAttachmentValueBytes(&av)
		}
		w.LenPrefixedBytes(payload)
	}

	type edgeGroup struct {
		from  id.NodeId
		edges []warp.EdgeRecord
	}
	var groups []edgeGroup
	for _, n := range nodes {
		var qualifying []warp.EdgeRecord
		for _, e := range g.IterOutEdges(n) {
			if _, ok := reachable[e.To]; ok {
				qualifying = append(qualifying, e)
			}
		}
		if len(qualifying) > 0 {
			groups = append(groups, edgeGroup{from: n, edges: qualifying})
		}
	}

	w.ListHeader(len(groups))
	for _, grp := range groups {
		w.Hash32(grp.from.Hash())
		w.U64LE(uint64(len(grp.edges)))
		for _, e := range grp.edges {
			w.Hash32(e.Id.Hash())
			w.Hash32(e.Ty.Hash())
			w.Hash32(e.To.Hash())
			var payload []byte
			if av, ok := g.GetEdgeAttachment(e.Id); ok {
				payload = warpop.EncodeAttachmentValueBytes(&av)
			}
			w.LenPrefixedBytes(payload)
		}
	}

	return id.Hash256(w.Bytes()), nil
}
