package warp

import "echo-engine/echo/pkg/id"

// GraphView is the read-only handle executors and matchers receive. It is
// valid only for the duration of one rule invocation (spec.md §5): it wraps
// a *WarpState snapshot reference but exposes none of the mutating methods.
type GraphView struct {
	state *WarpState
}

// NewGraphView wraps a WarpState for read-only use.
func NewGraphView(s *WarpState) GraphView {
	return GraphView{state: s}
}

// Node returns a node record within a given instance.
func (v GraphView) Node(warp id.WarpId, n id.NodeId) (NodeRecord, bool) {
	g, ok := v.state.GetInstance(warp)
	if !ok {
		return NodeRecord{}, false
	}
	return g.GetNode(n)
}

// Edge returns an edge record within a given instance.
func (v GraphView) Edge(warp id.WarpId, e id.EdgeId) (EdgeRecord, bool) {
	g, ok := v.state.GetInstance(warp)
	if !ok {
		return EdgeRecord{}, false
	}
	return g.GetEdge(e)
}

// OutEdges returns a node's outgoing edges, sorted ascending by EdgeId.
func (v GraphView) OutEdges(warp id.WarpId, n id.NodeId) []EdgeRecord {
	g, ok := v.state.GetInstance(warp)
	if !ok {
		return nil
	}
	return g.IterOutEdges(n)
}

// NodeAttachment returns a node's attachment value.
func (v GraphView) NodeAttachment(warp id.WarpId, n id.NodeId) (AttachmentValue, bool) {
	g, ok := v.state.GetInstance(warp)
	if !ok {
		return AttachmentValue{}, false
	}
	return g.GetNodeAttachment(n)
}

// EdgeAttachment returns an edge's attachment value.
func (v GraphView) EdgeAttachment(warp id.WarpId, e id.EdgeId) (AttachmentValue, bool) {
	g, ok := v.state.GetInstance(warp)
	if !ok {
		return AttachmentValue{}, false
	}
	return g.GetEdgeAttachment(e)
}

// Instance returns the WarpInstance metadata for a warp id.
func (v GraphView) Instance(warp id.WarpId) (WarpInstance, bool) {
	return v.state.GetMetadata(warp)
}

// ResolveDescentChain follows a Descend attachment at key one hop into its
// child instance, then continues through that child's own root-node
// attachment if it too is a Descend, and so on. It returns every WarpId
// visited in order. Rule authors whose matching logic reaches into a
// descended instance must add each visited AttachmentKey to the
// candidate's A_read set, so a portal pointer change invalidates the match
// deterministically (spec.md §9).
func (v GraphView) ResolveDescentChain(key AttachmentKey) []id.WarpId {
	var chain []id.WarpId
	cur := key
	for i := 0; i < 1<<16; i++ { // bounded: a real cycle is a data-model bug, not infinite recursion
		g, ok := v.state.GetInstance(cur.Warp)
		if !ok {
			break
		}
		var av AttachmentValue
		var found bool
		if cur.Owner == OwnerNode {
			av, found = g.GetNodeAttachment(id.NodeId(cur.Local))
		} else {
			av, found = g.GetEdgeAttachment(id.EdgeId(cur.Local))
		}
		if !found || !av.IsDescend {
			break
		}
		chain = append(chain, av.Child)
		meta, ok := v.state.GetMetadata(av.Child)
		if !ok {
			break
		}
		cur = NodeAttachmentKey(av.Child, meta.RootNode)
	}
	return chain
}
