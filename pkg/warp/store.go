// Package warp implements Echo's two-plane state store: a skeleton graph of
// nodes and edges plus an attachment plane of typed payloads and portal
// indirections, held inside a multi-instance container (spec.md §3.2, §4.2).
//
// Grounded on the teacher's pkg/storage/memory.go MemoryEngine: an
// RWMutex-guarded map-of-maps with label/edge indexes, generalized from a
// single labeled-property graph to Echo's per-instance skeleton + attachment
// planes and its WarpId-keyed multi-instance container.
package warp

import (
	"sort"
	"sync"

	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/id"
)

// Plane distinguishes node-owned attachments (Alpha) from edge-owned
// attachments (Beta), enforced at every attachment write (I3).
type Plane uint8

const (
	PlaneAlpha Plane = iota + 1 // node-owned
	PlaneBeta                   // edge-owned
)

// OwnerTag tags an AttachmentKey's owner kind, used in canonical encoding.
type OwnerTag uint8

const (
	OwnerNode OwnerTag = iota + 1
	OwnerEdge
)

// NodeKey globally identifies a node: a NodeId alone is unique only within
// one instance (spec.md §3.1).
type NodeKey struct {
	Warp id.WarpId
	Node id.NodeId
}

// EdgeKey globally identifies an edge.
type EdgeKey struct {
	Warp id.WarpId
	Edge id.EdgeId
}

// AttachmentKey globally identifies an attachment slot on either plane.
type AttachmentKey struct {
	Owner OwnerTag
	Plane Plane
	Warp  id.WarpId
	Local id.Hash // the owning NodeId or EdgeId, as raw bytes
}

// NodeAttachmentKey builds the key for a node-owned attachment slot.
func NodeAttachmentKey(warp id.WarpId, node id.NodeId) AttachmentKey {
	return AttachmentKey{Owner: OwnerNode, Plane: PlaneAlpha, Warp: warp, Local: id.Hash(node)}
}

// EdgeAttachmentKey builds the key for an edge-owned attachment slot.
func EdgeAttachmentKey(warp id.WarpId, edge id.EdgeId) AttachmentKey {
	return AttachmentKey{Owner: OwnerEdge, Plane: PlaneBeta, Warp: warp, Local: id.Hash(edge)}
}

// PortKey packs (node_id_low32, port_id, dir_bits) into a 64-bit value
// compared numerically for boundary-port conflict detection (spec.md §3.1).
type PortKey uint64

// MakePortKey builds a PortKey from the low 32 bits of a node id, a 30-bit
// port id, and a 2-bit direction tag.
func MakePortKey(node id.NodeId, portID uint32, dir uint8) PortKey {
	low32 := uint32(node[0]) | uint32(node[1])<<8 | uint32(node[2])<<16 | uint32(node[3])<<24
	return PortKey(uint64(low32)<<32 | uint64(portID)<<2 | uint64(dir&0x3))
}

// NodeRecord is a skeleton-plane node: only its schema type id.
type NodeRecord struct {
	Ty id.TypeId
}

// EdgeRecord is a skeleton-plane edge.
type EdgeRecord struct {
	Id   id.EdgeId
	From id.NodeId
	To   id.NodeId
	Ty   id.TypeId
}

// AtomPayload is a depth-0 typed attachment payload. Its TypeId is an
// attachment-plane meaning tag, never aliased with a skeleton schema id (I7).
type AtomPayload struct {
	TypeId id.TypeId
	Bytes  []byte
}

// AttachmentValue is either an Atom or a Descend indirection into a child
// instance (the GLOSSARY's "Descent / Portal").
type AttachmentValue struct {
	IsDescend bool
	Atom      AtomPayload
	Child     id.WarpId
}

// WarpInstance is the metadata record for one instance in a WarpState.
type WarpInstance struct {
	WarpId   id.WarpId
	RootNode id.NodeId
	Parent   *AttachmentKey // nil for the top-level (non-descended) instance
}

// GraphStore is one instance's skeleton + attachment planes.
type GraphStore struct {
	mu sync.RWMutex

	nodes     map[id.NodeId]NodeRecord
	edgesFrom map[id.NodeId]map[id.EdgeId]EdgeRecord
	edgeFrom  map[id.EdgeId]id.NodeId
	edgeTo    map[id.EdgeId]id.NodeId

	nodeAttachments map[id.NodeId]AttachmentValue
	edgeAttachments map[id.EdgeId]AttachmentValue
}

// NewGraphStore returns an empty instance.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		nodes:           make(map[id.NodeId]NodeRecord),
		edgesFrom:       make(map[id.NodeId]map[id.EdgeId]EdgeRecord),
		edgeFrom:        make(map[id.EdgeId]id.NodeId),
		edgeTo:          make(map[id.EdgeId]id.NodeId),
		nodeAttachments: make(map[id.NodeId]AttachmentValue),
		edgeAttachments: make(map[id.EdgeId]AttachmentValue),
	}
}

// InsertNode adds a new node record. Fails with ErrAlreadyExists if the id
// is already present in this instance.
func (g *GraphStore) InsertNode(n id.NodeId, rec NodeRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[n]; ok {
		return errs.ErrAlreadyExists
	}
	g.nodes[n] = rec
	return nil
}

// DeleteNode removes a node record. Fails with ErrReferentialIntegrity if
// any incident edge (inbound or outbound) remains (§4.2).
func (g *GraphStore) DeleteNode(n id.NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[n]; !ok {
		return errs.ErrNotFound
	}
	if len(g.edgesFrom[n]) > 0 {
		return errs.ErrReferentialIntegrity
	}
	for _, to := range g.edgeTo {
		if to == n {
			return errs.ErrReferentialIntegrity
		}
	}
	delete(g.nodes, n)
	delete(g.nodeAttachments, n)
	return nil
}

// InsertEdge adds a new edge record. Fails with ErrAlreadyExists on a
// duplicate edge id, or ErrReferentialIntegrity if From/To do not already
// exist as nodes in this instance.
func (g *GraphStore) InsertEdge(rec EdgeRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edgeFrom[rec.Id]; ok {
		return errs.ErrAlreadyExists
	}
	if _, ok := g.nodes[rec.From]; !ok {
		return errs.ErrReferentialIntegrity
	}
	if _, ok := g.nodes[rec.To]; !ok {
		return errs.ErrReferentialIntegrity
	}
	if g.edgesFrom[rec.From] == nil {
		g.edgesFrom[rec.From] = make(map[id.EdgeId]EdgeRecord)
	}
	g.edgesFrom[rec.From][rec.Id] = rec
	g.edgeFrom[rec.Id] = rec.From
	g.edgeTo[rec.Id] = rec.To
	return nil
}

// DeleteEdge removes an edge record.
func (g *GraphStore) DeleteEdge(from id.NodeId, edgeID id.EdgeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	bucket, ok := g.edgesFrom[from]
	if !ok {
		return errs.ErrNotFound
	}
	if _, ok := bucket[edgeID]; !ok {
		return errs.ErrNotFound
	}
	delete(bucket, edgeID)
	if len(bucket) == 0 {
		delete(g.edgesFrom, from)
	}
	delete(g.edgeFrom, edgeID)
	delete(g.edgeTo, edgeID)
	delete(g.edgeAttachments, edgeID)
	return nil
}

// SetNodeAttachment sets or clears (value == nil) a node-owned attachment.
// Fails with ErrNotFound if the owning node does not exist.
func (g *GraphStore) SetNodeAttachment(n id.NodeId, value *AttachmentValue) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[n]; !ok {
		return errs.ErrNotFound
	}
	if value == nil {
		delete(g.nodeAttachments, n)
		return nil
	}
	g.nodeAttachments[n] = *value
	return nil
}

// SetEdgeAttachment sets or clears an edge-owned attachment.
func (g *GraphStore) SetEdgeAttachment(e id.EdgeId, value *AttachmentValue) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.edgeFrom[e]; !ok {
		return errs.ErrNotFound
	}
	if value == nil {
		delete(g.edgeAttachments, e)
		return nil
	}
	g.edgeAttachments[e] = *value
	return nil
}

// GetNode returns a node record and whether it exists.
func (g *GraphStore) GetNode(n id.NodeId) (NodeRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	rec, ok := g.nodes[n]
	return rec, ok
}

// GetEdge returns an edge record and whether it exists.
func (g *GraphStore) GetEdge(e id.EdgeId) (EdgeRecord, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	from, ok := g.edgeFrom[e]
	if !ok {
		return EdgeRecord{}, false
	}
	rec, ok := g.edgesFrom[from][e]
	return rec, ok
}

// GetNodeAttachment returns a node's attachment value, if any.
func (g *GraphStore) GetNodeAttachment(n id.NodeId) (AttachmentValue, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.nodeAttachments[n]
	return v, ok
}

// GetEdgeAttachment returns an edge's attachment value, if any.
func (g *GraphStore) GetEdgeAttachment(e id.EdgeId) (AttachmentValue, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.edgeAttachments[e]
	return v, ok
}

// IterOutEdges returns a node's outgoing edges sorted ascending by EdgeId
// (I2: "edge lists are re-sorted by EdgeId at encode time").
func (g *GraphStore) IterOutEdges(from id.NodeId) []EdgeRecord {
	g.mu.RLock()
	defer g.mu.RUnlock()
	bucket := g.edgesFrom[from]
	out := make([]EdgeRecord, 0, len(bucket))
	for _, rec := range bucket {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return id.EdgeId(out[i].Id).Less(out[j].Id) })
	return out
}

// IterNodes returns every node id in this instance, sorted ascending.
func (g *GraphStore) IterNodes() []id.NodeId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]id.NodeId, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
