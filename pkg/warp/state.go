package warp

import (
	"sort"
	"sync"

	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/id"
)

// PortalInitKind selects how OpenPortal seeds a new child instance.
type PortalInitKind uint8

const (
	// RequireExisting expects the child instance and its root node to
	// already exist (e.g. re-pointing a portal at an instance opened
	// earlier in the same tick by an UpsertWarpInstance op).
	RequireExisting PortalInitKind = iota + 1
	// InitEmpty creates a fresh child instance with a root node of the
	// given type.
	InitEmpty
)

// PortalInit parameterizes OpenPortal (spec.md §4.7, op 8).
type PortalInit struct {
	Kind        PortalInitKind
	RootTypeId  id.TypeId // used when Kind == InitEmpty
}

// WarpState is the multi-instance container: every GraphStore plus the
// WarpInstance metadata describing instance roots and descent parents
// (spec.md §3.2).
//
// Grounded on the teacher's pkg/storage async_engine.go pattern of a single
// mutex-guarded registry keyed by instance id, generalized from "one
// database" to "one instance per WarpId".
type WarpState struct {
	mu        sync.RWMutex
	instances map[id.WarpId]*GraphStore
	metadata  map[id.WarpId]WarpInstance
}

// NewWarpState returns an empty multi-instance container.
func NewWarpState() *WarpState {
	return &WarpState{
		instances: make(map[id.WarpId]*GraphStore),
		metadata:  make(map[id.WarpId]WarpInstance),
	}
}

// GetInstance returns the GraphStore for w, if any.
func (s *WarpState) GetInstance(w id.WarpId) (*GraphStore, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.instances[w]
	return g, ok
}

// GetMetadata returns the WarpInstance record for w, if any.
func (s *WarpState) GetMetadata(w id.WarpId) (WarpInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[w]
	return m, ok
}

// WarpIds returns every registered instance id, sorted ascending (I2).
func (s *WarpState) WarpIds() []id.WarpId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]id.WarpId, 0, len(s.instances))
	for w := range s.instances {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// UpsertWarpInstance creates or replaces the metadata for a warp instance,
// creating its backing GraphStore on first use.
func (s *WarpState) UpsertWarpInstance(inst WarpInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[inst.WarpId]; !ok {
		s.instances[inst.WarpId] = NewGraphStore()
	}
	s.metadata[inst.WarpId] = inst
	return nil
}

// DeleteWarpInstance removes an instance and its metadata. It fails with
// ErrReferentialIntegrity if any attachment anywhere in the container still
// descends into w (spec.md §3.4).
func (s *WarpState) DeleteWarpInstance(w id.WarpId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[w]; !ok {
		return errs.ErrNotFound
	}
	if s.hasInboundDescendLocked(w) {
		return errs.ErrReferentialIntegrity
	}
	delete(s.instances, w)
	delete(s.metadata, w)
	return nil
}

// HasInboundDescend reports whether any attachment in the container
// currently descends into w.
func (s *WarpState) HasInboundDescend(w id.WarpId) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasInboundDescendLocked(w)
}

func (s *WarpState) hasInboundDescendLocked(w id.WarpId) bool {
	for _, g := range s.instances {
		g.mu.RLock()
		for _, v := range g.nodeAttachments {
			if v.IsDescend && v.Child == w {
				g.mu.RUnlock()
				return true
			}
		}
		for _, v := range g.edgeAttachments {
			if v.IsDescend && v.Child == w {
				g.mu.RUnlock()
				return true
			}
		}
		g.mu.RUnlock()
	}
	return false
}

// Clone returns a deep copy of the container, used by the commit pipeline
// to stage ops against a scratch copy and publish it with a single atomic
// swap only if every op applies cleanly (spec.md §5, §4.6 step 5).
func (s *WarpState) Clone() *WarpState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := NewWarpState()
	for w, g := range s.instances {
		out.instances[w] = g.clone()
	}
	for w, m := range s.metadata {
		out.metadata[w] = m
	}
	return out
}

func (g *GraphStore) clone() *GraphStore {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := NewGraphStore()
	for n, rec := range g.nodes {
		out.nodes[n] = rec
	}
	for from, bucket := range g.edgesFrom {
		nb := make(map[id.EdgeId]EdgeRecord, len(bucket))
		for eid, rec := range bucket {
			nb[eid] = rec
		}
		out.edgesFrom[from] = nb
	}
	for e, n := range g.edgeFrom {
		out.edgeFrom[e] = n
	}
	for e, n := range g.edgeTo {
		out.edgeTo[e] = n
	}
	for n, v := range g.nodeAttachments {
		out.nodeAttachments[n] = v
	}
	for e, v := range g.edgeAttachments {
		out.edgeAttachments[e] = v
	}
	return out
}

// OpenPortal atomically creates a descent indirection and its child
// instance's root node (I5): the parent attachment slot named by key
// becomes Descend(childWarp), and childWarp's root node is created per
// init.
func (s *WarpState) OpenPortal(key AttachmentKey, childWarp id.WarpId, childRoot id.NodeId, init PortalInit) error {
	s.mu.Lock()
	child, exists := s.instances[childWarp]
	switch init.Kind {
	case InitEmpty:
		if !exists {
			child = NewGraphStore()
			s.instances[childWarp] = child
		}
	case RequireExisting:
		if !exists {
			s.mu.Unlock()
			return errs.ErrNotFound
		}
		if _, ok := child.GetNode(childRoot); !ok {
			s.mu.Unlock()
			return errs.ErrNotFound
		}
	}
	parent := key
	if _, ok := s.metadata[childWarp]; !ok {
		s.metadata[childWarp] = WarpInstance{WarpId: childWarp, RootNode: childRoot, Parent: &parent}
	}
	s.mu.Unlock()

	if init.Kind == InitEmpty {
		if _, ok := child.GetNode(childRoot); !ok {
			if err := child.InsertNode(childRoot, NodeRecord{Ty: init.RootTypeId}); err != nil {
				return err
			}
		}
	}

	parentStore, ok := s.GetInstance(key.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	descend := &AttachmentValue{IsDescend: true, Child: childWarp}
	if key.Owner == OwnerNode {
		return parentStore.SetNodeAttachment(id.NodeId(key.Local), descend)
	}
	return parentStore.SetEdgeAttachment(id.EdgeId(key.Local), descend)
}
