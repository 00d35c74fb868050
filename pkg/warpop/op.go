// Package warpop implements Echo's canonical op set: the tagged variants
// every rule executor emits, their canonical application order, and
// application to a warp.WarpState (spec.md §4.7).
//
// Grounded on the teacher's pkg/storage/wal.go WALEntry/OperationType
// pattern — a small closed set of tagged mutation records applied in order
// — generalized from a durability log to Echo's replay-sufficient patch.
package warpop

import (
	"bytes"
	"sort"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

// Kind enumerates the eight canonical op variants. Its integer value is the
// APPLICATION order rank (§4.7: "OpenPortal < UpsertWarpInstance < ... <
// SetAttachment"), not the encoding tag — the two numberings differ on
// purpose, matching the spec's separate enumeration and ordering lists.
type Kind uint8

const (
	KindOpenPortal Kind = iota
	KindUpsertWarpInstance
	KindDeleteWarpInstance
	KindDeleteEdge
	KindDeleteNode
	KindUpsertNode
	KindUpsertEdge
	KindSetAttachment
)

// EncodeTag returns the 1-byte wire tag for Op encoding (§4.7's enumeration
// order: UpsertWarpInstance=1 .. OpenPortal=8).
func (k Kind) EncodeTag() uint8 {
	switch k {
	case KindUpsertWarpInstance:
		return 1
	case KindDeleteWarpInstance:
		return 2
	case KindUpsertNode:
		return 3
	case KindDeleteNode:
		return 4
	case KindUpsertEdge:
		return 5
	case KindDeleteEdge:
		return 6
	case KindSetAttachment:
		return 7
	case KindOpenPortal:
		return 8
	}
	return 0
}

// Op is one canonical mutation. Implementations are comparable only via
// SortKey/Payload — Go structs with slice fields are not otherwise.
type Op interface {
	Kind() Kind
	// SortKey identifies WHERE the op applies: apply-order rank followed by
	// the target's identity bytes. Two ops with equal SortKey but different
	// Payload are contradictory (ErrOpConflict); equal SortKey and equal
	// Payload are a duplicate, collapsed to one.
	SortKey() []byte
	// Payload is the full canonical encoding (identity + value).
	Payload() []byte
	// Apply mutates ws. Called only after sorting/dedup/conflict-checking
	// the whole op set, on a scratch clone (spec.md §4.6 step 5).
	Apply(ws *warp.WarpState) error
}

func rankPrefix(k Kind) []byte { return []byte{uint8(k)} }

// --- UpsertWarpInstance ---

type UpsertWarpInstance struct{ Instance warp.WarpInstance }

func (o UpsertWarpInstance) Kind() Kind { return KindUpsertWarpInstance }
func (o UpsertWarpInstance) SortKey() []byte {
	return append(rankPrefix(o.Kind()), o.Instance.WarpId.Hash().Bytes()...)
}
func (o UpsertWarpInstance) Payload() []byte {
	w := codec.NewWriter(96)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.Instance.WarpId.Hash())
	w.Hash32(o.Instance.RootNode.Hash())
	if o.Instance.Parent != nil {
		w.U8(1)
		encodeAttachmentKey(w, *o.Instance.Parent)
	} else {
		w.U8(0)
	}
	return w.Bytes()
}
func (o UpsertWarpInstance) Apply(ws *warp.WarpState) error {
	return ws.UpsertWarpInstance(o.Instance)
}

// --- DeleteWarpInstance ---

type DeleteWarpInstance struct{ WarpId id.WarpId }

func (o DeleteWarpInstance) Kind() Kind { return KindDeleteWarpInstance }
func (o DeleteWarpInstance) SortKey() []byte {
	return append(rankPrefix(o.Kind()), o.WarpId.Hash().Bytes()...)
}
func (o DeleteWarpInstance) Payload() []byte {
	w := codec.NewWriter(33)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.WarpId.Hash())
	return w.Bytes()
}
func (o DeleteWarpInstance) Apply(ws *warp.WarpState) error {
	return ws.DeleteWarpInstance(o.WarpId)
}

// --- UpsertNode ---

type UpsertNode struct {
	Key    warp.NodeKey
	Record warp.NodeRecord
}

func (o UpsertNode) Kind() Kind { return KindUpsertNode }
func (o UpsertNode) SortKey() []byte {
	k := rankPrefix(o.Kind())
	k = append(k, o.Key.Warp.Hash().Bytes()...)
	return append(k, o.Key.Node.Hash().Bytes()...)
}
func (o UpsertNode) Payload() []byte {
	w := codec.NewWriter(96)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.Key.Warp.Hash())
	w.Hash32(o.Key.Node.Hash())
	w.Hash32(o.Record.Ty.Hash())
	return w.Bytes()
}
func (o UpsertNode) Apply(ws *warp.WarpState) error {
	g, ok := ws.GetInstance(o.Key.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	if err := g.InsertNode(o.Key.Node, o.Record); err != nil {
		if err != errs.ErrAlreadyExists {
			return err
		}
	}
	return nil
}

// --- DeleteNode ---

type DeleteNode struct{ Key warp.NodeKey }

func (o DeleteNode) Kind() Kind { return KindDeleteNode }
func (o DeleteNode) SortKey() []byte {
	k := rankPrefix(o.Kind())
	k = append(k, o.Key.Warp.Hash().Bytes()...)
	return append(k, o.Key.Node.Hash().Bytes()...)
}
func (o DeleteNode) Payload() []byte {
	w := codec.NewWriter(65)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.Key.Warp.Hash())
	w.Hash32(o.Key.Node.Hash())
	return w.Bytes()
}
func (o DeleteNode) Apply(ws *warp.WarpState) error {
	g, ok := ws.GetInstance(o.Key.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	return g.DeleteNode(o.Key.Node)
}

// --- UpsertEdge ---

type UpsertEdge struct {
	Warp   id.WarpId
	Record warp.EdgeRecord
}

func (o UpsertEdge) Kind() Kind { return KindUpsertEdge }
func (o UpsertEdge) SortKey() []byte {
	k := rankPrefix(o.Kind())
	k = append(k, o.Warp.Hash().Bytes()...)
	return append(k, o.Record.Id.Hash().Bytes()...)
}
func (o UpsertEdge) Payload() []byte {
	w := codec.NewWriter(160)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.Warp.Hash())
	w.Hash32(o.Record.Id.Hash())
	w.Hash32(o.Record.From.Hash())
	w.Hash32(o.Record.To.Hash())
	w.Hash32(o.Record.Ty.Hash())
	return w.Bytes()
}
func (o UpsertEdge) Apply(ws *warp.WarpState) error {
	g, ok := ws.GetInstance(o.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	if err := g.InsertEdge(o.Record); err != nil {
		if err != errs.ErrAlreadyExists {
			return err
		}
	}
	return nil
}

// --- DeleteEdge ---

type DeleteEdge struct {
	Warp   id.WarpId
	From   id.NodeId
	EdgeId id.EdgeId
}

func (o DeleteEdge) Kind() Kind { return KindDeleteEdge }
func (o DeleteEdge) SortKey() []byte {
	k := rankPrefix(o.Kind())
	k = append(k, o.Warp.Hash().Bytes()...)
	return append(k, o.EdgeId.Hash().Bytes()...)
}
func (o DeleteEdge) Payload() []byte {
	w := codec.NewWriter(97)
	w.U8(o.Kind().EncodeTag())
	w.Hash32(o.Warp.Hash())
	w.Hash32(o.From.Hash())
	w.Hash32(o.EdgeId.Hash())
	return w.Bytes()
}
func (o DeleteEdge) Apply(ws *warp.WarpState) error {
	g, ok := ws.GetInstance(o.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	return g.DeleteEdge(o.From, o.EdgeId)
}

// --- SetAttachment ---

type SetAttachment struct {
	Key   warp.AttachmentKey
	Value *warp.AttachmentValue // nil clears
}

func (o SetAttachment) Kind() Kind { return KindSetAttachment }
func (o SetAttachment) SortKey() []byte {
	k := rankPrefix(o.Kind())
	return append(k, attachmentKeyBytes(o.Key)...)
}
func (o SetAttachment) Payload() []byte {
	w := codec.NewWriter(128)
	w.U8(o.Kind().EncodeTag())
	encodeAttachmentKey(w, o.Key)
	if o.Value == nil {
		w.U8(0) // present=0
		return w.Bytes()
	}
	w.U8(1) // present=1
	w.Raw(EncodeAttachmentValueBytes(o.Value))
	return w.Bytes()
}
func (o SetAttachment) Apply(ws *warp.WarpState) error {
	g, ok := ws.GetInstance(o.Key.Warp)
	if !ok {
		return errs.ErrNotFound
	}
	if o.Key.Owner == warp.OwnerNode {
		return g.SetNodeAttachment(id.NodeId(o.Key.Local), o.Value)
	}
	return g.SetEdgeAttachment(id.EdgeId(o.Key.Local), o.Value)
}

// --- OpenPortal ---

type OpenPortal struct {
	Key       warp.AttachmentKey
	ChildWarp id.WarpId
	ChildRoot id.NodeId
	Init      warp.PortalInit
}

func (o OpenPortal) Kind() Kind { return KindOpenPortal }
func (o OpenPortal) SortKey() []byte {
	k := rankPrefix(o.Kind())
	return append(k, attachmentKeyBytes(o.Key)...)
}
func (o OpenPortal) Payload() []byte {
	w := codec.NewWriter(160)
	w.U8(o.Kind().EncodeTag())
	encodeAttachmentKey(w, o.Key)
	w.Hash32(o.ChildWarp.Hash())
	w.Hash32(o.ChildRoot.Hash())
	w.U8(uint8(o.Init.Kind))
	if o.Init.Kind == warp.InitEmpty {
		w.Hash32(o.Init.RootTypeId.Hash())
	}
	return w.Bytes()
}
func (o OpenPortal) Apply(ws *warp.WarpState) error {
	return ws.OpenPortal(o.Key, o.ChildWarp, o.ChildRoot, o.Init)
}

// EncodeAttachmentValueBytes encodes an attachment value (or "absent") the
// way §4.8 expects: value_tag(u8) followed by tag-specific bytes, with no
// presence byte — callers distinguish "absent" by passing a nil value and
// get back a zero-length slice themselves. Shared between op payload
// encoding here and state-root node/edge payload encoding in pkg/artifact.
func EncodeAttachmentValueBytes(v *warp.AttachmentValue) []byte {
	if v == nil {
		return nil
	}
	w := codec.NewWriter(64)
	if v.IsDescend {
		w.U8(2) // value_tag 2 = Descend
		w.Hash32(v.Child.Hash())
	} else {
		w.U8(1) // value_tag 1 = Atom
		w.Hash32(v.Atom.TypeId.Hash())
		w.Raw(v.Atom.Bytes)
	}
	return w.Bytes()
}

func encodeAttachmentKey(w *codec.Writer, k warp.AttachmentKey) {
	w.U8(uint8(k.Owner))
	w.U8(uint8(k.Plane))
	w.Hash32(k.Warp.Hash())
	w.Hash32(k.Local)
}

func attachmentKeyBytes(k warp.AttachmentKey) []byte {
	w := codec.NewWriter(66)
	encodeAttachmentKey(w, k)
	return w.Bytes()
}

// SortAndDedup sorts ops by SortKey ascending, collapses exact duplicates
// (same SortKey, same Payload), and fails with ErrOpConflict if any two ops
// share a SortKey with differing Payload (spec.md §4.7).
func SortAndDedup(ops []Op) ([]Op, error) {
	sorted := make([]Op, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].SortKey(), sorted[j].SortKey()) < 0
	})

	out := make([]Op, 0, len(sorted))
	for i := 0; i < len(sorted); i++ {
		if i > 0 && bytes.Equal(sorted[i].SortKey(), sorted[i-1].SortKey()) {
			if !bytes.Equal(sorted[i].Payload(), sorted[i-1].Payload()) {
				return nil, errs.ErrOpConflict
			}
			continue // duplicate, already collapsed
		}
		out = append(out, sorted[i])
	}
	return out, nil
}

// Apply applies a canonically sorted/deduped op list to ws in order,
// returning on the first failure (the caller is expected to have cloned ws
// so a failure leaves the live state untouched).
func Apply(ws *warp.WarpState, ops []Op) error {
	for _, op := range ops {
		if err := op.Apply(ws); err != nil {
			return err
		}
	}
	return nil
}
