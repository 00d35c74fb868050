// Package footprint implements candidate read/write summaries and the
// independence check that drives deterministic reservation (spec.md §4.3).
//
// Grounded on the teacher's pkg/storage constraint_validation.go pattern of
// a conservative pre-check (cheap set membership) before the expensive
// operation runs — here generalized from single-write validation to
// pairwise candidate independence.
package footprint

import "echo-engine/echo/pkg/warp"

// Footprint records one candidate rewrite's conservative read/write sets.
type Footprint struct {
	NRead, NWrite map[warp.NodeKey]struct{}
	ERead, EWrite map[warp.EdgeKey]struct{}
	ARead, AWrite map[warp.AttachmentKey]struct{}
	PIn, POut     map[warp.PortKey]struct{}
	FactorMask    uint64
}

// New returns an empty, ready-to-populate Footprint.
func New() *Footprint {
	return &Footprint{
		NRead:  make(map[warp.NodeKey]struct{}),
		NWrite: make(map[warp.NodeKey]struct{}),
		ERead:  make(map[warp.EdgeKey]struct{}),
		EWrite: make(map[warp.EdgeKey]struct{}),
		ARead:  make(map[warp.AttachmentKey]struct{}),
		AWrite: make(map[warp.AttachmentKey]struct{}),
		PIn:    make(map[warp.PortKey]struct{}),
		POut:   make(map[warp.PortKey]struct{}),
	}
}

func (f *Footprint) ReadNode(k warp.NodeKey)        { f.NRead[k] = struct{}{} }
func (f *Footprint) WriteNode(k warp.NodeKey)       { f.NWrite[k] = struct{}{} }
func (f *Footprint) ReadEdge(k warp.EdgeKey)        { f.ERead[k] = struct{}{} }
func (f *Footprint) WriteEdge(k warp.EdgeKey)       { f.EWrite[k] = struct{}{} }
func (f *Footprint) ReadAttachment(k warp.AttachmentKey)  { f.ARead[k] = struct{}{} }
func (f *Footprint) WriteAttachment(k warp.AttachmentKey) { f.AWrite[k] = struct{}{} }
func (f *Footprint) PortIn(k warp.PortKey)  { f.PIn[k] = struct{}{} }
func (f *Footprint) PortOut(k warp.PortKey) { f.POut[k] = struct{}{} }

func intersects[K comparable](a, b map[K]struct{}) bool {
	small, big := a, b
	if len(big) < len(small) {
		small, big = big, small
	}
	for k := range small {
		if _, ok := big[k]; ok {
			return true
		}
	}
	return false
}

// Independent reports whether f1 and f2 may be admitted together, checked
// in the fail-fast order factor_mask -> ports -> attachments -> edges ->
// nodes (spec.md §4.3).
func Independent(f1, f2 *Footprint) bool {
	if f1.FactorMask != 0 && f2.FactorMask != 0 && f1.FactorMask&f2.FactorMask != 0 {
		return false
	}
	// Ports: F1.P_out ∩ (F2.P_in ∪ F2.P_out) = ∅ and symmetric.
	for k := range f1.POut {
		if _, ok := f2.PIn[k]; ok {
			return false
		}
		if _, ok := f2.POut[k]; ok {
			return false
		}
	}
	for k := range f2.POut {
		if _, ok := f1.PIn[k]; ok {
			return false
		}
		if _, ok := f1.POut[k]; ok {
			return false
		}
	}
	// Attachments: no write in one intersects any read/write in the other.
	if intersects(f1.AWrite, f2.ARead) || intersects(f1.AWrite, f2.AWrite) {
		return false
	}
	if intersects(f2.AWrite, f1.ARead) || intersects(f2.AWrite, f1.AWrite) {
		return false
	}
	// Edges.
	if intersects(f1.EWrite, f2.ERead) || intersects(f1.EWrite, f2.EWrite) {
		return false
	}
	if intersects(f2.EWrite, f1.ERead) || intersects(f2.EWrite, f1.EWrite) {
		return false
	}
	// Nodes.
	if intersects(f1.NWrite, f2.NRead) || intersects(f1.NWrite, f2.NWrite) {
		return false
	}
	if intersects(f2.NWrite, f1.NRead) || intersects(f2.NWrite, f1.NWrite) {
		return false
	}
	return true
}
