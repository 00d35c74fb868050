package artifact

import (
	"bytes"
	"sort"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warpop"
)

// encodeSlot writes a slot's 1-byte tag followed by its tag-specific bytes
// (spec.md §4.8): Node/Edge slots write the owning WarpId then the local id;
// Attachment slots reuse the attachment-key encoding
// (owner_tag || plane_tag || warp_id || local_id); Port slots write the
// scoping WarpId then the packed port key.
func encodeSlot(w *codec.Writer, s Slot) {
	w.U8(uint8(s.Tag))
	switch s.Tag {
	case SlotNode:
		w.Hash32(s.Node.Warp.Hash())
		w.Hash32(s.Node.Node.Hash())
	case SlotEdge:
		w.Hash32(s.Edge.Warp.Hash())
		w.Hash32(s.Edge.Edge.Hash())
	case SlotAttachment:
		w.U8(uint8(s.Attachment.Owner))
		w.U8(uint8(s.Attachment.Plane))
		w.Hash32(s.Attachment.Warp.Hash())
		w.Hash32(s.Attachment.Local)
	case SlotPort:
		w.Hash32(s.PortWarp.Hash())
		w.U64LE(uint64(s.Port))
	}
}

func slotBytes(s Slot) []byte {
	w := codec.NewWriter(72)
	encodeSlot(w, s)
	return w.Bytes()
}

// sortedSlots returns slots ordered by their own canonical encoding, so a
// slot set's digest contribution does not depend on caller-supplied order
// (I2).
func sortedSlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(slotBytes(out[i]), slotBytes(out[j])) < 0
	})
	return out
}

func encodeSlotList(w *codec.Writer, slots []Slot) {
	sorted := sortedSlots(slots)
	w.ListHeader(len(sorted))
	for _, s := range sorted {
		encodeSlot(w, s)
	}
}

func encodeOpList(w *codec.Writer, ops []warpop.Op) {
	w.ListHeader(len(ops))
	for _, op := range ops {
		w.Raw(op.Payload())
	}
}

// ComputePatchDigest encodes a TickPatch per §4.8's v2 layout:
// u16(2) || u32(policy_id) || rule_pack_id(32) || u8(commit_status) ||
// encode_list(in_slots) || encode_list(out_slots) || encode_list(ops).
// p.Ops must already be canonically sorted and deduped (warpop.SortAndDedup).
func ComputePatchDigest(p TickPatch) id.Hash {
	w := codec.NewWriter(128 + 80*(len(p.InSlots)+len(p.OutSlots)) + 96*len(p.Ops))
	w.U16LE(2)
	w.U32LE(p.PolicyId)
	w.Hash32(p.RulePackId)
	w.U8(uint8(p.CommitStatus))
	encodeSlotList(w, p.InSlots)
	encodeSlotList(w, p.OutSlots)
	encodeOpList(w, p.Ops)
	return id.Hash256(w.Bytes())
}

// sortedHashes returns parents ordered ascending, so commit_id does not
// depend on the order Snapshot.Parents happened to be built in.
func sortedHashes(hs []id.Hash) []id.Hash {
	out := make([]id.Hash, len(hs))
	copy(out, hs)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ComputeCommitId encodes §4.8's v2 commit id:
// hash(u16(1) || encode_list(parents) || state_root(32) || patch_digest(32) || u32(policy_id)).
func ComputeCommitId(parents []id.Hash, stateRoot, patchDigest id.Hash, policyId uint32) id.Hash {
	sorted := sortedHashes(parents)
	w := codec.NewWriter(32 + 32*len(sorted) + 64 + 4)
	w.U16LE(1)
	w.ListHeader(len(sorted))
	for _, p := range sorted {
		w.Hash32(p)
	}
	w.Hash32(stateRoot)
	w.Hash32(patchDigest)
	w.U32LE(policyId)
	return id.Hash256(w.Bytes())
}
