// Package artifact defines Echo's three deterministic per-tick boundary
// types — Snapshot, TickReceipt, TickPatch — and the canonical encodings
// that produce state_root, the patch digest, and commit_id (spec.md §4.8,
// §6).
package artifact

import (
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// DecisionKind is one candidate's outcome as recorded in a TickReceipt.
type DecisionKind uint8

const (
	Applied DecisionKind = iota
	Rejected
)

// ReceiptEntry is one candidate's accept/reject outcome, in the order it
// was submitted to apply() within the tick.
type ReceiptEntry struct {
	Decision DecisionKind
	// Blockers holds canonical-order positions of conflicting prior
	// accepts; populated only when Decision == Rejected.
	Blockers []uint32
}

// TickReceipt records every candidate's outcome for one commit, plus
// diagnostic digests that are NOT part of commit_id under v2 (spec.md §4.8).
type TickReceipt struct {
	Decisions      []ReceiptEntry
	PlanDigest     id.Hash
	RewritesDigest id.Hash
}

// SlotTag distinguishes the four addressable slot kinds.
type SlotTag uint8

const (
	SlotNode SlotTag = iota + 1
	SlotEdge
	SlotAttachment
	SlotPort
)

// Slot addresses a location whose value may change across ticks. Only the
// field matching Tag is meaningful.
type Slot struct {
	Tag        SlotTag
	Node       warp.NodeKey
	Edge       warp.EdgeKey
	Attachment warp.AttachmentKey
	Port       warp.PortKey
	PortWarp   id.WarpId // the instance a Port slot is scoped to
}

// CommitStatus is the outcome recorded in a TickPatch.
type CommitStatus uint8

const (
	StatusCommitted CommitStatus = iota
	StatusAborted
)

// TickPatch is the ordered canonical delta for one tick, sufficient for
// replay (spec.md §4.9).
type TickPatch struct {
	Version      uint16 // = 2
	PolicyId     uint32
	RulePackId   id.Hash
	CommitStatus CommitStatus
	InSlots      []Slot
	OutSlots     []Slot
	Ops          []warpop.Op
}

// Snapshot is the committed head returned alongside a TickPatch/TickReceipt.
type Snapshot struct {
	Parents     []id.Hash
	StateRoot   id.Hash
	PatchDigest id.Hash
	PolicyId    uint32
	CommitId    id.Hash
}
