package warpop

// PatchBuilder collects the ops a single rule executor emits. Executors
// receive a builder scoped to one commit and must never touch the store
// directly (spec.md §4.4 — "execute ... MUST NOT mutate the store directly").
type PatchBuilder struct {
	ops []Op
}

// NewPatchBuilder returns an empty builder.
func NewPatchBuilder() *PatchBuilder { return &PatchBuilder{} }

// Emit appends one canonical op.
func (b *PatchBuilder) Emit(op Op) { b.ops = append(b.ops, op) }

// Ops returns every op emitted so far, in emission order (the caller sorts
// canonically before applying).
func (b *PatchBuilder) Ops() []Op { return b.ops }
