package main

import (
	"encoding/binary"

	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/rule"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// touchCounterType is the attachment-plane meaning tag for the demo rule's
// payload: a little-endian u64 counter.
var touchCounterType = id.TypeId(id.MakeID("type:", []byte("demo.counter")))

// registerTouchRule installs a single-node rewrite that reads the counter
// attachment on its scope node, if any, and writes back count+1. It matches
// whenever the scope node exists, so repeated apply() calls at the same scope across ticks produce
// a strictly increasing counter — a minimal, observable stand-in for a real
// rewrite rule, useful for exercising begin/apply/commit end to end.
func registerTouchRule(reg *rule.Registry) error {
	_, err := reg.Register(rule.Rule{
		Name: "touch",
		Match: func(view warp.GraphView, scope warp.NodeKey) bool {
			_, ok := view.Node(scope.Warp, scope.Node)
			return ok
		},
		ComputeFootprint: func(view warp.GraphView, scope warp.NodeKey) *footprint.Footprint {
			fp := footprint.New()
			fp.ReadNode(scope)
			fp.WriteAttachment(warp.NodeAttachmentKey(scope.Warp, scope.Node))
			return fp
		},
		Execute: func(view warp.GraphView, scope warp.NodeKey, delta *warpop.PatchBuilder) {
			var next uint64 = 1
			if av, ok := view.NodeAttachment(scope.Warp, scope.Node); ok && !av.IsDescend && len(av.Atom.Bytes) == 8 {
				next = binary.LittleEndian.Uint64(av.Atom.Bytes) + 1
			}
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, next)
			delta.Emit(warpop.SetAttachment{
				Key: warp.NodeAttachmentKey(scope.Warp, scope.Node),
				Value: &warp.AttachmentValue{
					Atom: warp.AtomPayload{TypeId: touchCounterType, Bytes: buf},
				},
			})
		},
		ConflictPolicy: rule.ConflictPolicy{Kind: rule.PolicyAbort},
	})
	return err
}
