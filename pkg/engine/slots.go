package engine

import (
	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/footprint"
)

// buildSlots derives a commit's conservative in_slots/out_slots as the
// union of the accepted candidates' footprint read/write sets
// (spec.md §4.6 step 8). Port slots carry no WarpId: PortKey is a global
// boundary-port namespace per §3.1, not instance-scoped.
func buildSlots(fps []*footprint.Footprint) (in, out []artifact.Slot) {
	inSet := make(map[artifact.Slot]struct{})
	outSet := make(map[artifact.Slot]struct{})

	for _, fp := range fps {
		for k := range fp.NRead {
			inSet[artifact.Slot{Tag: artifact.SlotNode, Node: k}] = struct{}{}
		}
		for k := range fp.NWrite {
			outSet[artifact.Slot{Tag: artifact.SlotNode, Node: k}] = struct{}{}
		}
		for k := range fp.ERead {
			inSet[artifact.Slot{Tag: artifact.SlotEdge, Edge: k}] = struct{}{}
		}
		for k := range fp.EWrite {
			outSet[artifact.Slot{Tag: artifact.SlotEdge, Edge: k}] = struct{}{}
		}
		for k := range fp.ARead {
			inSet[artifact.Slot{Tag: artifact.SlotAttachment, Attachment: k}] = struct{}{}
		}
		for k := range fp.AWrite {
			outSet[artifact.Slot{Tag: artifact.SlotAttachment, Attachment: k}] = struct{}{}
		}
		for k := range fp.PIn {
			inSet[artifact.Slot{Tag: artifact.SlotPort, Port: k}] = struct{}{}
		}
		for k := range fp.POut {
			outSet[artifact.Slot{Tag: artifact.SlotPort, Port: k}] = struct{}{}
		}
	}

	for s := range inSet {
		in = append(in, s)
	}
	for s := range outSet {
		out = append(out, s)
	}
	return in, out
}
