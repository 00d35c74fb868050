// Package replay implements Echo's replay and slicing operations
// (spec.md §4.9): reproducing state_root at every tick from an ordered
// patch sequence, and extracting, in ascending order, the tick indices whose
// patches determine one slot's value at a given tick (ticks in between that
// produce nothing the slot depends on are left out).
package replay

import (
	"fmt"
	"sort"
	"sync"

	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// CommitLog is an in-memory, ordered record of every tick's TickPatch
// (grounded on the teacher's pkg/storage/wal.go write-ahead log: a
// monotonic sequence of entries recorded as they are produced — here an
// in-process convenience for slicing, not a durable log; durable log
// storage is an explicit non-goal).
type CommitLog struct {
	mu      sync.RWMutex
	patches []artifact.TickPatch
}

// NewCommitLog returns an empty log.
func NewCommitLog() *CommitLog { return &CommitLog{} }

// Append records the next tick's patch, returning its tick index.
func (l *CommitLog) Append(p artifact.TickPatch) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patches = append(l.patches, p)
	return len(l.patches) - 1
}

// Patches returns a copy of every recorded patch in tick order.
func (l *CommitLog) Patches() []artifact.TickPatch {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]artifact.TickPatch, len(l.patches))
	copy(out, l.patches)
	return out
}

// Len returns the number of recorded ticks.
func (l *CommitLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.patches)
}

// Replay applies patches in order to a fresh clone of u0, returning the
// state_root recomputed after each tick (spec.md §4.9, P6). It fails fast
// on the first tick whose ops do not apply cleanly.
func Replay(u0 *warp.WarpState, patches []artifact.TickPatch, rootWarp id.WarpId, rootNode id.NodeId) ([]id.Hash, error) {
	state := u0.Clone()
	roots := make([]id.Hash, 0, len(patches))
	for i, p := range patches {
		if err := warpop.Apply(state, p.Ops); err != nil {
			return roots, fmt.Errorf("replay: tick %d: %w", i, err)
		}
		root, err := artifact.ComputeStateRoot(state, rootWarp, rootNode)
		if err != nil {
			return roots, fmt.Errorf("replay: tick %d: %w", i, err)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// Slice computes the ascending, not necessarily contiguous, set of tick
// indices that determine target's value as of tick n (spec.md §4.9): find the
// latest producer of target at or before n, pull in its in_slots
// recursively, and repeat until nothing new is added. in_slots/out_slots
// may over-approximate so the result may include more ticks than strictly
// necessary, but never fewer (P7).
func Slice(patches []artifact.TickPatch, target artifact.Slot, n int) []int {
	type work struct {
		slot artifact.Slot
		upTo int
	}
	selected := make(map[int]struct{})
	queue := []work{{slot: target, upTo: n}}

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]

		idx := latestProducer(patches, w.slot, w.upTo)
		if idx < 0 {
			continue // value comes from U0; nothing to add
		}
		if _, done := selected[idx]; done {
			continue
		}
		selected[idx] = struct{}{}
		for _, s := range patches[idx].InSlots {
			queue = append(queue, work{slot: s, upTo: idx - 1})
		}
	}

	out := make([]int, 0, len(selected))
	for idx := range selected {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

func latestProducer(patches []artifact.TickPatch, s artifact.Slot, upTo int) int {
	if upTo >= len(patches) {
		upTo = len(patches) - 1
	}
	for i := upTo; i >= 0; i-- {
		for _, o := range patches[i].OutSlots {
			if o == s {
				return i
			}
		}
	}
	return -1
}
