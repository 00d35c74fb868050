// Package rule implements the append-only rewrite-rule registry
// (spec.md §4.4).
//
// Grounded on the teacher's pkg/storage/schema.go SchemaManager: a
// name-keyed registry guarded by one RWMutex, rejecting duplicate
// registration — generalized from constraint schemas to rewrite rules with
// match/footprint/execute callbacks.
package rule

import (
	"log"
	"sort"
	"sync"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// ConflictPolicyKind selects how a rejected candidate is handled.
type ConflictPolicyKind uint8

const (
	// PolicyAbort drops the candidate, recording the blocker witness
	// (the default).
	PolicyAbort ConflictPolicyKind = iota
	// PolicyRetry re-queues the candidate for the next tick.
	PolicyRetry
	// PolicyJoin invokes a Joiner to combine the losing candidates into a
	// single accepted rewrite.
	PolicyJoin
)

// Joiner combines candidates that lost reservation on the same scope into
// one set of ops (the Join combiner binding, an Open Question in spec.md
// §9 — decided in DESIGN.md: a Joiner receives the committing GraphView,
// the one scope the losing candidates share, and their rule names, and
// returns the ops to apply in their place).
type Joiner func(view warp.GraphView, scope warp.NodeKey, ruleNames []string) ([]warpop.Op, error)

// ConflictPolicy is a rule's handling of rejected candidates.
type ConflictPolicy struct {
	Kind   ConflictPolicyKind
	Joiner Joiner // non-nil iff Kind == PolicyJoin
}

// MatchFunc reports whether a rule applies at scope.
type MatchFunc func(view warp.GraphView, scope warp.NodeKey) bool

// FootprintFunc computes a candidate's conservative read/write summary.
type FootprintFunc func(view warp.GraphView, scope warp.NodeKey) *footprint.Footprint

// ExecFunc emits ops into delta. It MUST NOT mutate the store directly and
// must not observe ops emitted by other executors in the same commit
// (spec.md §4.4, §4.6).
type ExecFunc func(view warp.GraphView, scope warp.NodeKey, delta *warpop.PatchBuilder)

// Rule is a registered rewrite rule.
type Rule struct {
	Id              id.Hash
	Name            string
	Match           MatchFunc
	ComputeFootprint FootprintFunc
	Execute         ExecFunc
	FactorMask      uint64
	ConflictPolicy  ConflictPolicy
}

// Registry is the append-only rule table. Registration is append-only
// within an engine lifetime; duplicate names or ids are rejected
// (spec.md §4.4).
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Rule
	byId    map[id.Hash]*Rule
	order   []string // registration order; its length gives Count and each rule's compact index
	indices map[string]uint32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Rule),
		byId:    make(map[id.Hash]*Rule),
		indices: make(map[string]uint32),
	}
}

// FamilyID computes a rule's stable family id: hash(b"rule:" || name).
func FamilyID(fullyQualifiedName string) id.Hash {
	return id.MakeID("rule:", []byte(fullyQualifiedName))
}

// Register adds a rule. It assigns Id from the name if unset, and rejects
// ErrDuplicateRuleName / ErrDuplicateRuleID on collision. Returns the
// registered rule's compact internal index (never serialized — a hot-path
// comparison aid only).
func (r *Registry) Register(rl Rule) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rl.Id.IsZero() {
		rl.Id = FamilyID(rl.Name)
	}
	if _, ok := r.byName[rl.Name]; ok {
		return 0, errs.ErrDuplicateRuleName
	}
	if _, ok := r.byId[rl.Id]; ok {
		return 0, errs.ErrDuplicateRuleID
	}

	stored := rl
	r.byName[rl.Name] = &stored
	r.byId[rl.Id] = &stored
	r.order = append(r.order, rl.Name)
	idx := uint32(len(r.order) - 1)
	r.indices[rl.Name] = idx
	log.Printf("[Registry] registered rule %q (id=%s)", rl.Name, rl.Id)
	return idx, nil
}

// Lookup resolves a rule by name.
func (r *Registry) Lookup(name string) (*Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rl, ok := r.byName[name]
	return rl, ok
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// PackID pins the registry's contents into a produced patch:
// hash(u16(1) || u64(count) || sorted rule ids) (spec.md §4.4).
func (r *Registry) PackID() id.Hash {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]id.Hash, 0, len(r.byId))
	for rid := range r.byId {
		ids = append(ids, rid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

	w := codec.NewWriter(16 + 32*len(ids))
	w.U16LE(1)
	w.U64LE(uint64(len(ids)))
	for _, rid := range ids {
		w.Hash32(rid)
	}
	return id.Hash256(w.Bytes())
}
