// Package candidate defines the pending-rewrite record shared by the rule
// registry, the deterministic scheduler, and the transaction engine
// (spec.md §4.5).
package candidate

import (
	"sort"

	"echo-engine/echo/pkg/codec"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

// Candidate is one (rule, scope) submission enqueued by apply().
type Candidate struct {
	RuleFamilyId id.Hash
	RuleName     string
	Scope        warp.NodeKey
	Nonce        uint64
	Footprint    *footprint.Footprint
	ScopeHash    id.Hash
}

// ScopeHash computes the domain-separated hash of ruleFamilyId concatenated
// with the canonical encoding of scope (spec.md §4.5).
func ScopeHash(ruleFamilyId id.Hash, scope warp.NodeKey) id.Hash {
	w := codec.NewWriter(96)
	w.Raw([]byte("scope:"))
	w.Hash32(ruleFamilyId)
	w.Hash32(scope.Warp.Hash())
	w.Hash32(scope.Node.Hash())
	return id.Hash256(w.Bytes())
}

// SortKey returns the ascending ordering key:
// (scope_hash, rule_family_id, nonce), the composite used for both
// reservation order and tie-break (spec.md §4.5).
func (c Candidate) SortKey() []byte {
	w := codec.NewWriter(72)
	w.Hash32(c.ScopeHash)
	w.Hash32(c.RuleFamilyId)
	w.U64LE(c.Nonce)
	return w.Bytes()
}

// SortByKey returns a new slice of candidates sorted ascending by SortKey.
// Sorting is total: distinct candidates always differ at least in Nonce, so
// ties never occur once nonces are assigned (P2).
func SortByKey(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	sort.SliceStable(out, func(i, j int) bool {
		return lessBytes(out[i].SortKey(), out[j].SortKey())
	})
	return out
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
