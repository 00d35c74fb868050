// Package scheduler implements Echo's deterministic reservation algorithm
// (spec.md §4.5): a single-threaded, order-independent admission pass over
// one transaction's pending candidates.
//
// Grounded on the teacher's pkg/storage/constraint_validation.go pattern of
// checking a cheap conservative condition before admitting a write,
// generalized from single-object constraint checks to pairwise footprint
// independence over a whole batch.
package scheduler

import (
	"sort"

	"echo-engine/echo/pkg/candidate"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/viewcache"
)

// Decision is one candidate's reservation outcome.
type Decision struct {
	Accepted bool
	// Blockers holds the ascending canonical-order positions of the
	// already-accepted candidates this one conflicts with. Empty when
	// Accepted is true.
	Blockers []int
}

// Result is the outcome of Reserve: per-candidate decisions in input order,
// plus the canonical order the candidates were admitted in (original
// indices), for callers that must execute accepted candidates in that
// order (spec.md §4.6 step 3).
type Result struct {
	Decisions    []Decision // indexed like the input slice
	CanonicalOrder []int    // original indices, sorted by candidate.SortKey
}

// Reserve sorts cands by their canonical key and admits them greedily:
// a candidate is accepted iff its footprint is independent of every
// already-accepted footprint (spec.md §4.5). The result is order-independent:
// any permutation of the input yields the same accepted set (P2).
func Reserve(cands []candidate.Candidate) Result {
	return reserve(cands, nil)
}

// ReserveCached behaves like Reserve, but consults ic before running
// footprint.Independent on each pair and populates it on a miss. A batch of
// N candidates touching a shared scope does the same pairwise checks
// repeatedly as the accepted set grows; ic turns those into cache hits
// keyed by the pair's scope hashes (spec.md §4.3, §4.5).
func ReserveCached(cands []candidate.Candidate, ic *viewcache.IndependenceCache) Result {
	return reserve(cands, ic)
}

func reserve(cands []candidate.Candidate, ic *viewcache.IndependenceCache) Result {
	n := len(cands)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return less(cands[order[i]].SortKey(), cands[order[j]].SortKey())
	})

	decisions := make([]Decision, n)
	type acceptedEntry struct {
		canonicalPos int
		fp           *footprint.Footprint
		scopeHash    id.Hash
	}
	var accepted []acceptedEntry

	for pos, origIdx := range order {
		cand := cands[origIdx]
		fp := cand.Footprint
		var blockers []int
		for _, a := range accepted {
			var independent bool
			if ic != nil {
				independent = ic.Independent(a.scopeHash, cand.ScopeHash, a.fp, fp)
			} else {
				independent = footprint.Independent(a.fp, fp)
			}
			if !independent {
				blockers = append(blockers, a.canonicalPos)
			}
		}
		if len(blockers) == 0 {
			accepted = append(accepted, acceptedEntry{canonicalPos: pos, fp: fp, scopeHash: cand.ScopeHash})
			decisions[origIdx] = Decision{Accepted: true}
		} else {
			sort.Ints(blockers)
			decisions[origIdx] = Decision{Accepted: false, Blockers: blockers}
		}
	}

	return Result{Decisions: decisions, CanonicalOrder: order}
}

func less(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
