package candidate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"echo-engine/echo/pkg/candidate"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

func scope(label string) warp.NodeKey {
	return warp.NodeKey{
		Warp: id.WarpId(id.MakeID("warp:", []byte("w"))),
		Node: id.NodeId(id.MakeID("node:", []byte(label))),
	}
}

func TestScopeHashDeterministic(t *testing.T) {
	ruleID := id.MakeID("rule:", []byte("touch"))
	a := candidate.ScopeHash(ruleID, scope("x"))
	b := candidate.ScopeHash(ruleID, scope("x"))
	require.Equal(t, a, b)
}

func TestScopeHashDiffersByScope(t *testing.T) {
	ruleID := id.MakeID("rule:", []byte("touch"))
	a := candidate.ScopeHash(ruleID, scope("x"))
	b := candidate.ScopeHash(ruleID, scope("y"))
	require.NotEqual(t, a, b)
}

func TestSortByKeyOrdersByScopeThenFamilyThenNonce(t *testing.T) {
	ruleA := id.MakeID("rule:", []byte("a"))
	ruleB := id.MakeID("rule:", []byte("b"))
	s := scope("x")

	c1 := candidate.Candidate{RuleFamilyId: ruleA, Scope: s, Nonce: 2, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleA, s)}
	c2 := candidate.Candidate{RuleFamilyId: ruleA, Scope: s, Nonce: 1, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleA, s)}
	c3 := candidate.Candidate{RuleFamilyId: ruleB, Scope: s, Nonce: 1, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleB, s)}

	sorted := candidate.SortByKey([]candidate.Candidate{c1, c2, c3})
	require.Equal(t, c2.Nonce, sorted[0].Nonce)
	require.Equal(t, ruleA, sorted[0].RuleFamilyId)
}

func TestSortByKeyIsDeterministicAcrossPermutations(t *testing.T) {
	ruleID := id.MakeID("rule:", []byte("r"))
	cands := []candidate.Candidate{
		{RuleFamilyId: ruleID, Scope: scope("a"), Nonce: 3, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleID, scope("a"))},
		{RuleFamilyId: ruleID, Scope: scope("b"), Nonce: 1, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleID, scope("b"))},
		{RuleFamilyId: ruleID, Scope: scope("c"), Nonce: 2, Footprint: footprint.New(), ScopeHash: candidate.ScopeHash(ruleID, scope("c"))},
	}
	reversed := []candidate.Candidate{cands[2], cands[1], cands[0]}

	sortedA := candidate.SortByKey(cands)
	sortedB := candidate.SortByKey(reversed)
	for i := range sortedA {
		require.Equal(t, sortedA[i].SortKey(), sortedB[i].SortKey())
	}
}
