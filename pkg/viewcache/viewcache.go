// Package viewcache memoizes two per-transaction computations that would
// otherwise be repeated across every apply() call: candidate independence
// checks and scope-hash derivation (spec.md §4.3, §4.5).
//
// Grounded on the teacher's pkg/cache/query_cache.go (a cache sitting in
// front of a pure, repeatable computation keyed by a hash of its inputs),
// generalized from cached query plans to cached footprint/scope-hash
// results and backed by ristretto instead of a hand-rolled LRU list, since
// ristretto is already a direct dependency of the stack this module is
// built from.
package viewcache

import (
	"github.com/dgraph-io/ristretto/v2"

	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/warp"
)

// defaultNumCounters and defaultMaxCost follow ristretto's own sizing
// guidance (10x the expected item count for the counter sketch; a cost
// budget large enough to hold a few ticks' worth of candidates).
const (
	defaultNumCounters = 100_000
	defaultMaxCost     = 1 << 16
	defaultBufferItems = 64
)

type pairKey struct{ a, b id.Hash }

func orderedPair(a, b id.Hash) pairKey {
	if a.Less(b) {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// IndependenceCache memoizes footprint.Independent results, keyed by the
// two candidates' scope hashes (order-insensitive — independence is
// symmetric). Valid only for the lifetime of one transaction: a commit
// mutates the store, so cached results must not survive past it.
type IndependenceCache struct {
	cache *ristretto.Cache[pairKey, bool]
}

// NewIndependenceCache returns an empty cache sized for one transaction's
// worth of pairwise checks.
func NewIndependenceCache() (*IndependenceCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[pairKey, bool]{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &IndependenceCache{cache: c}, nil
}

// Get returns a cached independence result for the pair (a, b), if present.
func (ic *IndependenceCache) Get(a, b id.Hash) (bool, bool) {
	return ic.cache.Get(orderedPair(a, b))
}

// Put records whether footprints scoped at a and b are independent.
func (ic *IndependenceCache) Put(a, b id.Hash, independent bool) {
	ic.cache.Set(orderedPair(a, b), independent, 1)
}

// Independent checks the cache before falling through to
// footprint.Independent, populating the cache on a miss.
func (ic *IndependenceCache) Independent(aKey, bKey id.Hash, f1, f2 *footprint.Footprint) bool {
	if v, ok := ic.Get(aKey, bKey); ok {
		return v
	}
	v := footprint.Independent(f1, f2)
	ic.Put(aKey, bKey, v)
	return v
}

// Close releases the cache's background goroutines.
func (ic *IndependenceCache) Close() { ic.cache.Close() }

type scopeKey struct {
	ruleFamilyId id.Hash
	warp         id.WarpId
	node         id.NodeId
}

// ScopeHashCache memoizes candidate.ScopeHash across repeated apply()
// calls for the same (rule, scope) pair within one transaction.
type ScopeHashCache struct {
	cache *ristretto.Cache[scopeKey, id.Hash]
}

// NewScopeHashCache returns an empty scope-hash cache.
func NewScopeHashCache() (*ScopeHashCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[scopeKey, id.Hash]{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &ScopeHashCache{cache: c}, nil
}

// Get returns a cached scope hash, if present.
func (c *ScopeHashCache) Get(ruleFamilyId id.Hash, scope warp.NodeKey) (id.Hash, bool) {
	return c.cache.Get(scopeKey{ruleFamilyId: ruleFamilyId, warp: scope.Warp, node: scope.Node})
}

// Put records a computed scope hash.
func (c *ScopeHashCache) Put(ruleFamilyId id.Hash, scope warp.NodeKey, h id.Hash) {
	c.cache.Set(scopeKey{ruleFamilyId: ruleFamilyId, warp: scope.Warp, node: scope.Node}, h, 1)
}

// Close releases the cache's background goroutines.
func (c *ScopeHashCache) Close() { c.cache.Close() }
