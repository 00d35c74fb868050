// Package engine implements Echo's transaction lifecycle (spec.md §4.6):
// begin/apply/commit/abort over one WarpState, gluing together the rule
// registry, footprint-based scheduler, canonical op set, and boundary
// artifact encoders.
//
// Grounded on the teacher's pkg/storage/transaction.go Transaction state
// machine (Active/Committed/RolledBack, buffered operations applied at
// commit time) — generalized here to Echo's Open/Committing/
// Committed/Aborted lifecycle and footprint-reserved candidate execution
// instead of a simple operation buffer.
package engine

import (
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"echo-engine/echo/pkg/artifact"
	"echo-engine/echo/pkg/candidate"
	"echo-engine/echo/pkg/errs"
	"echo-engine/echo/pkg/footprint"
	"echo-engine/echo/pkg/id"
	"echo-engine/echo/pkg/rule"
	"echo-engine/echo/pkg/scheduler"
	"echo-engine/echo/pkg/viewcache"
	"echo-engine/echo/pkg/warp"
	"echo-engine/echo/pkg/warpop"
)

// TxStatus is a transaction's position in its lifecycle (spec.md §4.6).
type TxStatus uint8

const (
	StatusOpen TxStatus = iota
	StatusCommitting
	StatusCommitted
	StatusAborted
)

// TxId is a monotonic non-zero transaction identifier.
type TxId uint64

// ApplyResult is apply()'s outcome.
type ApplyResult uint8

const (
	Matched ApplyResult = iota
	NoMatch
	UnknownRule
	TxClosed
)

type pendingCandidate struct {
	cand candidate.Candidate
	rule *rule.Rule
}

// Transaction holds one tx's accumulated candidates until commit or abort.
// It owns no graph memory (spec.md §3.4).
type Transaction struct {
	id      TxId
	status  TxStatus
	pending []pendingCandidate

	// scopeCache memoizes candidate.ScopeHash across this tx's apply() calls
	// (spec.md §2's viewcache binding); valid only for the tx's lifetime.
	scopeCache *viewcache.ScopeHashCache
}

func (tx *Transaction) Status() TxStatus { return tx.status }

// Engine is one running instance of the tick engine: a WarpState, its rule
// registry, and the bookkeeping apply()/commit() need (spec.md §4.6, §5).
type Engine struct {
	mu sync.Mutex // serializes commit (§5: "at most one committing tx at a time")

	state    *warp.WarpState
	rules    *rule.Registry
	rootWarp id.WarpId
	rootNode id.NodeId
	policyId uint32

	nextTxId  uint64
	nextNonce uint64
	txs       map[TxId]*Transaction

	hasParent    bool
	lastCommitID id.Hash

	retryQueue []pendingCandidate
}

// New constructs an Engine around a fresh WarpState, creating the root
// instance and a root node of rootTypeId so state_root is computable even
// before any caller inserts content. Returns the engine and the allocated
// root node id, so callers can hang further structure off it.
func New(rules *rule.Registry, rootWarp id.WarpId, rootTypeId id.TypeId, policyId uint32) (*Engine, id.NodeId) {
	state := warp.NewWarpState()
	rootNode := id.NodeId(id.MakeID("root:", rootWarp.Hash().Bytes()))
	_ = state.UpsertWarpInstance(warp.WarpInstance{WarpId: rootWarp, RootNode: rootNode})
	g, _ := state.GetInstance(rootWarp)
	_ = g.InsertNode(rootNode, warp.NodeRecord{Ty: rootTypeId})

	return &Engine{
		state:    state,
		rules:    rules,
		rootWarp: rootWarp,
		rootNode: rootNode,
		policyId: policyId,
		txs:      make(map[TxId]*Transaction),
	}, rootNode
}

// RegisterRule delegates to the engine's rule registry.
func (e *Engine) RegisterRule(rl rule.Rule) (uint32, error) {
	return e.rules.Register(rl)
}

// InsertNode seeds content directly, bypassing the tx/reservation pipeline
// (spec.md §6's insert_node), for building initial state before any
// rewrites run.
func (e *Engine) InsertNode(key warp.NodeKey, rec warp.NodeRecord, attachment *warp.AttachmentValue) error {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()

	g, ok := st.GetInstance(key.Warp)
	if !ok {
		if err := st.UpsertWarpInstance(warp.WarpInstance{WarpId: key.Warp, RootNode: key.Node}); err != nil {
			return err
		}
		g, _ = st.GetInstance(key.Warp)
	}
	if err := g.InsertNode(key.Node, rec); err != nil {
		return err
	}
	if attachment != nil {
		return g.SetNodeAttachment(key.Node, attachment)
	}
	return nil
}

// InsertEdge seeds an edge directly, bypassing the tx/reservation pipeline
// (spec.md §6's insert_edge), for wiring seeded nodes into the reachable set
// state_root hashes over before any rewrites run (I4).
func (e *Engine) InsertEdge(w id.WarpId, rec warp.EdgeRecord) error {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()

	g, ok := st.GetInstance(w)
	if !ok {
		return errs.ErrNotFound
	}
	return g.InsertEdge(rec)
}

// Begin allocates a new tx in Open.
func (e *Engine) Begin() TxId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextTxId++
	txid := TxId(e.nextTxId)

	scopeCache, err := viewcache.NewScopeHashCache()
	if err != nil {
		log.Printf("[Tx %d] scope-hash cache unavailable, falling back to uncached: %v", txid, err)
	}
	e.txs[txid] = &Transaction{id: txid, status: StatusOpen, scopeCache: scopeCache}
	log.Printf("[Tx %d] begin", txid)
	return txid
}

// Apply resolves rule_name, runs match over a read-only view, computes a
// footprint, and enqueues a candidate with a freshly assigned nonce
// (spec.md §4.6).
func (e *Engine) Apply(txid TxId, ruleName string, scope warp.NodeKey) ApplyResult {
	e.mu.Lock()
	tx, ok := e.txs[txid]
	st := e.state
	e.mu.Unlock()
	if !ok || tx.status != StatusOpen {
		return TxClosed
	}

	rl, ok := e.rules.Lookup(ruleName)
	if !ok {
		return UnknownRule
	}

	view := warp.NewGraphView(st)
	if !rl.Match(view, scope) {
		return NoMatch
	}

	fp := rl.ComputeFootprint(view, scope)
	if fp.FactorMask == 0 {
		fp.FactorMask = rl.FactorMask
	}

	e.mu.Lock()
	e.nextNonce++
	nonce := e.nextNonce
	e.mu.Unlock()

	cand := candidate.Candidate{
		RuleFamilyId: rl.Id,
		RuleName:     rl.Name,
		Scope:        scope,
		Nonce:        nonce,
		Footprint:    fp,
		ScopeHash:    scopeHashFor(tx, rl.Id, scope),
	}

	e.mu.Lock()
	if tx.status != StatusOpen {
		e.mu.Unlock()
		return TxClosed
	}
	tx.pending = append(tx.pending, pendingCandidate{cand: cand, rule: rl})
	e.mu.Unlock()
	return Matched
}

// scopeHashFor memoizes candidate.ScopeHash against tx's scope-hash cache,
// falling back to a direct computation when the cache is unavailable.
func scopeHashFor(tx *Transaction, ruleFamilyId id.Hash, scope warp.NodeKey) id.Hash {
	if tx.scopeCache != nil {
		if h, ok := tx.scopeCache.Get(ruleFamilyId, scope); ok {
			return h
		}
	}
	h := candidate.ScopeHash(ruleFamilyId, scope)
	if tx.scopeCache != nil {
		tx.scopeCache.Put(ruleFamilyId, scope, h)
	}
	return h
}

// Abort transitions tx to Aborted. Fails with ErrTxClosed if tx is unknown
// or already closed.
func (e *Engine) Abort(txid TxId) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, ok := e.txs[txid]
	if !ok || tx.status == StatusAborted || tx.status == StatusCommitted {
		return errs.ErrTxClosed
	}
	tx.status = StatusAborted
	if tx.scopeCache != nil {
		tx.scopeCache.Close()
	}
	log.Printf("[Tx %d] abort", txid)
	return nil
}

// SnapshotAtRoot returns the current state_root without mutating anything.
func (e *Engine) SnapshotAtRoot() (id.Hash, error) {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()
	return artifact.ComputeStateRoot(st, e.rootWarp, e.rootNode)
}

// Commit runs reservation over tx's pending candidates (plus any carried
// over by a prior tick's Retry policy), executes accepted candidates
// against a read-only view, folds the resulting ops into the store with a
// clone-and-swap, and assembles the three boundary artifacts
// (spec.md §4.6 steps 1-10).
func (e *Engine) Commit(txid TxId) (artifact.Snapshot, artifact.TickReceipt, artifact.TickPatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx, ok := e.txs[txid]
	if !ok || tx.status != StatusOpen {
		return artifact.Snapshot{}, artifact.TickReceipt{}, artifact.TickPatch{}, errs.ErrTxClosed
	}
	tx.status = StatusCommitting
	log.Printf("[Tx %d] committing", txid)
	if tx.scopeCache != nil {
		defer tx.scopeCache.Close()
	}

	allPending := make([]pendingCandidate, 0, len(e.retryQueue)+len(tx.pending))
	allPending = append(allPending, e.retryQueue...)
	allPending = append(allPending, tx.pending...)
	e.retryQueue = nil

	cands := make([]candidate.Candidate, len(allPending))
	for i, p := range allPending {
		cands[i] = p.cand
	}

	ic, err := viewcache.NewIndependenceCache()
	if err != nil {
		log.Printf("[Tx %d] independence cache unavailable, falling back to uncached: %v", txid, err)
	}
	if ic != nil {
		defer ic.Close()
	}
	result := scheduler.ReserveCached(cands, ic)

	view := warp.NewGraphView(e.state)
	builders := make([]*warpop.PatchBuilder, len(allPending))

	var grp errgroup.Group
	for _, origIdx := range result.CanonicalOrder {
		if !result.Decisions[origIdx].Accepted {
			continue
		}
		origIdx := origIdx
		grp.Go(func() error {
			b := warpop.NewPatchBuilder()
			allPending[origIdx].rule.Execute(view, allPending[origIdx].cand.Scope, b)
			builders[origIdx] = b
			return nil
		})
	}
	_ = grp.Wait() // executors never return error; ops are folded and validated below

	var ops []warpop.Op
	var acceptedFootprints []*footprint.Footprint
	for _, origIdx := range result.CanonicalOrder {
		if !result.Decisions[origIdx].Accepted {
			continue
		}
		if b := builders[origIdx]; b != nil {
			ops = append(ops, b.Ops()...)
		}
		acceptedFootprints = append(acceptedFootprints, allPending[origIdx].cand.Footprint)
	}

	joinOps, err := e.resolveJoins(view, allPending, result)
	if err != nil {
		tx.status = StatusAborted
		return artifact.Snapshot{}, artifact.TickReceipt{}, artifact.TickPatch{}, err
	}
	ops = append(ops, joinOps...)

	e.requeueRetries(allPending, result)

	sortedOps, err := warpop.SortAndDedup(ops)
	if err != nil {
		tx.status = StatusAborted
		return artifact.Snapshot{}, artifact.TickReceipt{}, artifact.TickPatch{}, errs.ErrOpConflict
	}

	clone := e.state.Clone()
	if err := warpop.Apply(clone, sortedOps); err != nil {
		tx.status = StatusAborted
		return artifact.Snapshot{}, artifact.TickReceipt{}, artifact.TickPatch{}, errs.ErrOpConflict
	}
	e.state = clone

	stateRoot, err := artifact.ComputeStateRoot(e.state, e.rootWarp, e.rootNode)
	if err != nil {
		tx.status = StatusAborted
		return artifact.Snapshot{}, artifact.TickReceipt{}, artifact.TickPatch{}, err
	}

	decisions := make([]artifact.ReceiptEntry, len(allPending))
	for i, d := range result.Decisions {
		if d.Accepted {
			decisions[i] = artifact.ReceiptEntry{Decision: artifact.Applied}
			continue
		}
		blockers := make([]uint32, len(d.Blockers))
		for j, b := range d.Blockers {
			blockers[j] = uint32(b)
		}
		decisions[i] = artifact.ReceiptEntry{Decision: artifact.Rejected, Blockers: blockers}
	}

	inSlots, outSlots := buildSlots(acceptedFootprints)
	patch := artifact.TickPatch{
		Version:      2,
		PolicyId:     e.policyId,
		RulePackId:   e.rules.PackID(),
		CommitStatus: artifact.StatusCommitted,
		InSlots:      inSlots,
		OutSlots:     outSlots,
		Ops:          sortedOps,
	}
	patchDigest := artifact.ComputePatchDigest(patch)

	var parents []id.Hash
	if e.hasParent {
		parents = []id.Hash{e.lastCommitID}
	}
	commitID := artifact.ComputeCommitId(parents, stateRoot, patchDigest, e.policyId)
	e.hasParent = true
	e.lastCommitID = commitID

	snapshot := artifact.Snapshot{
		Parents:     parents,
		StateRoot:   stateRoot,
		PatchDigest: patchDigest,
		PolicyId:    e.policyId,
		CommitId:    commitID,
	}
	receipt := artifact.TickReceipt{Decisions: decisions}

	tx.status = StatusCommitted
	log.Printf("[Tx %d] committed commit_id=%s state_root=%s", txid, commitID, stateRoot)
	return snapshot, receipt, patch, nil
}

// resolveJoins groups rejected candidates whose rule carries PolicyJoin by
// scope and invokes each group's Joiner once (spec.md §4.6, §9's Join
// Open Question — decided in DESIGN.md).
func (e *Engine) resolveJoins(view warp.GraphView, allPending []pendingCandidate, result scheduler.Result) ([]warpop.Op, error) {
	groups := map[warp.NodeKey][]pendingCandidate{}
	for _, origIdx := range result.CanonicalOrder {
		if result.Decisions[origIdx].Accepted {
			continue
		}
		p := allPending[origIdx]
		if p.rule.ConflictPolicy.Kind == rule.PolicyJoin && p.rule.ConflictPolicy.Joiner != nil {
			groups[p.cand.Scope] = append(groups[p.cand.Scope], p)
		}
	}
	if len(groups) == 0 {
		return nil, nil
	}

	scopes := make([]warp.NodeKey, 0, len(groups))
	for s := range groups {
		scopes = append(scopes, s)
	}
	sort.Slice(scopes, func(i, j int) bool {
		if scopes[i].Warp != scopes[j].Warp {
			return scopes[i].Warp.Less(scopes[j].Warp)
		}
		return scopes[i].Node.Less(scopes[j].Node)
	})

	var ops []warpop.Op
	for _, scope := range scopes {
		group := groups[scope]
		names := make([]string, len(group))
		for i, p := range group {
			names[i] = p.cand.RuleName
		}
		joined, err := group[0].rule.ConflictPolicy.Joiner(view, scope, names)
		if err != nil {
			return nil, err
		}
		ops = append(ops, joined...)
	}
	return ops, nil
}

// requeueRetries carries rejected PolicyRetry candidates into the next
// commit's pending set (spec.md §4.6's Retry handling).
func (e *Engine) requeueRetries(allPending []pendingCandidate, result scheduler.Result) {
	for i, d := range result.Decisions {
		if d.Accepted {
			continue
		}
		if allPending[i].rule.ConflictPolicy.Kind == rule.PolicyRetry {
			e.retryQueue = append(e.retryQueue, allPending[i])
		}
	}
}
