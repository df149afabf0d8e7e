package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/sampling"
)

// Spiller is the optional backing store for a node's previously-flushed
// accepted points. When Config.Spill is set, ProcessNode pages a node's
// spilled points back in before seeding its sampling session, so a mid-run
// flush (which drops the resident buffer) never resets the node's spacing
// or occupancy history (§5 memory governor, §8 determinism).
type Spiller interface {
	PageIn(key octree.NodeKey, schema *data.Schema) (*data.PointBatch, error)
}

// Config holds the capacity policy both algorithms enforce identically
// (§4.1 "Key policies").
type Config struct {
	Strategy         sampling.Strategy
	RootSpacing      float64
	MaxPointsPerNode int
	MaxDepth         int
	// Concurrency bounds the worker count used by the within-node parallel
	// indexing step (§4.2.1 phase 1); it is independent of the task graph's
	// own pool size, though both default to the configured concurrency.
	Concurrency int
	// Spill recovers a flushed node's prior accepted points for re-sampling.
	// Nil is valid: a run with no memory governor never flushes mid-run, so
	// there is never anything to page back in.
	Spill Spiller
}

// ProcessNode is the single node-local routine both TilingAlgorithmV1's
// root-down recursion and TilingAlgorithmV2's per-node refinement call: it
// runs one sampling pass at key against candidates (§4.3's accept/reject),
// appending accepted points directly to the node and returning whatever was
// rejected, already routed to its child octant (§3 "exactly one child ...
// receives it").
//
// At key's depth reaching MaxDepth, every candidate is accepted
// unconditionally — the leaf acts as an unsampled bucket (§4.1 "Depth
// limit") — and no rejected remainder is produced.
func ProcessNode(tree *octree.Tree, cfg Config, key octree.NodeKey, candidates *data.PointBatch, batchIndex uint64, stats *Stats) [8]*data.PointBatch {
	node := tree.GetOrCreate(key)
	depth := key.Depth()

	var rejectedOut [8]*data.PointBatch
	if candidates == nil || candidates.Count() == 0 {
		return rejectedOut
	}

	if depth >= cfg.MaxDepth {
		for i := 0; i < candidates.Count(); i++ {
			node.AppendAccepted(candidates.At(i))
		}
		stats.AddAccepted(candidates.Count())
		return rejectedOut
	}

	existing := node.Accepted()
	if cfg.Spill != nil && node.Persisted() {
		spilled, err := cfg.Spill.PageIn(key, candidates.Schema)
		if err == nil && spilled.Count() > 0 {
			merged := data.NewPointBatch(candidates.Schema)
			merged.Append(spilled)
			merged.Append(existing)
			existing = merged
		}
	}
	seed := DeriveSeed(key, batchIndex)
	session := cfg.Strategy.NewSession(node.Bounds, depth, existing, candidates.Count(), seed)

	rejected := data.NewPointBatch(candidates.Schema)
	for i := 0; i < candidates.Count(); i++ {
		p := candidates.At(i)
		if !p.Position.IsFinite() {
			stats.AddRejected(1)
			continue
		}
		if node.AcceptedCount() >= cfg.MaxPointsPerNode {
			rejected.AddPoint(p)
			continue
		}
		if session.Accept(p) {
			node.AppendAccepted(p)
			session.Commit(p)
			stats.AddAccepted(1)
		} else {
			rejected.AddPoint(p)
		}
	}

	return scatterByOctantParallel(rejected, node.Bounds, cfg.Concurrency)
}
