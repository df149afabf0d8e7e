package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
)

// ReduceAncestors is TilingAlgorithmV2's phase 4: it runs once every
// target-depth node has finished its own sampling pass (deeper descendants
// may still be refining; this pass reads and writes nothing below
// target_depth). Ancestor nodes between the root and target_depth never
// received their own sampling pass (phases 1-2 routed straight past
// them). This pass walks those depths bottom-up, offering
// each ancestor the accepted points of its materialized children as
// candidates for promotion.
//
// A promoted point moves, not copies: "a point appears in at most one
// accepted_points buffer across the tree" (§3) holds only if accepting a
// point at the ancestor removes it from the child that originally held it.
// Points the ancestor's session rejects stay exactly where they were.
func ReduceAncestors(tree *octree.Tree, cfg Config, targetDepth int, batchIndex uint64) {
	for depth := targetDepth - 1; depth >= 0; depth-- {
		for _, key := range nodesAtDepth(tree, depth) {
			promoteToAncestor(tree, cfg, key, batchIndex)
		}
	}
}

func nodesAtDepth(tree *octree.Tree, depth int) []octree.NodeKey {
	var out []octree.NodeKey
	for _, k := range tree.Nodes() {
		if k.Depth() == depth {
			out = append(out, k)
		}
	}
	return out
}

type childCandidate struct {
	node  *octree.Node
	batch *data.PointBatch
}

func promoteToAncestor(tree *octree.Tree, cfg Config, key octree.NodeKey, batchIndex uint64) {
	node := tree.GetOrCreate(key)
	if node.AcceptedCount() >= cfg.MaxPointsPerNode {
		return
	}

	var children []childCandidate
	total := 0
	for octant := uint8(0); octant < 8; octant++ {
		childNode, ok := tree.Get(key.Child(octant))
		if !ok {
			continue
		}
		batch := childNode.Accepted()
		if batch.Count() == 0 {
			continue
		}
		children = append(children, childCandidate{node: childNode, batch: batch})
		total += batch.Count()
	}
	if total == 0 {
		return
	}

	seed := DeriveSeed(key, batchIndex)
	session := cfg.Strategy.NewSession(node.Bounds, key.Depth(), node.Accepted(), total, seed)

	for _, c := range children {
		remainder := data.NewPointBatch(c.batch.Schema)
		for i := 0; i < c.batch.Count(); i++ {
			p := c.batch.At(i)
			if node.AcceptedCount() < cfg.MaxPointsPerNode && session.Accept(p) {
				node.AppendAccepted(p)
				session.Commit(p)
			} else {
				remainder.AddPoint(p)
			}
		}
		c.node.ReplaceAccepted(remainder)
	}
}
