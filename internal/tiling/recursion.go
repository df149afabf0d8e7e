package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/taskgraph"
)

// refineSubtree is §4.2.1 step 3, root-down recursion: sample at key, then
// dispatch one successor task per non-empty rejected octant. Both
// TilingAlgorithmV1 (started at the root) and TilingAlgorithmV2 (started at
// each target-depth node) drive their refinement through this single
// routine, so the capacity policy and recursion shape stay identical
// regardless of which algorithm is doing the dispatching.
func refineSubtree(tc *taskgraph.TaskContext, tree *octree.Tree, cfg Config, key octree.NodeKey, batch *data.PointBatch, batchIndex uint64, stats *Stats) error {
	rejected := ProcessNode(tree, cfg, key, batch, batchIndex, stats)
	if key.Depth() >= cfg.MaxDepth {
		return nil
	}
	for octant := uint8(0); octant < 8; octant++ {
		child := rejected[octant]
		if child == nil || child.Count() == 0 {
			continue
		}
		childKey := key.Child(octant)
		tc.Spawn(func(tc2 *taskgraph.TaskContext) error {
			return refineSubtree(tc2, tree, cfg, childKey, child, batchIndex, stats)
		})
	}
	return nil
}
