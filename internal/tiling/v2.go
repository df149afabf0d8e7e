package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/taskgraph"
)

// TilingAlgorithmV2 implements §4.2.2: parallel map/reduce throughout.
// DesiredParallelism drives target_depth = ceil(log8(desired_parallelism)),
// the depth at which enough nodes exist (8^target_depth >= desired
// parallelism) to keep every worker busy during the per-node refinement
// phase.
type TilingAlgorithmV2 struct {
	DesiredParallelism int
}

func (TilingAlgorithmV2) Name() string { return "v2_parallel_map_reduce" }

// TargetDepth computes ceil(log8(DesiredParallelism)) without floating
// point, by multiplying the node count by 8 per level until capacity is met.
func (a TilingAlgorithmV2) TargetDepth() int {
	if a.DesiredParallelism <= 1 {
		return 0
	}
	depth := 0
	capacity := 1
	for capacity < a.DesiredParallelism {
		capacity *= 8
		depth++
	}
	return depth
}

func (a TilingAlgorithmV2) BuildExecutionGraph(g *taskgraph.Graph, tree *octree.Tree, cfg Config, batch *data.PointBatch, batchIndex uint64, stats *Stats) {
	targetDepth := a.TargetDepth()
	if targetDepth > cfg.MaxDepth {
		targetDepth = cfg.MaxDepth
	}

	g.SubmitTask(func(tc *taskgraph.TaskContext) error {
		perNode := scatterToTargetDepth(batch, tree.BoundsOf(octree.RootKey), targetDepth, cfg.Concurrency)

		refineIDs := make([]taskgraph.TaskID, 0, len(perNode))
		for key, nodeBatch := range perNode {
			key, nodeBatch := key, nodeBatch
			id := tc.Spawn(func(tc2 *taskgraph.TaskContext) error {
				return refineSubtree(tc2, tree, cfg, key, nodeBatch, batchIndex, stats)
			})
			refineIDs = append(refineIDs, id)
		}

		tc.Spawn(func(tc2 *taskgraph.TaskContext) error {
			ReduceAncestors(tree, cfg, targetDepth, batchIndex)
			return nil
		}, refineIDs...)
		return nil
	})
}
