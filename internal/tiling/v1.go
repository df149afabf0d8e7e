package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/taskgraph"
)

// TilingAlgorithmV1 implements §4.2.1: parallel-index / sequential-sort /
// root-down recursion. Lower scheduling overhead than V2, at the cost of
// serializing the sort/scatter step at every node on the recursion path.
type TilingAlgorithmV1 struct{}

func (TilingAlgorithmV1) Name() string { return "v1_sequential_sort" }

func (TilingAlgorithmV1) BuildExecutionGraph(g *taskgraph.Graph, tree *octree.Tree, cfg Config, batch *data.PointBatch, batchIndex uint64, stats *Stats) {
	g.SubmitTask(func(tc *taskgraph.TaskContext) error {
		return refineSubtree(tc, tree, cfg, octree.RootKey, batch, batchIndex, stats)
	})
}
