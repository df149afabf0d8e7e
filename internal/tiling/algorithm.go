// Package tiling implements the two TilingAlgorithm strategies of §4.2: the
// capability that turns one incoming PointBatch into task-graph work that
// routes its points into the live octree.
package tiling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/taskgraph"
)

// Algorithm is the TilingAlgorithm strategy interface of §4.2:
// BuildExecutionGraph inserts tasks into g; the caller (the Tiler driver)
// runs g and joins.
type Algorithm interface {
	Name() string
	BuildExecutionGraph(g *taskgraph.Graph, tree *octree.Tree, cfg Config, batch *data.PointBatch, batchIndex uint64, stats *Stats)
}
