package sampling

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// GridCentered partitions a node's bounds into a uniform 3D grid with cell
// side equal to spacing at that node's depth, and accepts the first
// candidate to land in each cell, rejecting later candidates in an already
// occupied cell. Deterministic given input order.
//
// Grounded on the teacher's GridNode.pushPointToCell / gridCell occupancy
// check (internal/octree/grid_tree/grid_node.go), generalized from the
// teacher's 2D lat/lon grid into a true 3D occupancy grid over the node's
// cubic bounds and separated from tree topology into a standalone
// sampling strategy.
type GridCentered struct {
	RootSpacing float64
}

func (g *GridCentered) Name() string { return "grid_centered" }

func (g *GridCentered) NewSession(bounds geometry.AABB, depth int, existing *data.PointBatch, totalCandidates int, seed uint64) Session {
	spacing := SpacingAtDepth(g.RootSpacing, depth)
	s := &gridSession{
		origin:   bounds.Min,
		cellSize: spacing,
		occupied: make(map[[3]int64]bool),
	}
	if existing != nil {
		for i := 0; i < existing.Count(); i++ {
			p := existing.At(i)
			s.occupied[cellIndex(p.Position, s.origin, s.cellSize)] = true
		}
	}
	return s
}

type gridSession struct {
	origin   geometry.Vec3
	cellSize float64
	occupied map[[3]int64]bool
}

func (s *gridSession) Accept(p data.Point) bool {
	if s.cellSize <= 0 {
		return true
	}
	return !s.occupied[cellIndex(p.Position, s.origin, s.cellSize)]
}

func (s *gridSession) Commit(p data.Point) {
	if s.cellSize <= 0 {
		return
	}
	s.occupied[cellIndex(p.Position, s.origin, s.cellSize)] = true
}
