package tiling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/sampling"
	"github.com/lodtiler/octiler/internal/taskgraph"
)

func cubeBounds() geometry.AABB {
	return geometry.AABB{Min: geometry.Vec3{}, Max: geometry.Vec3{X: 1, Y: 1, Z: 1}}
}

func cubeCornersBatch(t *testing.T, schema *data.Schema) *data.PointBatch {
	t.Helper()
	b := data.NewPointBatch(schema)
	for _, c := range [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {0, 1, 1}, {1, 1, 1},
	} {
		b.Add(geometry.Vec3{X: c[0], Y: c[1], Z: c[2]}, 0, 0, 0, 0, [2]int8{})
	}
	return b
}

func runAlgorithm(t *testing.T, algo Algorithm, tree *octree.Tree, cfg Config, batch *data.PointBatch, stats *Stats) {
	t.Helper()
	g := taskgraph.NewGraph(4)
	algo.BuildExecutionGraph(g, tree, cfg, batch, 1, stats)
	require.NoError(t, g.Run(context.Background()))
}

func TestV1CubeCornersAllAcceptedAtRoot(t *testing.T) {
	schema, err := data.NewSchema([]data.AttributeKind{data.AttrPositionCartesian})
	require.NoError(t, err)

	tree := octree.NewTree(cubeBounds(), schema)
	cfg := Config{
		Strategy:         &sampling.MinDistance{RootSpacing: 0.5},
		MaxPointsPerNode: 8,
		MaxDepth:         5,
		Concurrency:      4,
	}
	stats := &Stats{}
	batch := cubeCornersBatch(t, schema)
	runAlgorithm(t, TilingAlgorithmV1{}, tree, cfg, batch, stats)

	root, ok := tree.Get(octree.RootKey)
	require.True(t, ok)
	assert.Equal(t, 8, root.AcceptedCount())
	assert.True(t, root.IsLeaf())
	assert.EqualValues(t, 8, stats.Accepted())
}

func TestV1CapacityOverflowDistributesRemainder(t *testing.T) {
	schema, err := data.NewSchema([]data.AttributeKind{data.AttrPositionCartesian})
	require.NoError(t, err)

	tree := octree.NewTree(cubeBounds(), schema)
	cfg := Config{
		Strategy:         &sampling.RandomSorted{MaxPointsPerNode: 100},
		MaxPointsPerNode: 100,
		MaxDepth:         6,
		Concurrency:      4,
	}
	stats := &Stats{}

	batch := data.NewPointBatch(schema)
	var seed uint64 = 12345
	for i := 0; i < 1000; i++ {
		seed = seed*6364136223846793005 + 1
		x := float64(seed%1000) / 1000
		seed = seed*6364136223846793005 + 1
		y := float64(seed%1000) / 1000
		seed = seed*6364136223846793005 + 1
		z := float64(seed%1000) / 1000
		batch.Add(geometry.Vec3{X: x, Y: y, Z: z}, 0, 0, 0, 0, [2]int8{})
	}

	runAlgorithm(t, TilingAlgorithmV1{}, tree, cfg, batch, stats)

	root, ok := tree.Get(octree.RootKey)
	require.True(t, ok)
	assert.Equal(t, 100, root.AcceptedCount())
	assert.EqualValues(t, 1000, stats.Accepted())

	for _, k := range tree.Nodes() {
		if k == octree.RootKey {
			continue
		}
		n, _ := tree.Get(k)
		assert.LessOrEqual(t, n.AcceptedCount(), 100)
	}
}

func TestV2AcceptsEveryPointWithinCapacity(t *testing.T) {
	schema, err := data.NewSchema([]data.AttributeKind{data.AttrPositionCartesian})
	require.NoError(t, err)

	tree := octree.NewTree(cubeBounds(), schema)
	cfg := Config{
		Strategy:         &sampling.GridCentered{RootSpacing: 0.2},
		MaxPointsPerNode: 50,
		MaxDepth:         5,
		Concurrency:      4,
	}
	stats := &Stats{}

	batch := data.NewPointBatch(schema)
	var seed uint64 = 98765
	for i := 0; i < 500; i++ {
		seed = seed*6364136223846793005 + 1
		x := float64(seed%1000) / 1000
		seed = seed*6364136223846793005 + 1
		y := float64(seed%1000) / 1000
		seed = seed*6364136223846793005 + 1
		z := float64(seed%1000) / 1000
		batch.Add(geometry.Vec3{X: x, Y: y, Z: z}, 0, 0, 0, 0, [2]int8{})
	}

	algo := TilingAlgorithmV2{DesiredParallelism: 8}
	runAlgorithm(t, algo, tree, cfg, batch, stats)

	assert.EqualValues(t, 500, stats.Accepted())
	for _, k := range tree.Nodes() {
		n, _ := tree.Get(k)
		assert.LessOrEqual(t, n.AcceptedCount(), 50)
	}
}

func TestTargetDepthCeilLog8(t *testing.T) {
	assert.Equal(t, 0, TilingAlgorithmV2{DesiredParallelism: 1}.TargetDepth())
	assert.Equal(t, 1, TilingAlgorithmV2{DesiredParallelism: 8}.TargetDepth())
	assert.Equal(t, 2, TilingAlgorithmV2{DesiredParallelism: 9}.TargetDepth())
	assert.Equal(t, 2, TilingAlgorithmV2{DesiredParallelism: 64}.TargetDepth())
}
