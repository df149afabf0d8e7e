package tiler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/persistence"
)

// fakeReader hands out a fixed sequence of batches, then signals end of
// stream with an empty batch (§3).
type fakeReader struct {
	bounds geometry.AABB
	count  uint64
	pos    int
	pages  []*data.PointBatch
	schema *data.Schema
	closed bool
}

func (r *fakeReader) GetAABB() (geometry.AABB, error) { return r.bounds, nil }
func (r *fakeReader) NumPoints() (uint64, error)      { return r.count, nil }

func (r *fakeReader) ReadPointBatch() (*data.PointBatch, error) {
	if r.pos >= len(r.pages) {
		return data.NewPointBatch(r.schema), nil
	}
	b := r.pages[r.pos]
	r.pos++
	return b, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func baseConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		OutputDir:        t.TempDir(),
		DiagonalFraction: 8,
		MaxDepth:         6,
		MaxPointsPerNode: 4,
		Scale:            0.01,
		Attributes:       []data.AttributeKind{data.AttrPositionCartesian},
		Quality:          QualityMinDistance,
		Algorithm:        AlgorithmV1,
		Concurrency:      2,
		StoreOption:      persistence.AbortIfExists,
		HierarchyStepSize: 4,
	}
}

func lineOnXBatch(schema *data.Schema, n int, span float64) *data.PointBatch {
	b := data.NewPointBatch(schema)
	for i := 0; i < n; i++ {
		x := span * float64(i) / float64(n-1)
		b.Add(geometry.Vec3{X: x, Y: 0, Z: 0}, 0, 0, 0, 0, [2]int8{})
	}
	return b
}

func TestRunLineOnXProducesIndexAndNodeFiles(t *testing.T) {
	cfg := baseConfig(t)
	til, err := New(cfg)
	require.NoError(t, err)

	schema, err := data.NewSchema(cfg.Attributes)
	require.NoError(t, err)

	batch := lineOnXBatch(schema, 20, 10)
	reader := &fakeReader{
		bounds: geometry.AABB{Min: geometry.Vec3{}, Max: geometry.Vec3{X: 10, Y: 0, Z: 0}},
		count:  20,
		pages:  []*data.PointBatch{batch},
		schema: schema,
	}
	til.AddSource("line-on-x", reader)

	summary, err := til.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 20, summary.Accepted+summary.Rejected)
	assert.True(t, reader.closed)
	require.Len(t, summary.Sources, 1)
	assert.Equal(t, "line-on-x", summary.Sources[0].Name)

	_, err = os.Stat(filepath.Join(cfg.OutputDir, "cloud.js"))
	require.NoError(t, err)
}

func TestRunFlushesMidRunWhenMemoryBudgetExceeded(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxMemoryUsageMiB = 1
	cfg.MaxPointsPerNode = 100000
	cfg.Algorithm = AlgorithmV1
	til, err := New(cfg)
	require.NoError(t, err)

	schema, err := data.NewSchema(cfg.Attributes)
	require.NoError(t, err)

	// 50,000 points of 12 bytes each per page: after the second page the
	// resident set (1.2 MB) exceeds the 1 MiB budget, so one flush happens
	// before the third page is ingested.
	var pages []*data.PointBatch
	for p := 0; p < 3; p++ {
		b := data.NewPointBatch(schema)
		for i := 0; i < 50000; i++ {
			b.Add(geometry.Vec3{X: float64(i) / 50000, Y: float64(p) / 3, Z: 0}, 0, 0, 0, 0, [2]int8{})
		}
		pages = append(pages, b)
	}
	reader := &fakeReader{
		bounds: geometry.AABB{Min: geometry.Vec3{}, Max: geometry.Vec3{X: 1, Y: 1, Z: 1}},
		count:  150000,
		pages:  pages,
		schema: schema,
	}
	til.AddSource("multi-batch", reader)

	summary, err := til.Run(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 150000, summary.Accepted+summary.Rejected)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	var binCount int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".bin" {
			binCount++
		}
	}
	assert.Greater(t, binCount, 0)
}

func TestRunRejectsWhenNoSourcesAdded(t *testing.T) {
	cfg := baseConfig(t)
	til, err := New(cfg)
	require.NoError(t, err)

	_, err = til.Run(context.Background())
	assert.Error(t, err)
}
