package tempspill

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/octree"
)

func schema(t *testing.T) *data.Schema {
	t.Helper()
	s, err := data.NewSchema([]data.AttributeKind{data.AttrPositionCartesian, data.AttrIntensity})
	require.NoError(t, err)
	return s
}

func TestSpillAndPageInRoundTrip(t *testing.T) {
	sc := schema(t)
	store, err := Open(filepath.Join(t.TempDir(), "scratch.db"), false)
	require.NoError(t, err)
	defer store.Close()

	batch := data.NewPointBatch(sc)
	batch.Add(geometry.Vec3{X: 1, Y: 2, Z: 3}, 0, 0, 7, 0, [2]int8{})
	key := octree.NodeKey("12")

	require.NoError(t, store.Spill(key, batch))

	out, err := store.PageIn(key, sc)
	require.NoError(t, err)
	require.Equal(t, 1, out.Count())
	assert.Equal(t, uint16(7), out.At(0).Intensity)
}

func TestPageInUnknownKeyReturnsEmptyBatch(t *testing.T) {
	sc := schema(t)
	store, err := Open(filepath.Join(t.TempDir(), "scratch.db"), true)
	require.NoError(t, err)
	defer store.Close()

	out, err := store.PageIn(octree.NodeKey("7"), sc)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count())
}

func TestSpillWithCompressionRoundTrip(t *testing.T) {
	sc := schema(t)
	store, err := Open(filepath.Join(t.TempDir(), "scratch.db"), true)
	require.NoError(t, err)
	defer store.Close()

	batch := data.NewPointBatch(sc)
	for i := 0; i < 50; i++ {
		batch.Add(geometry.Vec3{X: float64(i), Y: 0, Z: 0}, 0, 0, uint16(i), 0, [2]int8{})
	}
	key := octree.NodeKey("0")
	require.NoError(t, store.Spill(key, batch))

	out, err := store.PageIn(key, sc)
	require.NoError(t, err)
	require.Equal(t, 50, out.Count())
	assert.Equal(t, uint16(49), out.At(49).Intensity)
}

func TestEvictRemovesPage(t *testing.T) {
	sc := schema(t)
	store, err := Open(filepath.Join(t.TempDir(), "scratch.db"), false)
	require.NoError(t, err)
	defer store.Close()

	batch := data.NewPointBatch(sc)
	batch.Add(geometry.Vec3{X: 1, Y: 1, Z: 1}, 0, 0, 1, 0, [2]int8{})
	key := octree.NodeKey("5")
	require.NoError(t, store.Spill(key, batch))
	require.NoError(t, store.Evict(key))

	out, err := store.PageIn(key, sc)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count())
}
