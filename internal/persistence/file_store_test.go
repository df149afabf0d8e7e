package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/octree"
)

func testSchema(t *testing.T) *data.Schema {
	t.Helper()
	s, err := data.NewSchema([]data.AttributeKind{
		data.AttrPositionCartesian,
		data.AttrColorPacked,
		data.AttrIntensity,
		data.AttrClassification,
	})
	require.NoError(t, err)
	return s
}

func TestStoreAndLoadRoundTrip(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	origin := geometry.Vec3{}
	store, err := NewFileNodeStore(dir, schema, origin, 0.001, AbortIfExists)
	require.NoError(t, err)

	batch := data.NewPointBatch(schema)
	batch.Add(geometry.Vec3{X: 1.234, Y: -5.6, Z: 0}, 0x112233, 0, 10, 2, [2]int8{0, 0})
	batch.Add(geometry.Vec3{X: -1e6, Y: 1e7, Z: 42.5}, 0xffeedd, 0, 20, 3, [2]int8{1, 2})

	require.NoError(t, store.StorePoints(octree.RootKey, batch))

	loaded, err := store.LoadPoints(octree.RootKey)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Count())

	for i := 0; i < batch.Count(); i++ {
		want := batch.At(i)
		got := loaded.At(i)
		assert.InDelta(t, want.Position.X, got.Position.X, 0.0005)
		assert.InDelta(t, want.Position.Y, got.Position.Y, 0.0005)
		assert.InDelta(t, want.Position.Z, got.Position.Z, 0.0005)
		assert.Equal(t, want.ColorPacked, got.ColorPacked)
		assert.Equal(t, want.Intensity, got.Intensity)
		assert.Equal(t, want.Classification, got.Classification)
	}
}

func TestStorePointsAppendsAcrossCalls(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	store, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	require.NoError(t, err)

	first := data.NewPointBatch(schema)
	first.Add(geometry.Vec3{X: 1, Y: 1, Z: 1}, 0, 0, 0, 0, [2]int8{})
	second := data.NewPointBatch(schema)
	second.Add(geometry.Vec3{X: 2, Y: 2, Z: 2}, 0, 0, 0, 0, [2]int8{})

	require.NoError(t, store.StorePoints("3", first))
	require.NoError(t, store.StorePoints("3", second))

	loaded, err := store.LoadPoints("3")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Count())
}

func TestAbortIfExistsRejectsNonEmptyDirectory(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	store, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	require.NoError(t, err)
	b := data.NewPointBatch(schema)
	b.Add(geometry.Vec3{X: 0, Y: 0, Z: 0}, 0, 0, 0, 0, [2]int8{})
	require.NoError(t, store.StorePoints(octree.RootKey, b))

	_, err = NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	assert.Error(t, err)
}

func TestOverwriteClearsExistingFiles(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	store, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	require.NoError(t, err)
	b := data.NewPointBatch(schema)
	b.Add(geometry.Vec3{X: 0, Y: 0, Z: 0}, 0, 0, 0, 0, [2]int8{})
	require.NoError(t, store.StorePoints(octree.RootKey, b))

	store2, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, Overwrite)
	require.NoError(t, err)
	loaded, err := store2.LoadPoints(octree.RootKey)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Count())
}

func TestFinalizeWritesIndex(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	store, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	require.NoError(t, err)

	b := data.NewPointBatch(schema)
	b.Add(geometry.Vec3{X: 0, Y: 0, Z: 0}, 0, 0, 0, 0, [2]int8{})
	b.Add(geometry.Vec3{X: 1, Y: 1, Z: 1}, 0, 0, 0, 0, [2]int8{})
	require.NoError(t, store.StorePoints(octree.RootKey, b))

	root := geometry.AABB{Min: geometry.Vec3{}, Max: geometry.Vec3{X: 10, Y: 10, Z: 10}}
	require.NoError(t, store.Finalize(root, 0.5, 4))

	raw, err := os.ReadFile(filepath.Join(dir, "cloud.js"))
	require.NoError(t, err)

	var idx treeIndex
	require.NoError(t, json.Unmarshal(raw, &idx))
	_, err = uuid.Parse(store.runID)
	assert.NoError(t, err)
	assert.NotContains(t, string(raw), "run_id")

	err = store.Finalize(root, 0.5, 4)
	assert.Error(t, err)
}

func TestFinalizeOrdersNodesDeterministically(t *testing.T) {
	schema := testSchema(t)
	dir := t.TempDir()
	store, err := NewFileNodeStore(dir, schema, geometry.Vec3{}, 0.01, AbortIfExists)
	require.NoError(t, err)

	b := data.NewPointBatch(schema)
	b.Add(geometry.Vec3{X: 0, Y: 0, Z: 0}, 0, 0, 0, 0, [2]int8{})
	for _, key := range []octree.NodeKey{"7", "1", octree.RootKey, "3"} {
		require.NoError(t, store.StorePoints(key, b))
	}

	root := geometry.AABB{Min: geometry.Vec3{}, Max: geometry.Vec3{X: 10, Y: 10, Z: 10}}
	require.NoError(t, store.Finalize(root, 0.5, 4))

	raw, err := os.ReadFile(filepath.Join(dir, "cloud.js"))
	require.NoError(t, err)
	var idx treeIndex
	require.NoError(t, json.Unmarshal(raw, &idx))

	var gotKeys []string
	for _, n := range idx.Nodes {
		gotKeys = append(gotKeys, n.Key)
	}
	var wantKeys []string
	for _, n := range idx.Nodes {
		wantKeys = append(wantKeys, n.Key)
	}
	sort.Strings(wantKeys)
	assert.Equal(t, wantKeys, gotKeys)
}
