// Package persistence implements the PointsPersistence node store of §4.4:
// an append-only, per-node binary layout that is bit-exact across runs, plus
// the tree-index sidecar written on Finalize.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/obslog"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/tilererr"
)

// nodeEntry tracks the persisted state of one node file: its running point
// count and the bounds of points actually written, for the final index.
type nodeEntry struct {
	count  int
	bounds geometry.AABB
	seen   bool
}

// FileNodeStore is the bit-exact, file-per-node implementation of
// PointsPersistence. One binary file is written per non-empty node, named by
// the node key's octal string (root = "r"); Finalize writes a JSON tree
// index sidecar alongside them.
type FileNodeStore struct {
	dir    string
	schema *data.Schema
	origin geometry.Vec3
	scale  float64
	runID  string
	log    *obslog.Logger

	mu        sync.Mutex
	nodeLocks map[octree.NodeKey]*sync.Mutex
	index     map[octree.NodeKey]*nodeEntry
	closed    bool
}

// NewFileNodeStore prepares dir for writing under the given store option.
// origin is the tree's global root AABB minimum; every node's positions are
// quantized relative to it, so an ancestor and its descendants decode
// consistently regardless of which node owns a given on-disk min corner.
// Each store is stamped with a fresh run id, logged by Finalize for
// Incremental-run bookkeeping. It never appears in the tree index itself:
// cloud.js must stay byte-identical across reruns of identical input (§8),
// so nothing this random survives into it.
func NewFileNodeStore(dir string, schema *data.Schema, origin geometry.Vec3, scale float64, option StoreOption) (*FileNodeStore, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive, got %v", tilererr.ErrConfiguration, scale)
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %v", tilererr.ErrPersistence, err)
	}

	existing, err := existingNodeFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tilererr.ErrPersistence, err)
	}
	switch option {
	case AbortIfExists:
		if len(existing) > 0 {
			return nil, fmt.Errorf("%w: output directory %s already holds %d node file(s)", tilererr.ErrConfiguration, dir, len(existing))
		}
	case Overwrite:
		for _, name := range existing {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return nil, fmt.Errorf("%w: clearing existing node file %s: %v", tilererr.ErrPersistence, name, err)
			}
		}
	case Incremental:
		// leave existing files in place; StorePoints appends to them.
	default:
		return nil, fmt.Errorf("%w: unknown store option %v", tilererr.ErrConfiguration, option)
	}

	return &FileNodeStore{
		dir:       dir,
		schema:    schema,
		origin:    origin,
		scale:     scale,
		runID:     uuid.NewString(),
		log:       obslog.New("persistence"),
		nodeLocks: make(map[octree.NodeKey]*sync.Mutex),
		index:     make(map[octree.NodeKey]*nodeEntry),
	}, nil
}

func existingNodeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".bin" {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (s *FileNodeStore) nodeFilePath(key octree.NodeKey) string {
	return filepath.Join(s.dir, key.String()+".bin")
}

func (s *FileNodeStore) lockFor(key octree.NodeKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.nodeLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.nodeLocks[key] = l
	}
	return l
}

// StorePoints appends batch's records to key's node file. Serialized per
// node (§5): concurrent calls for the same key block on the node's lock, but
// calls for distinct keys proceed independently.
func (s *FileNodeStore) StorePoints(key octree.NodeKey, batch *data.PointBatch) error {
	if batch == nil || batch.Count() == 0 {
		return nil
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return fmt.Errorf("%w: StorePoints for %s called after Finalize", tilererr.ErrPersistence, key)
	}

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.OpenFile(s.nodeFilePath(key), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("%w: opening node file for %s: %v", tilererr.ErrPersistence, key, err)
	}
	defer f.Close()

	width := s.schema.RecordByteWidth()
	buf := make([]byte, batch.Count()*width)
	for i := 0; i < batch.Count(); i++ {
		encodeRecord(buf[i*width:(i+1)*width], s.schema, batch, i, s.origin, s.scale)
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("%w: writing node file for %s: %v", tilererr.ErrPersistence, key, err)
	}

	s.recordIndex(key, batch)
	return nil
}

func (s *FileNodeStore) recordIndex(key octree.NodeKey, batch *data.PointBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[key]
	if !ok {
		e = &nodeEntry{}
		s.index[key] = e
	}
	e.count += batch.Count()
	for i := 0; i < batch.Count(); i++ {
		p := batch.At(i)
		if !e.seen {
			e.bounds = geometry.NewAABB(p.Position)
			e.seen = true
		} else {
			e.bounds = e.bounds.Update(p.Position)
		}
	}
}

// LoadPoints reads key's entire node file back into a batch, dequantizing
// positions against the store's origin and scale. A node with no file
// yields an empty batch.
func (s *FileNodeStore) LoadPoints(key octree.NodeKey) (*data.PointBatch, error) {
	raw, err := os.ReadFile(s.nodeFilePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return data.NewPointBatch(s.schema), nil
		}
		return nil, fmt.Errorf("%w: reading node file for %s: %v", tilererr.ErrPersistence, key, err)
	}

	width := s.schema.RecordByteWidth()
	if width == 0 || len(raw)%width != 0 {
		return nil, fmt.Errorf("%w: node file for %s has size %d not a multiple of record width %d", tilererr.ErrPersistence, key, len(raw), width)
	}
	n := len(raw) / width
	out := data.NewPointBatch(s.schema)
	out.Reserve(n)
	for i := 0; i < n; i++ {
		decodeRecord(raw[i*width:(i+1)*width], s.schema, s.origin, s.scale, out)
	}
	return out, nil
}

// treeIndex is the JSON sidecar written by Finalize: every emitted node's
// key, point count and packed bounds (§4.4), plus the cloud-level metadata
// a viewer needs to interpret the node files (§6). It intentionally carries
// nothing but deterministic, input-derived fields: re-running Finalize over
// identical input under store_option=overwrite must produce byte-identical
// JSON (§8), so the store's random run_id (logging/incremental-bookkeeping
// only, see runID) never appears here.
type treeIndex struct {
	Bounds            [6]float64    `json:"bounds"`
	Spacing           float64       `json:"spacing"`
	Scale             float64       `json:"scale"`
	Attributes        []string      `json:"attributes"`
	HierarchyStepSize int           `json:"hierarchy_step_size"`
	PointFormat       string        `json:"point_format"`
	Nodes             []nodeSummary `json:"nodes"`
}

type nodeSummary struct {
	Key    string     `json:"key"`
	Points int        `json:"points"`
	Bounds [6]float64 `json:"bounds"`
}

// Finalize writes the tree index sidecar, listing nodes in lexical order of
// their rendered keys. Once called, the store accepts no further
// StorePoints calls.
func (s *FileNodeStore) Finalize(rootBounds geometry.AABB, spacing float64, hierarchyStepSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("%w: Finalize called more than once", tilererr.ErrPersistence)
	}
	s.closed = true

	idx := treeIndex{
		Bounds:            packBounds(rootBounds),
		Spacing:           spacing,
		Scale:             s.scale,
		HierarchyStepSize: hierarchyStepSize,
		PointFormat:       "octiler-binary-v1",
	}
	for _, a := range s.schema.Attributes {
		idx.Attributes = append(idx.Attributes, a.String())
	}

	keys := make([]octree.NodeKey, 0, len(s.index))
	for k := range s.index {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		e := s.index[k]
		idx.Nodes = append(idx.Nodes, nodeSummary{
			Key:    k.String(),
			Points: e.count,
			Bounds: packBounds(e.bounds),
		})
	}

	body, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshaling tree index: %v", tilererr.ErrPersistence, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "cloud.js"), body, 0o666); err != nil {
		return fmt.Errorf("%w: writing tree index: %v", tilererr.ErrPersistence, err)
	}
	s.log.Printf("finalize: run=%s wrote %d node(s) to %s", s.runID, len(idx.Nodes), s.dir)
	return nil
}

func packBounds(b geometry.AABB) [6]float64 {
	return [6]float64{b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z}
}
