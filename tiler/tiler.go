// Package tiler wires the core capabilities (octree, sampling, task graph,
// persistence, progress) into the single driver a caller actually runs
// (§4.1). It depends on PointReader/CoordinateTransform rather than
// implementing per-format parsing or CRS conversion itself.
package tiler

import (
	"context"
	"fmt"
	"os"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/obslog"
	"github.com/lodtiler/octiler/internal/octree"
	"github.com/lodtiler/octiler/internal/persistence"
	"github.com/lodtiler/octiler/internal/persistence/tempspill"
	"github.com/lodtiler/octiler/internal/progress"
	"github.com/lodtiler/octiler/internal/sampling"
	"github.com/lodtiler/octiler/internal/taskgraph"
	"github.com/lodtiler/octiler/internal/tilererr"
	"github.com/lodtiler/octiler/internal/tiling"
)

// Summary is Run's return value: the run totals plus one entry per added
// source (§4.1.1).
type Summary struct {
	Processed int64
	Accepted  int64
	Rejected  int64
	Sources   []SourceSummary
}

// Tiler is the out-of-core tiling driver: add_source, then Run drives
// add(batch)/needs_flush()/flush()/close() over every
// registered source in turn (§4.1).
type Tiler struct {
	cfg *Config

	sources []*sourceRecord

	schema   *data.Schema
	strategy sampling.Strategy
	algo     tiling.Algorithm
	tree     *octree.Tree
	store    *persistence.FileNodeStore
	spill    *tempspill.Store
	spillDir string

	stats      *tiling.Stats
	reporter   *progress.Reporter
	throughput *progress.ThroughputCounter
	totals     *progress.Totals

	log *obslog.Logger

	batchIndex  uint64
	rootBounds  geometry.AABB
	spacing     float64
	initialized bool
	closed      bool
}

// New validates cfg and prepares a driver. Sources are added afterward via
// AddSource; the tree is not materialized until Run, since the root AABB is
// only known once every source has reported its bounds (§3 lifecycle).
func New(cfg *Config) (*Tiler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schema, err := data.NewSchema(cfg.Attributes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tilererr.ErrConfiguration, err)
	}
	return &Tiler{
		cfg:        cfg.Copy(),
		schema:     schema,
		stats:      &tiling.Stats{},
		reporter:   progress.NewReporter(),
		throughput: progress.NewThroughputCounter(),
		totals:     progress.NewTotals(),
		log:        obslog.New("tiler"),
	}, nil
}

// AddSource registers reader under name. Reading does not begin until Run.
func (t *Tiler) AddSource(name string, reader PointReader) {
	t.sources = append(t.sources, &sourceRecord{Name: name, Reader: reader})
}

// Run drives every added source to completion: merges their bounds into the
// root AABB, materializes the tree and node store, then ingests each source's
// batches until Close writes the final tree index.
func (t *Tiler) Run(ctx context.Context) (Summary, error) {
	if err := t.initialize(); err != nil {
		return Summary{}, err
	}

	for _, src := range t.sources {
		if err := t.runSource(ctx, src); err != nil {
			if tilererr.IsFatal(err) {
				return Summary{}, err
			}
			t.log.Printf("source %s: %v", src.Name, err)
		}
	}

	if err := t.close(); err != nil {
		return Summary{}, err
	}
	return t.summary(), nil
}

func (t *Tiler) initialize() error {
	if t.initialized {
		return nil
	}
	if len(t.sources) == 0 {
		return fmt.Errorf("%w: no sources added", tilererr.ErrConfiguration)
	}

	var bounds geometry.AABB
	haveBounds := false
	for _, src := range t.sources {
		b, err := src.Reader.GetAABB()
		if err != nil {
			return fmt.Errorf("%w: source %s: %v", tilererr.ErrReader, src.Name, err)
		}
		if !haveBounds {
			bounds = b
			haveBounds = true
			continue
		}
		bounds = bounds.Merge(b)
	}
	t.rootBounds = bounds.MakeCubic()
	t.spacing = t.cfg.SpacingFor(t.rootBounds.Diagonal())

	t.strategy = newStrategy(t.cfg.Quality, t.spacing, t.cfg.MaxPointsPerNode)
	t.algo = newAlgorithm(t.cfg)
	t.tree = octree.NewTree(t.rootBounds, t.schema)

	store, err := persistence.NewFileNodeStore(t.cfg.OutputDir, t.schema, t.rootBounds.Min, t.cfg.Scale, t.cfg.StoreOption)
	if err != nil {
		return err
	}
	t.store = store

	// spillDir holds scratch occupancy state for nodes that get flushed
	// mid-run; it never contributes to the final node files or cloud.js
	// (§5 memory governor) and is removed in close().
	spillDir, err := os.MkdirTemp("", "octiler-spill-")
	if err != nil {
		return fmt.Errorf("%w: creating spill directory: %v", tilererr.ErrPersistence, err)
	}
	spill, err := tempspill.Open(spillDir+"/spill.db", true)
	if err != nil {
		os.RemoveAll(spillDir)
		return fmt.Errorf("%w: opening spill store: %v", tilererr.ErrPersistence, err)
	}
	t.spill = spill
	t.spillDir = spillDir

	t.initialized = true
	return nil
}

func newStrategy(q Quality, spacing float64, maxPointsPerNode int) sampling.Strategy {
	switch q {
	case QualityGridCentered:
		return &sampling.GridCentered{RootSpacing: spacing}
	case QualityMinDistance:
		return &sampling.MinDistance{RootSpacing: spacing}
	default:
		return &sampling.RandomSorted{MaxPointsPerNode: int32(maxPointsPerNode)}
	}
}

func newAlgorithm(cfg *Config) tiling.Algorithm {
	if cfg.Algorithm == AlgorithmV2 {
		desired := cfg.DesiredParallelism
		if desired <= 0 {
			desired = cfg.concurrencyOrDefault()
		}
		return tiling.TilingAlgorithmV2{DesiredParallelism: desired}
	}
	return tiling.TilingAlgorithmV1{}
}

func (t *Tiler) runSource(ctx context.Context, src *sourceRecord) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := src.Reader.ReadPointBatch()
		if err != nil {
			return fmt.Errorf("%w: source %s: %v", tilererr.ErrReader, src.Name, err)
		}
		if batch == nil || batch.Count() == 0 {
			break
		}
		if err := t.add(ctx, src, batch); err != nil {
			return err
		}
		if t.needsFlush() {
			if err := t.flush(); err != nil {
				return err
			}
		}
	}
	return src.Reader.Close()
}

// add ingests one batch through the configured algorithm's execution graph,
// updating per-source and run-wide bookkeeping (§4.1, §4.2).
func (t *Tiler) add(ctx context.Context, src *sourceRecord, batch *data.PointBatch) error {
	t.batchIndex++
	before := t.stats.Accepted()
	beforeRejected := t.stats.Rejected()

	tilingCfg := tiling.Config{
		Strategy:         t.strategy,
		RootSpacing:      t.spacing,
		MaxPointsPerNode: t.cfg.MaxPointsPerNode,
		MaxDepth:         t.cfg.MaxDepth,
		Concurrency:      t.cfg.concurrencyOrDefault(),
		Spill:            t.spill,
	}

	g := taskgraph.NewGraph(t.cfg.concurrencyOrDefault())
	t.algo.BuildExecutionGraph(g, t.tree, tilingCfg, batch, t.batchIndex, t.stats)
	if err := g.Run(ctx); err != nil {
		return fmt.Errorf("%w: %v", tilererr.ErrPersistence, err)
	}

	t.stats.AddProcessed(batch.Count())
	t.totals.AddProcessed(int64(batch.Count()))
	accepted := t.stats.Accepted() - before
	rejected := t.stats.Rejected() - beforeRejected
	t.totals.AddAccepted(accepted)
	src.Accepted += accepted
	src.Rejected += rejected
	for i := 0; i < batch.Count(); i++ {
		src.update(batch.At(i).Position)
	}

	t.throughput.Add(int64(batch.Count()))
	t.reporter.Update("indexing", t.stats.Processed(), 0)
	return nil
}

// needsFlush reports whether the tree's resident accepted points exceed the
// configured memory ceiling (§4.1 memory governor).
func (t *Tiler) needsFlush() bool {
	if t.cfg.MaxMemoryUsageMiB <= 0 {
		return false
	}
	width := int64(t.schema.RecordByteWidth())
	var residentBytes int64
	for _, k := range t.tree.Nodes() {
		n, ok := t.tree.Get(k)
		if !ok {
			continue
		}
		residentBytes += int64(n.ResidentCount()) * width
	}
	return residentBytes > t.cfg.MaxMemoryUsageMiB*1024*1024
}

// flush persists every node's resident accepted points, folds them into the
// node's spilled occupancy history so a later re-sampling pass still sees
// every point accepted so far (§5 memory governor, §8 determinism), and
// then drops them from memory, leaving the schema in place so later batches
// can keep appending (§4.1 "flush()").
func (t *Tiler) flush() error {
	for _, k := range t.tree.Nodes() {
		n, ok := t.tree.Get(k)
		if !ok {
			continue
		}
		batch := n.Accepted()
		if batch.Count() == 0 {
			continue
		}
		if err := t.store.StorePoints(k, batch); err != nil {
			return err
		}
		if err := t.spillMerge(k, batch); err != nil {
			return err
		}
		n.RecordFlush(batch.Count())
		n.DropAccepted(t.schema)
	}
	t.reporter.Update("flushing", 1, 1)
	return nil
}

// spillMerge folds batch into whatever has already been spilled for key, so
// a node flushed more than once keeps its full accepted history available
// to ProcessNode for re-sampling.
func (t *Tiler) spillMerge(key octree.NodeKey, batch *data.PointBatch) error {
	prior, err := t.spill.PageIn(key, t.schema)
	if err != nil {
		return fmt.Errorf("%w: paging in spilled points for %s: %v", tilererr.ErrPersistence, key, err)
	}
	merged := data.NewPointBatch(t.schema)
	merged.Append(prior)
	merged.Append(batch)
	if err := t.spill.Spill(key, merged); err != nil {
		return fmt.Errorf("%w: spilling points for %s: %v", tilererr.ErrPersistence, key, err)
	}
	return nil
}

// close flushes any remaining resident points, writes the tree index, and
// tears down the scratch spill store (§5 "never in final index").
func (t *Tiler) close() error {
	if t.closed {
		return nil
	}
	if err := t.flush(); err != nil {
		return err
	}
	if err := t.store.Finalize(t.rootBounds, t.spacing, t.cfg.HierarchyStepSize); err != nil {
		return err
	}
	if t.spill != nil {
		if err := t.spill.Close(); err != nil {
			t.log.Printf("closing spill store: %v", err)
		}
		os.RemoveAll(t.spillDir)
	}
	t.closed = true
	t.log.Printf("close: %s", t.totals.Summary())
	return nil
}

func (t *Tiler) summary() Summary {
	s := Summary{
		Processed: t.stats.Processed(),
		Accepted:  t.stats.Accepted(),
		Rejected:  t.stats.Rejected(),
	}
	for _, src := range t.sources {
		s.Sources = append(s.Sources, SourceSummary{
			Name:     src.Name,
			Accepted: src.Accepted,
			Rejected: src.Rejected,
			Bounds:   src.Bounds,
		})
	}
	return s
}
