package tiling

import (
	"sync"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
	"github.com/lodtiler/octiler/internal/octree"
)

// scatterByOctantParallel implements §4.2.1's per-node phases 1-2: a
// parallel index pass that computes each point's octant in disjoint chunks
// with no write contention, followed by a single-threaded scatter into the
// eight per-octant buffers (done on one worker, per the spec, to avoid
// write contention on the destination batches).
func scatterByOctantParallel(batch *data.PointBatch, bounds geometry.AABB, concurrency int) [8]*data.PointBatch {
	var out [8]*data.PointBatch
	n := batch.Count()
	if n == 0 {
		return out
	}

	octants := make([]uint8, n)
	forEachChunk(n, concurrency, func(start, end int) {
		for i := start; i < end; i++ {
			p := geometry.Vec3{X: batch.PosX[i], Y: batch.PosY[i], Z: batch.PosZ[i]}
			octants[i] = bounds.Octant(p)
		}
	})

	var counts [8]int
	for _, o := range octants {
		counts[o]++
	}
	for o := 0; o < 8; o++ {
		if counts[o] > 0 {
			out[o] = data.NewPointBatch(batch.Schema)
			out[o].Reserve(counts[o])
		}
	}
	for i := 0; i < n; i++ {
		out[octants[i]].AddPoint(batch.At(i))
	}
	return out
}

// targetKey walks bounds down depth levels towards p, returning the key of
// the node that would contain p at that depth.
func targetKey(p geometry.Vec3, bounds geometry.AABB, depth int) octree.NodeKey {
	key := octree.RootKey
	b := bounds
	for d := 0; d < depth; d++ {
		o := b.Octant(p)
		key = key.Child(o)
		b = b.ChildBounds(o)
	}
	return key
}

// scatterToTargetDepth implements TilingAlgorithmV2's phases 1-2: label
// every point with its node path at targetDepth, then scatter into
// per-node contiguous batches via a parallel counting sort. The only
// single-threaded step is tallying per-chunk counts into per-chunk,
// per-key write offsets — work proportional to chunks x distinct keys, not
// to the point count, so there is no serial merge of the data itself.
func scatterToTargetDepth(batch *data.PointBatch, rootBounds geometry.AABB, targetDepth int, concurrency int) map[octree.NodeKey]*data.PointBatch {
	result := make(map[octree.NodeKey]*data.PointBatch)
	n := batch.Count()
	if n == 0 {
		return result
	}
	if targetDepth == 0 {
		result[octree.RootKey] = batch
		return result
	}

	ranges := chunkRanges(n, concurrency)
	keys := make([]octree.NodeKey, n)
	chunkCounts := make([]map[octree.NodeKey]int, len(ranges))

	var wg sync.WaitGroup
	for ci, r := range ranges {
		wg.Add(1)
		go func(ci int, r [2]int) {
			defer wg.Done()
			counts := make(map[octree.NodeKey]int)
			for i := r[0]; i < r[1]; i++ {
				p := geometry.Vec3{X: batch.PosX[i], Y: batch.PosY[i], Z: batch.PosZ[i]}
				k := targetKey(p, rootBounds, targetDepth)
				keys[i] = k
				counts[k]++
			}
			chunkCounts[ci] = counts
		}(ci, r)
	}
	wg.Wait()

	// Serial only in the number of (chunk, key) pairs: accumulate each
	// key's running total across chunks to derive per-chunk write offsets.
	perChunkOffset := make([]map[octree.NodeKey]int, len(ranges))
	globalCounts := make(map[octree.NodeKey]int)
	for ci := range ranges {
		perChunkOffset[ci] = make(map[octree.NodeKey]int, len(chunkCounts[ci]))
		for k, c := range chunkCounts[ci] {
			perChunkOffset[ci][k] = globalCounts[k]
			globalCounts[k] += c
		}
	}

	for k, c := range globalCounts {
		b := data.NewPointBatch(batch.Schema)
		b.Grow(c)
		result[k] = b
	}

	wg.Add(len(ranges))
	for ci, r := range ranges {
		go func(ci int, r [2]int) {
			defer wg.Done()
			cursor := make(map[octree.NodeKey]int, len(chunkCounts[ci]))
			for i := r[0]; i < r[1]; i++ {
				k := keys[i]
				pos := perChunkOffset[ci][k] + cursor[k]
				cursor[k]++
				result[k].Set(pos, batch.At(i))
			}
		}(ci, r)
	}
	wg.Wait()

	return result
}

// chunkRanges splits [0, n) into up to concurrency contiguous, disjoint
// half-open ranges.
func chunkRanges(n, concurrency int) [][2]int {
	workers := concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	size := (n + workers - 1) / workers
	var ranges [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}

func forEachChunk(n, concurrency int, fn func(start, end int)) {
	ranges := chunkRanges(n, concurrency)
	var wg sync.WaitGroup
	wg.Add(len(ranges))
	for _, r := range ranges {
		go func(r [2]int) {
			defer wg.Done()
			fn(r[0], r[1])
		}(r)
	}
	wg.Wait()
}
