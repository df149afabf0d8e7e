package sampling

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// MinDistance accepts a candidate iff its distance to every already-accepted
// point at the node is >= spacing at that depth. A spatial hash keyed by
// floor(pos/spacing) gives expected O(1) per query: a candidate only needs
// to be checked against the handful of points in its own cell and the 26
// neighboring cells, never the full accepted set (§4.3).
type MinDistance struct {
	RootSpacing float64
}

func (m *MinDistance) Name() string { return "min_distance" }

func (m *MinDistance) NewSession(bounds geometry.AABB, depth int, existing *data.PointBatch, totalCandidates int, seed uint64) Session {
	spacing := SpacingAtDepth(m.RootSpacing, depth)
	s := &minDistanceSession{
		origin:  bounds.Min,
		spacing: spacing,
		buckets: make(map[uint64][]data.Point),
	}
	if existing != nil {
		for i := 0; i < existing.Count(); i++ {
			s.insert(existing.At(i))
		}
	}
	return s
}

type minDistanceSession struct {
	origin  geometry.Vec3
	spacing float64
	buckets map[uint64][]data.Point
}

// bucketKey hashes a cell index with xxhash rather than using the [3]int64
// directly as a map key: the pack's own choice of fast non-cryptographic
// hash (github.com/cespare/xxhash/v2) for bucketing spatial coordinates.
func bucketKey(idx [3]int64) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(idx[0]))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(idx[1]))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(idx[2]))
	return xxhash.Sum64(buf[:])
}

func (s *minDistanceSession) insert(p data.Point) {
	idx := cellIndex(p.Position, s.origin, s.spacing)
	key := bucketKey(idx)
	s.buckets[key] = append(s.buckets[key], p)
}

func (s *minDistanceSession) Accept(p data.Point) bool {
	if s.spacing <= 0 {
		return true
	}
	idx := cellIndex(p.Position, s.origin, s.spacing)
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for dz := int64(-1); dz <= 1; dz++ {
				neighbor := [3]int64{idx[0] + dx, idx[1] + dy, idx[2] + dz}
				for _, other := range s.buckets[bucketKey(neighbor)] {
					if p.Position.Distance(other.Position) < s.spacing {
						return false
					}
				}
			}
		}
	}
	return true
}

func (s *minDistanceSession) Commit(p data.Point) {
	s.insert(p)
}
