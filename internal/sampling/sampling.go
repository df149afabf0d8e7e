// Package sampling implements the SamplingStrategy polymorphism of §4.3:
// a closed set of variants deciding, for each candidate point arriving at a
// node, whether it is accepted into that node's LOD sample or routed to a
// child.
//
// Spacing at depth d is root_spacing / 2^d (§4.3); each Strategy is
// constructed once at startup from the run's root spacing and selected by
// Quality (§6 configuration table), then reused read-only across every
// node — per-node working state lives in the Session a Strategy hands out
// via NewSession, so the Strategy value itself stays safe to share across
// concurrent tasks.
package sampling

import (
	"math"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// Strategy is the closed, tagged capability set of §4.3: selection happens
// once at startup. Go has no sum types to monomorphize over without
// losing readability, so this stays a conventional interface.
type Strategy interface {
	// NewSession prepares a sampling pass over one node. existing holds
	// points already accepted at the node (nil/empty for a fresh node).
	// totalCandidates is how many points will be offered to Accept in this
	// session (RandomSorted needs it to size its acceptance probability);
	// seed is this session's deterministic RNG seed, derived by the caller
	// from the node key and batch index so reruns with identical input are
	// reproducible (§4.1 "Determinism").
	NewSession(bounds geometry.AABB, depth int, existing *data.PointBatch, totalCandidates int, seed uint64) Session
	Name() string
}

// Session is the per-node, per-pass working state a Strategy hands out.
// Candidates must be offered in stable batch order, each via exactly one
// Accept call; Commit is then called iff the caller actually adds the
// point to the node's accepted set (§4.3's accept/commit capability).
type Session interface {
	// Accept reports whether p should be accepted into the node's sample.
	// May update session-internal bookkeeping (e.g. candidates examined);
	// must be called exactly once per candidate, in order.
	Accept(p data.Point) bool
	// Commit records that p was accepted, updating whatever working state
	// (occupied cells, spatial hash buckets, remaining budget) the
	// strategy needs for subsequent Accept calls in this session.
	Commit(p data.Point)
}

// SpacingAtDepth halves spacing with each depth increase (§4.3).
func SpacingAtDepth(rootSpacing float64, depth int) float64 {
	s := rootSpacing
	for i := 0; i < depth; i++ {
		s /= 2
	}
	return s
}

func cellIndex(p geometry.Vec3, origin geometry.Vec3, cellSize float64) [3]int64 {
	return [3]int64{
		int64(math.Floor((p.X - origin.X) / cellSize)),
		int64(math.Floor((p.Y - origin.Y) / cellSize)),
		int64(math.Floor((p.Z - origin.Z) / cellSize)),
	}
}
