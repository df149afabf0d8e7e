package sampling

import (
	"math/rand"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// RandomSorted accepts each candidate with a probability derived from the
// node's remaining capacity, preserving density but not spatial uniformity
// (§4.3). It uses reservoir-style selection sampling (Vitter's Algorithm S):
// offered n candidates and needing to pick up to k = remaining capacity, the
// probability of accepting the i-th remaining candidate is k_remaining /
// n_remaining, decremented on every candidate examined and on every
// acceptance. This lets exactly k acceptances fall out of one linear pass
// with no upfront shuffle.
//
// §9's open question leaves the exact acceptance distribution unspecified
// but requires deterministic seeding for the determinism property; this
// seeds math/rand per session from the caller-supplied seed (node key +
// batch index hash, see tiling package), so two runs over identical input
// pick the identical subset.
type RandomSorted struct {
	MaxPointsPerNode int32
}

func (r *RandomSorted) Name() string { return "random_sorted" }

func (r *RandomSorted) NewSession(bounds geometry.AABB, depth int, existing *data.PointBatch, totalCandidates int, seed uint64) Session {
	already := 0
	if existing != nil {
		already = existing.Count()
	}
	remainingCapacity := int(r.MaxPointsPerNode) - already
	if remainingCapacity < 0 {
		remainingCapacity = 0
	}
	return &randomSortedSession{
		rng:               rand.New(rand.NewSource(int64(seed))),
		remainingCapacity: remainingCapacity,
		remainingTotal:    totalCandidates,
	}
}

type randomSortedSession struct {
	rng               *rand.Rand
	remainingCapacity int
	remainingTotal    int
}

func (s *randomSortedSession) Accept(p data.Point) bool {
	if s.remainingCapacity <= 0 || s.remainingTotal <= 0 {
		s.remainingTotal--
		return false
	}
	accept := s.rng.Float64() < float64(s.remainingCapacity)/float64(s.remainingTotal)
	s.remainingTotal--
	if !accept {
		return false
	}
	return true
}

func (s *randomSortedSession) Commit(p data.Point) {
	s.remainingCapacity--
}
