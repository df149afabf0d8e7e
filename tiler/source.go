package tiler

import "github.com/lodtiler/octiler/internal/geometry"

// sourceRecord tracks one added reader's bookkeeping (§4.1.1): per-source
// accepted/rejected counts and bounds, recorded for the external
// sources.json writer even though writing that file stays out of scope.
type sourceRecord struct {
	Name     string
	Reader   PointReader
	Accepted int64
	Rejected int64
	Bounds   geometry.AABB
	seen     bool
}

// SourceSummary is the read-only view of a sourceRecord returned to callers
// via Run's Summary.
type SourceSummary struct {
	Name     string
	Accepted int64
	Rejected int64
	Bounds   geometry.AABB
}

func (s *sourceRecord) update(p geometry.Vec3) {
	if !s.seen {
		s.Bounds = geometry.NewAABB(p)
		s.seen = true
		return
	}
	s.Bounds = s.Bounds.Update(p)
}
