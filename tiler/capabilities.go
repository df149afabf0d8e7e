package tiler

import (
	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// PointReader is the external collaborator the core consumes instead of
// implementing per-format parsing itself (§1 "explicitly out of scope":
// LAS/LAZ/PLY/PTX/XYZ/BIN readers, CRS transforms). A real binary wires a
// concrete reader per input format; this module only depends on the shape.
type PointReader interface {
	GetAABB() (geometry.AABB, error)
	NumPoints() (uint64, error)
	// ReadPointBatch returns the next batch; an empty, zero-count batch
	// signals end of stream (§3 "Empty batch signals end of stream").
	ReadPointBatch() (*data.PointBatch, error)
	Close() error
}

// CoordinateTransform is the external CRS-transform collaborator (§1,
// §6). The core never calls it directly — PointReader implementations
// apply it while producing batches — but the capability is declared here
// so a concrete binary has a documented seam to plug one in.
type CoordinateTransform interface {
	ConvertToTargetCRS(p geometry.Vec3, sourceSRID int) (geometry.Vec3, error)
}
