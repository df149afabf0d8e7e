// Package data holds the fixed-schema point record and the columnar batch
// type the rest of the tiling engine moves points around in.
package data

import "github.com/lodtiler/octiler/internal/geometry"

// Point is the materialized, row-oriented view of one record of a PointBatch.
// The backing storage is columnar (see PointBatch); Point is what sampling
// strategies and persistence codecs operate on one record at a time.
type Point struct {
	Position geometry.Vec3

	ColorPacked         uint32 // 0xRRGGBB
	ColorFromIntensity  uint32 // grayscale ramp derived from Intensity, 0xRRGGBB
	Intensity           uint16
	Classification      uint8
	NormalOct16         [2]int8

	// Index is the point's position in its originating batch. Sampling
	// strategies use it as the tie-break key: among candidates within
	// spacing of each other, the earlier index wins, and ties are stable.
	Index uint64
}
