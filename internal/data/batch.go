package data

import "github.com/lodtiler/octiler/internal/geometry"

// PointBatch is a columnar buffer of points sharing one Schema. An empty
// batch signals end of stream from a PointReader (§3).
type PointBatch struct {
	Schema *Schema

	PosX, PosY, PosZ []float64
	ColorPacked      []uint32
	ColorFromInt     []uint32
	Intensity        []uint16
	Classification   []uint8
	NormalOct16      [][2]int8

	// Index carries each point's stable within-batch sequence number,
	// used by sampling strategies for tie-breaking (§4.2.1).
	Index []uint64
}

// NewPointBatch builds an empty batch under the given schema.
func NewPointBatch(schema *Schema) *PointBatch {
	return &PointBatch{Schema: schema}
}

func (b *PointBatch) Count() int { return len(b.PosX) }

// Add appends a single point's fields to the batch, assigning it the next
// sequence index.
func (b *PointBatch) Add(p geometry.Vec3, colorPacked, colorFromIntensity uint32, intensity uint16, classification uint8, normal [2]int8) {
	b.PosX = append(b.PosX, p.X)
	b.PosY = append(b.PosY, p.Y)
	b.PosZ = append(b.PosZ, p.Z)
	b.ColorPacked = append(b.ColorPacked, colorPacked)
	b.ColorFromInt = append(b.ColorFromInt, colorFromIntensity)
	b.Intensity = append(b.Intensity, intensity)
	b.Classification = append(b.Classification, classification)
	b.NormalOct16 = append(b.NormalOct16, normal)
	b.Index = append(b.Index, uint64(len(b.Index)))
}

// AddPoint appends a fully materialized Point, preserving its Index field
// verbatim (used when re-inserting points that already carry a stable
// batch-wide sequence number, e.g. during routing/scatter).
func (b *PointBatch) AddPoint(p Point) {
	b.PosX = append(b.PosX, p.Position.X)
	b.PosY = append(b.PosY, p.Position.Y)
	b.PosZ = append(b.PosZ, p.Position.Z)
	b.ColorPacked = append(b.ColorPacked, p.ColorPacked)
	b.ColorFromInt = append(b.ColorFromInt, p.ColorFromIntensity)
	b.Intensity = append(b.Intensity, p.Intensity)
	b.Classification = append(b.Classification, p.Classification)
	b.NormalOct16 = append(b.NormalOct16, p.NormalOct16)
	b.Index = append(b.Index, p.Index)
}

// Append moves every point of other onto the end of b.
func (b *PointBatch) Append(other *PointBatch) {
	b.PosX = append(b.PosX, other.PosX...)
	b.PosY = append(b.PosY, other.PosY...)
	b.PosZ = append(b.PosZ, other.PosZ...)
	b.ColorPacked = append(b.ColorPacked, other.ColorPacked...)
	b.ColorFromInt = append(b.ColorFromInt, other.ColorFromInt...)
	b.Intensity = append(b.Intensity, other.Intensity...)
	b.Classification = append(b.Classification, other.Classification...)
	b.NormalOct16 = append(b.NormalOct16, other.NormalOct16...)
	b.Index = append(b.Index, other.Index...)
}

// At materializes the i-th record as a Point.
func (b *PointBatch) At(i int) Point {
	return Point{
		Position:           geometry.Vec3{X: b.PosX[i], Y: b.PosY[i], Z: b.PosZ[i]},
		ColorPacked:        b.ColorPacked[i],
		ColorFromIntensity: b.ColorFromInt[i],
		Intensity:          b.Intensity[i],
		Classification:     b.Classification[i],
		NormalOct16:        b.NormalOct16[i],
		Index:              b.Index[i],
	}
}

// Reserve preallocates capacity for n additional records, avoiding repeated
// grow-and-copy during scatter phases.
func (b *PointBatch) Reserve(n int) {
	b.PosX = append(make([]float64, 0, n), b.PosX...)
	b.PosY = append(make([]float64, 0, n), b.PosY...)
	b.PosZ = append(make([]float64, 0, n), b.PosZ...)
	b.ColorPacked = append(make([]uint32, 0, n), b.ColorPacked...)
	b.ColorFromInt = append(make([]uint32, 0, n), b.ColorFromInt...)
	b.Intensity = append(make([]uint16, 0, n), b.Intensity...)
	b.Classification = append(make([]uint8, 0, n), b.Classification...)
	b.NormalOct16 = append(make([][2]int8, 0, n), b.NormalOct16...)
	b.Index = append(make([]uint64, 0, n), b.Index...)
}

// Grow replaces every column with a fresh, zero-valued slice of length n.
// It is meant for batches built by parallel writers that fill positions by
// index via Set, never by Add/AddPoint; calling Grow on a batch that
// already holds points discards them.
func (b *PointBatch) Grow(n int) {
	b.PosX = make([]float64, n)
	b.PosY = make([]float64, n)
	b.PosZ = make([]float64, n)
	b.ColorPacked = make([]uint32, n)
	b.ColorFromInt = make([]uint32, n)
	b.Intensity = make([]uint16, n)
	b.Classification = make([]uint8, n)
	b.NormalOct16 = make([][2]int8, n)
	b.Index = make([]uint64, n)
}

// Set writes p at index i. i must be within a length established by Grow;
// since each index is owned by exactly one writer, concurrent Set calls at
// distinct indices need no synchronization.
func (b *PointBatch) Set(i int, p Point) {
	b.PosX[i] = p.Position.X
	b.PosY[i] = p.Position.Y
	b.PosZ[i] = p.Position.Z
	b.ColorPacked[i] = p.ColorPacked
	b.ColorFromInt[i] = p.ColorFromIntensity
	b.Intensity[i] = p.Intensity
	b.Classification[i] = p.Classification
	b.NormalOct16[i] = p.NormalOct16
	b.Index[i] = p.Index
}

// SplitByOctant moves every point of b into one of eight batches according
// to its octant within bounds, consuming b. Each returned batch is nil if no
// point was routed there.
func (b *PointBatch) SplitByOctant(bounds geometry.AABB) [8]*PointBatch {
	var out [8]*PointBatch
	var counts [8]int
	n := b.Count()
	octants := make([]uint8, n)
	for i := 0; i < n; i++ {
		o := bounds.Octant(geometry.Vec3{X: b.PosX[i], Y: b.PosY[i], Z: b.PosZ[i]})
		octants[i] = o
		counts[o]++
	}
	for o := 0; o < 8; o++ {
		if counts[o] > 0 {
			out[o] = NewPointBatch(b.Schema)
			out[o].Reserve(counts[o])
		}
	}
	for i := 0; i < n; i++ {
		out[octants[i]].AddPoint(b.At(i))
	}
	return out
}
