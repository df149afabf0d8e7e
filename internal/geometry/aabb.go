package geometry

import "math"

// AABB is an axis-aligned bounding box described by its min and max corners.
type AABB struct {
	Min, Max Vec3
}

// NewAABB builds a degenerate box around a single point, ready for Update calls.
func NewAABB(p Vec3) AABB {
	return AABB{Min: p, Max: p}
}

// Update expands the box to include the given point.
func (b AABB) Update(p Vec3) AABB {
	return AABB{
		Min: Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)},
		Max: Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)},
	}
}

// Merge expands the box to include another box.
func (b AABB) Merge(o AABB) AABB {
	return b.Update(o.Min).Update(o.Max)
}

func (b AABB) Center() Vec3 {
	return Vec3{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

func (b AABB) Size() Vec3 {
	return Vec3{b.Max.X - b.Min.X, b.Max.Y - b.Min.Y, b.Max.Z - b.Min.Z}
}

func (b AABB) Diagonal() float64 {
	s := b.Size()
	return math.Sqrt(s.X*s.X + s.Y*s.Y + s.Z*s.Z)
}

// MakeCubic extends the shortest axes so all three span the longest extent,
// keeping the original center fixed. The result is always a cube, so octant
// subdivision produces eight congruent cubes.
func (b AABB) MakeCubic() AABB {
	s := b.Size()
	half := math.Max(s.X, math.Max(s.Y, s.Z)) / 2
	c := b.Center()
	return AABB{
		Min: Vec3{c.X - half, c.Y - half, c.Z - half},
		Max: Vec3{c.X + half, c.Y + half, c.Z + half},
	}
}

// Contains reports whether p lies within the box, inclusive of its faces.
func (b AABB) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Octant returns the index in [0,8) of the octant of p within the box,
// splitting each axis at its midpoint. Bit 0 is X, bit 1 is Y, bit 2 is Z.
func (b AABB) Octant(p Vec3) uint8 {
	c := b.Center()
	var o uint8
	if p.X > c.X {
		o |= 1
	}
	if p.Y > c.Y {
		o |= 2
	}
	if p.Z > c.Z {
		o |= 4
	}
	return o
}

// ChildBounds returns the bounding box of the given octant of a cubic box.
func (b AABB) ChildBounds(octant uint8) AABB {
	c := b.Center()
	child := AABB{Min: b.Min, Max: c}
	if octant&1 != 0 {
		child.Min.X, child.Max.X = c.X, b.Max.X
	}
	if octant&2 != 0 {
		child.Min.Y, child.Max.Y = c.Y, b.Max.Y
	}
	if octant&4 != 0 {
		child.Min.Z, child.Max.Z = c.Z, b.Max.Z
	}
	return child
}
