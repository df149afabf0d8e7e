package data

import "fmt"

// AttributeKind identifies one column a PointBatch may carry. The schema is
// drawn once at construction time and is constant for the run (§3).
type AttributeKind uint8

const (
	AttrPositionCartesian AttributeKind = iota
	AttrColorPacked
	AttrColorFromIntensity
	AttrIntensity
	AttrClassification
	AttrNormalOct16
)

func (k AttributeKind) String() string {
	switch k {
	case AttrPositionCartesian:
		return "position_cartesian"
	case AttrColorPacked:
		return "color_packed"
	case AttrColorFromIntensity:
		return "color_from_intensity"
	case AttrIntensity:
		return "intensity"
	case AttrClassification:
		return "classification"
	case AttrNormalOct16:
		return "normal_oct16"
	default:
		return "unknown"
	}
}

// ByteWidth is the packed, little-endian, non-padded width of the attribute
// in a persisted record (§4.4).
func (k AttributeKind) ByteWidth() int {
	switch k {
	case AttrPositionCartesian:
		return 12 // 3 x i32
	case AttrColorPacked, AttrColorFromIntensity:
		return 3 // r,g,b
	case AttrIntensity:
		return 2
	case AttrClassification:
		return 1
	case AttrNormalOct16:
		return 2
	default:
		return 0
	}
}

func ParseAttributeKind(s string) (AttributeKind, error) {
	for k := AttrPositionCartesian; k <= AttrNormalOct16; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

// Schema is the ordered, fixed attribute tuple a run is configured with.
// Attribute order in a record matches declaration order (§4.4).
type Schema struct {
	Attributes []AttributeKind
}

// NewSchema validates that the attribute set is non-empty, contains
// position_cartesian, and has no duplicates.
func NewSchema(attrs []AttributeKind) (*Schema, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("schema: no attributes specified")
	}
	seen := make(map[AttributeKind]bool, len(attrs))
	hasPosition := false
	for _, a := range attrs {
		if seen[a] {
			return nil, fmt.Errorf("schema: duplicate attribute %s", a)
		}
		seen[a] = true
		if a == AttrPositionCartesian {
			hasPosition = true
		}
	}
	if !hasPosition {
		return nil, fmt.Errorf("schema: position_cartesian is required")
	}
	cp := make([]AttributeKind, len(attrs))
	copy(cp, attrs)
	return &Schema{Attributes: cp}, nil
}

// RecordByteWidth returns the fixed size in bytes of one persisted record
// under this schema (positions included, no padding between attributes).
func (s *Schema) RecordByteWidth() int {
	w := 0
	for _, a := range s.Attributes {
		w += a.ByteWidth()
	}
	return w
}

func (s *Schema) Has(k AttributeKind) bool {
	for _, a := range s.Attributes {
		if a == k {
			return true
		}
	}
	return false
}
