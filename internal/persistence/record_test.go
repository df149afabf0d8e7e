package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

func TestEncodeDecodeRecordQuantizationRoundTrip(t *testing.T) {
	schema, err := data.NewSchema([]data.AttributeKind{
		data.AttrPositionCartesian,
		data.AttrNormalOct16,
	})
	require.NoError(t, err)

	batch := data.NewPointBatch(schema)
	batch.Add(geometry.Vec3{X: -1e7, Y: 1e7, Z: 123.456}, 0, 0, 0, 0, [2]int8{-5, 127})

	origin := geometry.Vec3{X: -1e7, Y: -1e7, Z: 0}
	scale := 0.001

	buf := make([]byte, schema.RecordByteWidth())
	encodeRecord(buf, schema, batch, 0, origin, scale)

	out := data.NewPointBatch(schema)
	decodeRecord(buf, schema, origin, scale, out)

	got := out.At(0)
	assert.InDelta(t, -1e7, got.Position.X, 0.5*scale)
	assert.InDelta(t, 1e7, got.Position.Y, 0.5*scale)
	assert.InDelta(t, 123.456, got.Position.Z, 0.5*scale)
	assert.Equal(t, int8(-5), got.NormalOct16[0])
	assert.Equal(t, int8(127), got.NormalOct16[1])
}

func TestRecordByteWidthMatchesEncodedLength(t *testing.T) {
	schema, err := data.NewSchema([]data.AttributeKind{
		data.AttrPositionCartesian,
		data.AttrColorPacked,
		data.AttrColorFromIntensity,
		data.AttrIntensity,
		data.AttrClassification,
		data.AttrNormalOct16,
	})
	require.NoError(t, err)
	assert.Equal(t, 12+3+3+2+1+2, schema.RecordByteWidth())
}
