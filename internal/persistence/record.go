package persistence

import (
	"encoding/binary"
	"math"

	"github.com/lodtiler/octiler/internal/data"
	"github.com/lodtiler/octiler/internal/geometry"
)

// quantize maps a coordinate to its i32 grid index relative to origin, per
// §4.4: round((coord - origin) / scale).
func quantize(coord, origin, scale float64) int32 {
	return int32(math.Round((coord - origin) / scale))
}

func dequantize(q int32, origin, scale float64) float64 {
	return origin + float64(q)*scale
}

// encodeRecord packs the i-th point of batch into dst following the
// schema's declaration order with no inter-attribute padding, little-endian
// throughout. dst must have capacity for schema.RecordByteWidth() bytes.
func encodeRecord(dst []byte, schema *data.Schema, batch *data.PointBatch, i int, origin geometry.Vec3, scale float64) {
	off := 0
	for _, attr := range schema.Attributes {
		switch attr {
		case data.AttrPositionCartesian:
			binary.LittleEndian.PutUint32(dst[off:], uint32(quantize(batch.PosX[i], origin.X, scale)))
			binary.LittleEndian.PutUint32(dst[off+4:], uint32(quantize(batch.PosY[i], origin.Y, scale)))
			binary.LittleEndian.PutUint32(dst[off+8:], uint32(quantize(batch.PosZ[i], origin.Z, scale)))
			off += 12
		case data.AttrColorPacked:
			packColor(dst[off:off+3], batch.ColorPacked[i])
			off += 3
		case data.AttrColorFromIntensity:
			packColor(dst[off:off+3], batch.ColorFromInt[i])
			off += 3
		case data.AttrIntensity:
			binary.LittleEndian.PutUint16(dst[off:], batch.Intensity[i])
			off += 2
		case data.AttrClassification:
			dst[off] = batch.Classification[i]
			off += 1
		case data.AttrNormalOct16:
			dst[off] = byte(batch.NormalOct16[i][0])
			dst[off+1] = byte(batch.NormalOct16[i][1])
			off += 2
		}
	}
}

// decodeRecord is the inverse of encodeRecord, appending the decoded point
// to dst.
func decodeRecord(src []byte, schema *data.Schema, origin geometry.Vec3, scale float64, dst *data.PointBatch) {
	off := 0
	var x, y, z float64
	var colorPacked, colorFromIntensity uint32
	var intensity uint16
	var classification uint8
	var normal [2]int8
	for _, attr := range schema.Attributes {
		switch attr {
		case data.AttrPositionCartesian:
			qx := int32(binary.LittleEndian.Uint32(src[off:]))
			qy := int32(binary.LittleEndian.Uint32(src[off+4:]))
			qz := int32(binary.LittleEndian.Uint32(src[off+8:]))
			x = dequantize(qx, origin.X, scale)
			y = dequantize(qy, origin.Y, scale)
			z = dequantize(qz, origin.Z, scale)
			off += 12
		case data.AttrColorPacked:
			colorPacked = unpackColor(src[off : off+3])
			off += 3
		case data.AttrColorFromIntensity:
			colorFromIntensity = unpackColor(src[off : off+3])
			off += 3
		case data.AttrIntensity:
			intensity = binary.LittleEndian.Uint16(src[off:])
			off += 2
		case data.AttrClassification:
			classification = src[off]
			off += 1
		case data.AttrNormalOct16:
			normal = [2]int8{int8(src[off]), int8(src[off+1])}
			off += 2
		}
	}
	dst.Add(geometry.Vec3{X: x, Y: y, Z: z}, colorPacked, colorFromIntensity, intensity, classification, normal)
}

func packColor(dst []byte, c uint32) {
	dst[0] = byte(c >> 16)
	dst[1] = byte(c >> 8)
	dst[2] = byte(c)
}

func unpackColor(src []byte) uint32 {
	return uint32(src[0])<<16 | uint32(src[1])<<8 | uint32(src[2])
}
