package nifti

import (
	"encoding/binary"
	"math"
)

// NIFTI_TYPE_* codes.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
	DTInt64   int16 = 1024
	DTUint64  int16 = 1280
)

type datatype struct {
	name   string
	size   int
	decode func(b []byte, order binary.ByteOrder) float64
	encode func(b []byte, order binary.ByteOrder, v float64)
}

var datatypes = map[int16]datatype{
	DTUint8: {"uint8", 1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(b[0]) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = uint8(v) }},
	DTInt8: {"int8", 1,
		func(b []byte, _ binary.ByteOrder) float64 { return float64(int8(b[0])) },
		func(b []byte, _ binary.ByteOrder, v float64) { b[0] = byte(int8(v)) }},
	DTInt16: {"int16", 2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int16(o.Uint16(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(int16(v))) }},
	DTUint16: {"uint16", 2,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint16(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint16(b, uint16(v)) }},
	DTInt32: {"int32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int32(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(int32(v))) }},
	DTUint32: {"uint32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint32(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, uint32(v)) }},
	DTInt64: {"int64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(int64(o.Uint64(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(int64(v))) }},
	DTUint64: {"uint64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return float64(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, uint64(v)) }},
	DTFloat32: {"float32", 4,
		func(b []byte, o binary.ByteOrder) float64 { return float64(math.Float32frombits(o.Uint32(b))) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint32(b, math.Float32bits(float32(v))) }},
	DTFloat64: {"float64", 8,
		func(b []byte, o binary.ByteOrder) float64 { return math.Float64frombits(o.Uint64(b)) },
		func(b []byte, o binary.ByteOrder, v float64) { o.PutUint64(b, math.Float64bits(v)) }},
}

// DatatypeName returns the numpy-style name of a datatype code, or "" if unknown.
func DatatypeName(code int16) string {
	return datatypes[code].name
}
