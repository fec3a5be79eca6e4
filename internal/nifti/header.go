// Package nifti reads and writes single-file NIfTI-1 images (.nii, .nii.gz)
// and exposes the header fields needed to build BIDS metadata.
//
// Based on the official definition of the nifti1 header,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
)

// HeaderSize is the size of the NIfTI-1 header on disk.
const HeaderSize = 348

// minVoxOffset is the header plus the 4-byte extension flag.
const minVoxOffset = 352

var (
	// ErrBadHeaderSize is returned when sizeof_hdr is not 348 in either byte order.
	ErrBadHeaderSize = errors.New("nifti: invalid header size")
	// ErrBadMagic is returned for anything other than a single-file "n+1" image.
	ErrBadMagic = errors.New("nifti: invalid magic, header and data must be in one file")
	// ErrUnsupportedDatatype is returned for datatypes we cannot decode.
	ErrUnsupportedDatatype = errors.New("nifti: unsupported datatype")
	// ErrBadDim is returned when a used dimension is not positive.
	ErrBadDim = errors.New("nifti: invalid dimension")
	// ErrUnknownField is returned by Header.Get for unknown field names.
	ErrUnknownField = errors.New("nifti: unknown header field")
)

var magicSingleFile = [4]byte{'n', '+', '1', 0}

// Header defines the structure of the NIfTI-1 header.
//
// Type translation from nifti1 C header to Go:
//
//	C     Go
//	-------------
//	int   int32
//	float float32
//	short int16
//	char  byte
type Header struct {
	SizeOfHdr          int32    // Must be 348
	UnusedDataType     [10]byte // Unused
	UnusedDbName       [18]byte // Unused
	UnusedExtents      int32    // Unused
	UnusedSessionError int16    // Unused
	UnusedRegular      byte     // Unused
	DimInfo            byte     // MRI slice ordering

	Dim           [8]int16   // Data array dimensions
	IntentP1      float32    // 1st intent parameter
	IntentP2      float32    // 2nd intent parameter
	IntentP3      float32    // 3rd intent parameter
	IntentCode    int16      // NIFTI_INTENT_* code
	Datatype      int16      // Defines data type
	BitPix        int16      // Number bits/voxel
	SliceStart    int16      // First slice index
	PixDim        [8]float32 // Grid spacing
	VoxOffset     float32    // Offset into .nii file
	SclSlope      float32    // Data scaling: slope
	SclInter      float32    // Data scaling: offset
	SliceEnd      int16      // Last slice index
	SliceCode     byte       // Slice timing order
	XYZTUnits     byte       // Units of pixdim[1..4]
	CalMax        float32    // Max display intensity
	CalMin        float32    // Min display intensity
	SliceDuration float32    // Time for 1 slice
	TOffset       float32    // Time axis shift
	UnusedGlmax   int32      // Unused
	UnusedGlmin   int32      // Unused

	Descrip [80]byte // Any text you like
	AuxFile [24]byte // Auxiliary filename

	QFormCode int16 // NIFTI_XFORM_* code
	SFormCode int16 // NIFTI_XFORM_* code

	QuaternB float32 // Quaternion b params
	QuaternC float32 // Quaternion c params
	QuaternD float32 // Quaternion d params
	QOffsetX float32 // Quaternion x shift
	QOffsetY float32 // Quaternion y shift
	QOffsetZ float32 // Quaternion z shift

	SRowX [4]float32 // 1st row affine transform
	SRowY [4]float32 // 2nd row affine transform
	SRowZ [4]float32 // 3rd row affine transform

	IntentName [16]byte // 'name' or meaning of data

	Magic [4]byte // Must be "n+1\0" for single-file images
}

// NewHeader returns a header for a single-file image with the given shape
// and datatype, unit zooms and no spatial transform.
func NewHeader(shape []int, datatype int16) (Header, error) {
	h := Header{
		SizeOfHdr: HeaderSize,
		VoxOffset: minVoxOffset,
		Magic:     magicSingleFile,
	}
	if err := h.SetDatatype(datatype); err != nil {
		return Header{}, err
	}
	if err := h.SetDataShape(shape); err != nil {
		return Header{}, err
	}
	for i := range h.PixDim {
		h.PixDim[i] = 1
	}
	return h, nil
}

// String prints every header field, one per line.
func (h Header) String() string {
	s := reflect.ValueOf(&h).Elem()
	typeOfT := s.Type()
	strs := make([]string, s.NumField())
	for i := 0; i < s.NumField(); i++ {
		f := s.Field(i)
		strs[i] = fmt.Sprintf("%d: %s %s = %v", i,
			typeOfT.Field(i).Name, f.Type(), f.Interface())
	}
	return strings.Join(strs, "\n")
}

// readHeader decodes a header from r, trying little endian first.
// Byte order is decided by sizeof_hdr, which must read as 348.
func readHeader(b []byte) (Header, binary.ByteOrder, error) {
	if len(b) < HeaderSize {
		return Header{}, nil, fmt.Errorf("nifti: file has %d bytes, need at least %d: %w", len(b), HeaderSize, io.ErrUnexpectedEOF)
	}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var h Header
		if err := binary.Read(bytes.NewReader(b[:HeaderSize]), order, &h); err != nil {
			return Header{}, nil, fmt.Errorf("nifti: decoding header: %w", err)
		}
		if h.SizeOfHdr == HeaderSize {
			if err := h.validate(); err != nil {
				return Header{}, nil, err
			}
			return h, order, nil
		}
	}
	return Header{}, nil, ErrBadHeaderSize
}

func (h Header) validate() error {
	switch {
	case h.SizeOfHdr != HeaderSize:
		return ErrBadHeaderSize
	case h.Magic != magicSingleFile:
		return ErrBadMagic
	case h.Dim[0] < 1 || h.Dim[0] > 7:
		return fmt.Errorf("nifti: dim[0] = %d not in range [1, 7]", h.Dim[0])
	}
	for i := 1; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] < 1 {
			return fmt.Errorf("%w: dim[%d] = %d", ErrBadDim, i, h.Dim[i])
		}
	}
	if _, ok := datatypes[h.Datatype]; !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedDatatype, h.Datatype)
	}
	return nil
}

// Shape returns the data array dimensions, dim[1..dim[0]].
func (h Header) Shape() []int {
	n := int(h.Dim[0])
	if n < 0 {
		n = 0
	}
	if n > 7 {
		n = 7
	}
	shape := make([]int, n)
	for i := range shape {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// SetDataShape sets dim[0] and the dimensions; unused dims are set to 1.
func (h *Header) SetDataShape(shape []int) error {
	if len(shape) < 1 || len(shape) > 7 {
		return fmt.Errorf("nifti: shape must have 1 to 7 dimensions, got %d", len(shape))
	}
	h.Dim[0] = int16(len(shape))
	for i := 1; i < 8; i++ {
		h.Dim[i] = 1
	}
	for i, n := range shape {
		if n < 1 || n > math.MaxInt16 {
			return fmt.Errorf("nifti: dimension %d has invalid length %d", i, n)
		}
		h.Dim[i+1] = int16(n)
	}
	return nil
}

// NumVoxels is the product of the data dimensions.
func (h Header) NumVoxels() int {
	n := 1
	for _, d := range h.Shape() {
		n *= d
	}
	return n
}

// Zooms returns the voxel sizes matching Shape, pixdim[1..dim[0]].
func (h Header) Zooms() []float64 {
	n := len(h.Shape())
	zooms := make([]float64, n)
	for i := range zooms {
		zooms[i] = float64(h.PixDim[i+1])
	}
	return zooms
}

// SetZooms sets pixdim[1..len(zooms)].
func (h *Header) SetZooms(zooms []float64) error {
	if len(zooms) > 7 {
		return fmt.Errorf("nifti: at most 7 zooms, got %d", len(zooms))
	}
	for i, z := range zooms {
		if z < 0 {
			return fmt.Errorf("nifti: zoom %d is negative (%g)", i, z)
		}
		h.PixDim[i+1] = float32(z)
	}
	return nil
}

// SetDatatype sets the datatype code and the matching bitpix.
func (h *Header) SetDatatype(code int16) error {
	dt, ok := datatypes[code]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnsupportedDatatype, code)
	}
	h.Datatype = code
	h.BitPix = int16(dt.size * 8)
	return nil
}

// Description returns the descrip field as a string.
func (h Header) Description() string {
	return cString(h.Descrip[:])
}

// SetDescription sets the descrip field, truncating to 79 bytes.
func (h *Header) SetDescription(s string) {
	h.Descrip = [80]byte{}
	copy(h.Descrip[:79], s)
}

// FreqDim, PhaseDim and SliceDim decode dim_info; 0 means unset,
// otherwise the value is the 1-based axis.
func (h Header) FreqDim() int  { return int(h.DimInfo & 0x03) }
func (h Header) PhaseDim() int { return int((h.DimInfo >> 2) & 0x03) }
func (h Header) SliceDim() int { return int((h.DimInfo >> 4) & 0x03) }

// SetDimInfo encodes 1-based frequency, phase and slice axes (0 = unset).
func (h *Header) SetDimInfo(freq, phase, slice int) {
	h.DimInfo = byte(freq&0x03) | byte(phase&0x03)<<2 | byte(slice&0x03)<<4
}

// Get looks a header field up by its nifti1.h name, the way nibabel's
// header.get does. Scalars come back as float64, arrays as []float64 and
// char fields as string.
func (h Header) Get(name string) (any, error) {
	switch strings.ToLower(name) {
	case "sizeof_hdr":
		return float64(h.SizeOfHdr), nil
	case "dim_info":
		return float64(h.DimInfo), nil
	case "dim":
		return int16s(h.Dim[:]), nil
	case "intent_p1":
		return float64(h.IntentP1), nil
	case "intent_p2":
		return float64(h.IntentP2), nil
	case "intent_p3":
		return float64(h.IntentP3), nil
	case "intent_code":
		return float64(h.IntentCode), nil
	case "datatype":
		return float64(h.Datatype), nil
	case "bitpix":
		return float64(h.BitPix), nil
	case "slice_start":
		return float64(h.SliceStart), nil
	case "pixdim":
		return float32s(h.PixDim[:]), nil
	case "vox_offset":
		return float64(h.VoxOffset), nil
	case "scl_slope":
		return float64(h.SclSlope), nil
	case "scl_inter":
		return float64(h.SclInter), nil
	case "slice_end":
		return float64(h.SliceEnd), nil
	case "slice_code":
		return float64(h.SliceCode), nil
	case "xyzt_units":
		return float64(h.XYZTUnits), nil
	case "cal_max":
		return float64(h.CalMax), nil
	case "cal_min":
		return float64(h.CalMin), nil
	case "slice_duration":
		return float64(h.SliceDuration), nil
	case "toffset":
		return float64(h.TOffset), nil
	case "descrip":
		return h.Description(), nil
	case "aux_file":
		return cString(h.AuxFile[:]), nil
	case "qform_code":
		return float64(h.QFormCode), nil
	case "sform_code":
		return float64(h.SFormCode), nil
	case "quatern_b":
		return float64(h.QuaternB), nil
	case "quatern_c":
		return float64(h.QuaternC), nil
	case "quatern_d":
		return float64(h.QuaternD), nil
	case "qoffset_x":
		return float64(h.QOffsetX), nil
	case "qoffset_y":
		return float64(h.QOffsetY), nil
	case "qoffset_z":
		return float64(h.QOffsetZ), nil
	case "srow_x":
		return float32s(h.SRowX[:]), nil
	case "srow_y":
		return float32s(h.SRowY[:]), nil
	case "srow_z":
		return float32s(h.SRowZ[:]), nil
	case "intent_name":
		return cString(h.IntentName[:]), nil
	case "magic":
		return cString(h.Magic[:]), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// GetFloat is Get for scalar numeric fields.
func (h Header) GetFloat(name string) (float64, error) {
	v, err := h.Get(name)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("nifti: field %q is not a scalar", name)
	}
	return f, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func int16s(v []int16) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func float32s(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
