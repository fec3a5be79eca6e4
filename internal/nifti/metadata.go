package nifti

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrSliceEndNotSet is returned when slice_end is needed but zero.
	ErrSliceEndNotSet = errors.New("nifti: 'slice_end' metadata field not set")
	// ErrNoTimeAxis is returned when a 3D image is asked for a repetition time.
	ErrNoTimeAxis = errors.New("nifti: image has no time dimension")
	// ErrSliceDimNotFound is returned when no spatial axis matches slice_end + 1.
	ErrSliceDimNotFound = errors.New("nifti: no spatial dimension matches slice_end + 1")
	// ErrAmbiguousSliceDim is returned when several spatial axes match slice_end + 1.
	ErrAmbiguousSliceDim = errors.New("nifti: several spatial dimensions match slice_end + 1")
)

// IncorrectSliceDimensionError is returned when the number of slices along
// the requested dimension does not match slice_end + 1.
type IncorrectSliceDimensionError struct {
	Dim      string
	NSlices  int
	SliceEnd int
}

func (e *IncorrectSliceDimensionError) Error() string {
	return fmt.Sprintf("incorrect slice dimension: number of slices for %s dimension is %d but 'slice_end' in NIfTI header is %d",
		e.Dim, e.NSlices, e.SliceEnd)
}

var axisNames = []string{"x", "y", "z"}

// ParseSliceDim maps "x", "y" or "z" to a 0-based axis.
func ParseSliceDim(s string) (int, error) {
	for i, name := range axisNames {
		if strings.EqualFold(s, name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("nifti: invalid slice dimension %q (must be x, y or z)", s)
}

// RepetitionTime returns pixdim[4] in seconds. A zero TR is returned as is
// and logged as suspicious.
func RepetitionTime(h Header, logger *slog.Logger) (float64, error) {
	if h.Dim[0] < 4 {
		return 0, ErrNoTimeAxis
	}
	tr := float64(h.PixDim[4]) * secondsPerUnit(h.TimeUnits())
	if tr <= 0 && logger != nil {
		logger.Error("suspicious repetition time", "tr", tr)
	}
	return tr, nil
}

// DetectSliceDim returns the 0-based slice axis. dim_info wins when it
// names a slice axis; otherwise the unique spatial axis whose length is
// slice_end + 1 is used.
func DetectSliceDim(h Header) (int, error) {
	if d := h.SliceDim(); d > 0 {
		return d - 1, nil
	}
	if h.SliceEnd <= 0 {
		return 0, ErrSliceEndNotSet
	}

	nSlices := int(h.SliceEnd) + 1
	shape := h.Shape()
	found := -1
	for axis := 0; axis < 3 && axis < len(shape); axis++ {
		if shape[axis] != nSlices {
			continue
		}
		if found >= 0 {
			return 0, fmt.Errorf("%w: %s and %s both have %d slices", ErrAmbiguousSliceDim, axisNames[found], axisNames[axis], nSlices)
		}
		found = axis
	}
	if found < 0 {
		return 0, fmt.Errorf("%w (slice_end %d, shape %v)", ErrSliceDimNotFound, h.SliceEnd, shape)
	}
	return found, nil
}

// NumSlices returns the number of slices. With an explicit dim ("x", "y"
// or "z") the count is read from that axis and checked against
// slice_end + 1 when slice_end is set. With an empty dim the slice axis is
// detected with DetectSliceDim.
func NumSlices(h Header, dim string) (int, error) {
	shape := h.Shape()
	if dim == "" {
		axis, err := DetectSliceDim(h)
		if err != nil {
			return 0, err
		}
		return shape[axis], nil
	}

	axis, err := ParseSliceDim(dim)
	if err != nil {
		return 0, err
	}
	if axis >= len(shape) {
		return 0, fmt.Errorf("nifti: image has %d dimensions, no %s axis", len(shape), dim)
	}
	n := shape[axis]
	if h.SliceEnd > 0 && n != int(h.SliceEnd)+1 {
		return 0, &IncorrectSliceDimensionError{Dim: dim, NSlices: n, SliceEnd: int(h.SliceEnd)}
	}
	return n, nil
}

// IsT1w guesses from a file name whether an image is a T1-weighted
// anatomical scan.
func IsT1w(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "mprage") || strings.Contains(lower, "t1w")
}
