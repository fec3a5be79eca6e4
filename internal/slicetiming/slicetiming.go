// Package slicetiming computes per-slice acquisition offsets for fMRI
// images, as written to the SliceTiming field of BIDS sidecars.
package slicetiming

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/nvandessel/nifti2bids/internal/nifti"
)

// Method is a slice acquisition scheme.
type Method string

const (
	Sequential  Method = "sequential"
	Interleaved Method = "interleaved"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Sequential, Interleaved:
		return m, nil
	}
	return "", fmt.Errorf("invalid slice acquisition method: %s (must be sequential or interleaved)", s)
}

// SequentialOrder returns slice indices in acquisition order for a
// sequential acquisition.
func SequentialOrder(n int, ascending bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return flip(order, ascending)
}

// InterleavedOrder returns slice indices in acquisition order for an
// interleaved acquisition: even slices first, then odd ones.
func InterleavedOrder(n int, ascending bool) []int {
	order := make([]int, 0, n)
	for i := 0; i < n; i += 2 {
		order = append(order, i)
	}
	for i := 1; i < n; i += 2 {
		order = append(order, i)
	}
	return flip(order, ascending)
}

func flip(order []int, ascending bool) []int {
	if !ascending {
		slices.Reverse(order)
	}
	return order
}

// Order dispatches on method.
func Order(method Method, n int, ascending bool) ([]int, error) {
	switch method {
	case Sequential:
		return SequentialOrder(n, ascending), nil
	case Interleaved:
		return InterleavedOrder(n, ascending), nil
	}
	return nil, fmt.Errorf("invalid slice acquisition method: %s", method)
}

// Create returns the acquisition offset of every slice, indexed by slice
// number: the slice acquired k-th starts at k * tr / n.
func Create(tr float64, n int, method Method, ascending bool) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("number of slices must be positive, got %d", n)
	}
	if tr <= 0 {
		return nil, fmt.Errorf("repetition time must be positive, got %g", tr)
	}
	order, err := Order(method, n, ascending)
	if err != nil {
		return nil, err
	}

	return fromOrder(tr, order), nil
}

func fromOrder(tr float64, order []int) []float64 {
	sliceDuration := tr / float64(len(order))
	timing := make([]float64, len(order))
	for k, slice := range order {
		timing[slice] = float64(k) * sliceDuration
	}
	return timing
}

// FromHeader reads TR and the slice count from h and builds the timing.
// dim is "x", "y", "z" or empty to detect it.
func FromHeader(h nifti.Header, method Method, ascending bool, dim string, logger *slog.Logger) ([]float64, error) {
	tr, err := nifti.RepetitionTime(h, logger)
	if err != nil {
		return nil, err
	}
	n, err := nifti.NumSlices(h, dim)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("creating slice timing", "tr", tr, "slices", n, "method", method, "ascending", ascending)
	}
	return Create(tr, n, method, ascending)
}

// NIFTI_SLICE_* codes.
const (
	SliceUnknown byte = 0
	SliceSeqInc  byte = 1
	SliceSeqDec  byte = 2
	SliceAltInc  byte = 3
	SliceAltDec  byte = 4
	SliceAltInc2 byte = 5
	SliceAltDec2 byte = 6
)

// FromSliceCode builds the timing from the slice_code stored in the header.
// The "2" variants start at the second slice (Siemens interleaved with an
// even slice count).
func FromSliceCode(h nifti.Header, dim string, logger *slog.Logger) ([]float64, error) {
	tr, err := nifti.RepetitionTime(h, logger)
	if err != nil {
		return nil, err
	}
	n, err := nifti.NumSlices(h, dim)
	if err != nil {
		return nil, err
	}

	if tr <= 0 {
		return nil, fmt.Errorf("repetition time must be positive, got %g", tr)
	}

	var order []int
	switch h.SliceCode {
	case SliceSeqInc:
		order = SequentialOrder(n, true)
	case SliceSeqDec:
		order = SequentialOrder(n, false)
	case SliceAltInc:
		order = alternating(n, 0, 1)
	case SliceAltDec:
		order = alternating(n, n-1, -1)
	case SliceAltInc2:
		order = alternating(n, 1, 1)
	case SliceAltDec2:
		order = alternating(n, n-2, -1)
	default:
		return nil, fmt.Errorf("slice_code %d does not describe an acquisition order", h.SliceCode)
	}
	return fromOrder(tr, order), nil
}

// alternating walks every other slice from start in direction step, then
// fills in the skipped ones, as defined for the NIFTI_SLICE_ALT_* codes.
func alternating(n, start, step int) []int {
	order := make([]int, 0, n)
	for i := start; i >= 0 && i < n; i += 2 * step {
		order = append(order, i)
	}
	second := 1 - start
	if step < 0 {
		second = 2*n - 3 - start
	}
	for i := second; i >= 0 && i < n; i += 2 * step {
		order = append(order, i)
	}
	return order
}
