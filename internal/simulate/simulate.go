// Package simulate builds synthetic NIfTI images for tests and demos.
package simulate

import (
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/nifti2bids/internal/nifti"
)

// CreateAffine returns a 4x4 affine with xyzDiagonal on the first three
// diagonal entries, 1 in the homogeneous corner, and translation as the
// last column.
func CreateAffine(xyzDiagonal float64, translation [4]float64) nifti.Affine {
	var a nifti.Affine
	for i := 0; i < 3; i++ {
		a[i][i] = xyzDiagonal
	}
	for i := 0; i < 4; i++ {
		a[i][3] = translation[i]
	}
	a[3][3] = 1
	return a
}

// Image returns a float64 image of the given shape filled with uniform
// random values in [0, 1). A nil affine means identity; a nil rng uses the
// global source.
func Image(shape []int, affine *nifti.Affine, rng *rand.Rand) (*nifti.Image, error) {
	h, err := nifti.NewHeader(shape, nifti.DTFloat64)
	if err != nil {
		return nil, fmt.Errorf("simulating image: %w", err)
	}
	a := nifti.Identity()
	if affine != nil {
		a = *affine
	}
	h.SetAffine(a)

	data := make([]float64, h.NumVoxels())
	for i := range data {
		if rng != nil {
			data[i] = rng.Float64()
		} else {
			data[i] = rand.Float64()
		}
	}
	return &nifti.Image{Header: h, Data: data}, nil
}

// AddHeader returns a copy of img with a basic header: the data shape,
// isotropic spatial zooms taken from the first affine diagonal entry, a
// zero time zoom, mm/sec units and a float64 datatype.
func AddHeader(img *nifti.Image) (*nifti.Image, error) {
	affine := img.Affine()
	h, err := nifti.NewHeader(img.Shape(), nifti.DTFloat64)
	if err != nil {
		return nil, err
	}
	h.SetAffine(affine)
	h.SetXYZTUnits(nifti.UnitsMM, nifti.UnitsSec)

	zoom := affine[0][0]
	if zoom < 0 {
		zoom = -zoom
	}
	for i := 1; i <= 3 && i <= len(img.Shape()); i++ {
		h.PixDim[i] = float32(zoom)
	}
	for i := 4; i < 8; i++ {
		h.PixDim[i] = 0
	}

	data := append([]float64(nil), img.Data...)
	return &nifti.Image{Header: h, Data: data, Extension: img.Extension}, nil
}

// WithTiming sets the repetition time (seconds), the slice axis in
// dim_info, and slice_end so the header describes an fMRI run.
// sliceAxis is 0-based.
func WithTiming(img *nifti.Image, tr float64, sliceAxis int) error {
	shape := img.Shape()
	if len(shape) < 4 {
		return fmt.Errorf("simulating timing: image has %d dimensions, need 4", len(shape))
	}
	if sliceAxis < 0 || sliceAxis > 2 {
		return fmt.Errorf("simulating timing: slice axis %d not in [0, 2]", sliceAxis)
	}
	img.Header.PixDim[4] = float32(tr)
	img.Header.SetXYZTUnits(img.Header.SpatialUnits(), nifti.UnitsSec)
	img.Header.SetDimInfo(0, 0, sliceAxis+1)
	img.Header.SliceStart = 0
	img.Header.SliceEnd = int16(shape[sliceAxis] - 1)
	if n := shape[sliceAxis]; n > 0 {
		img.Header.SliceDuration = float32(tr / float64(n))
	}
	return nil
}
