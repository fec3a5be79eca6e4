package nifti

import "math"

// NIFTI_XFORM_* codes.
const (
	XFormUnknown     int16 = 0
	XFormScannerAnat int16 = 1
	XFormAlignedAnat int16 = 2
	XFormTalairach   int16 = 3
	XFormMNI152      int16 = 4
)

// Affine is a 4x4 voxel to world transform, row major.
type Affine [4][4]float64

// Identity returns the 4x4 identity matrix.
func Identity() Affine {
	var a Affine
	for i := range a {
		a[i][i] = 1
	}
	return a
}

// Diagonal returns the main diagonal.
func (a Affine) Diagonal() [4]float64 {
	return [4]float64{a[0][0], a[1][1], a[2][2], a[3][3]}
}

// Affine returns the sform when sform_code > 0, else the qform when
// qform_code > 0, else a scaling matrix built from pixdim.
func (h Header) Affine() Affine {
	if h.SFormCode > 0 {
		var a Affine
		for j := 0; j < 4; j++ {
			a[0][j] = float64(h.SRowX[j])
			a[1][j] = float64(h.SRowY[j])
			a[2][j] = float64(h.SRowZ[j])
		}
		a[3][3] = 1
		return a
	}
	if h.QFormCode > 0 {
		return h.qformAffine()
	}

	a := Identity()
	for i := 0; i < 3; i++ {
		if z := float64(h.PixDim[i+1]); z > 0 {
			a[i][i] = z
		}
	}
	return a
}

// qformAffine follows quatern_to_mat44 in nifti1_io.c.
func (h Header) qformAffine() Affine {
	b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
	a := 1 - (b*b + c*c + d*d)
	if a < 1e-7 {
		a = 1 / math.Sqrt(b*b+c*c+d*d)
		b, c, d = b*a, c*a, d*a
		a = 0
	} else {
		a = math.Sqrt(a)
	}

	dx, dy, dz := float64(h.PixDim[1]), float64(h.PixDim[2]), float64(h.PixDim[3])
	if dx <= 0 {
		dx = 1
	}
	if dy <= 0 {
		dy = 1
	}
	if dz <= 0 {
		dz = 1
	}
	if h.PixDim[0] < 0 {
		dz = -dz
	}

	var m Affine
	m[0][0] = (a*a + b*b - c*c - d*d) * dx
	m[0][1] = 2 * (b*c - a*d) * dy
	m[0][2] = 2 * (b*d + a*c) * dz
	m[1][0] = 2 * (b*c + a*d) * dx
	m[1][1] = (a*a + c*c - b*b - d*d) * dy
	m[1][2] = 2 * (c*d - a*b) * dz
	m[2][0] = 2 * (b*d - a*c) * dx
	m[2][1] = 2 * (c*d + a*b) * dy
	m[2][2] = (a*a + d*d - c*c - b*b) * dz
	m[0][3] = float64(h.QOffsetX)
	m[1][3] = float64(h.QOffsetY)
	m[2][3] = float64(h.QOffsetZ)
	m[3][3] = 1
	return m
}

// SetAffine stores a as the sform (aligned anatomical) and sets the
// spatial zooms to the column norms of its 3x3 part.
func (h *Header) SetAffine(a Affine) {
	for j := 0; j < 4; j++ {
		h.SRowX[j] = float32(a[0][j])
		h.SRowY[j] = float32(a[1][j])
		h.SRowZ[j] = float32(a[2][j])
	}
	h.SFormCode = XFormAlignedAnat
	for j := 0; j < 3; j++ {
		norm := math.Sqrt(a[0][j]*a[0][j] + a[1][j]*a[1][j] + a[2][j]*a[2][j])
		h.PixDim[j+1] = float32(norm)
	}
}
