package simulate

import (
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/nifti2bids/internal/nifti"
)

func TestCreateAffine(t *testing.T) {
	a := CreateAffine(2, [4]float64{1, 1, 1, 1})
	if got, want := a.Diagonal(), [4]float64{2, 2, 2, 1}; got != want {
		t.Errorf("diagonal = %v, want %v", got, want)
	}
	for i := 0; i < 4; i++ {
		if a[i][3] != 1 {
			t.Errorf("affine[%d][3] = %v, want 1", i, a[i][3])
		}
	}
}

func TestImage(t *testing.T) {
	withTranslation := CreateAffine(1, [4]float64{1, 1, 1, 1})

	tests := []struct {
		name   string
		affine *nifti.Affine
	}{
		{"identity", nil},
		{"translated", &withTranslation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(1, 2))
			img, err := Image([]int{20, 20, 20, 20}, tt.affine, rng)
			if err != nil {
				t.Fatalf("Image: %v", err)
			}
			if len(img.Data) != 20*20*20*20 {
				t.Fatalf("len(data) = %d", len(img.Data))
			}
			for _, v := range img.Data {
				if v < 0 || v >= 1 {
					t.Fatalf("voxel %v outside [0, 1)", v)
				}
			}
			if got, want := img.Affine().Diagonal(), [4]float64{1, 1, 1, 1}; got != want {
				t.Errorf("diagonal = %v, want %v", got, want)
			}
		})
	}

	if _, err := Image([]int{}, nil, nil); err == nil {
		t.Error("expected error for empty shape")
	}
}

func TestAddHeader(t *testing.T) {
	affine := CreateAffine(3, [4]float64{1, 1, 1, 1})
	img, err := Image([]int{20, 20, 20, 20}, &affine, nil)
	if err != nil {
		t.Fatal(err)
	}
	img, err = AddHeader(img)
	if err != nil {
		t.Fatalf("AddHeader: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 3, 3, 0}, img.Header.Zooms()); diff != "" {
		t.Errorf("zooms mismatch (-want +got):\n%s", diff)
	}
	if img.Header.SpatialUnits() != nifti.UnitsMM || img.Header.TimeUnits() != nifti.UnitsSec {
		t.Errorf("xyzt_units = %d", img.Header.XYZTUnits)
	}
	if img.Header.Datatype != nifti.DTFloat64 {
		t.Errorf("datatype = %d, want float64", img.Header.Datatype)
	}
}

func TestWithTiming_RoundTrip(t *testing.T) {
	img, err := Image([]int{20, 20, 10, 5}, nil, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if err := WithTiming(img, 2, 2); err != nil {
		t.Fatalf("WithTiming: %v", err)
	}

	path := filepath.Join(t.TempDir(), "img.nii.gz")
	if err := nifti.Save(img, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	h, err := nifti.ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}

	tr, err := nifti.RepetitionTime(h, nil)
	if err != nil || tr != 2 {
		t.Errorf("tr = %v, %v; want 2", tr, err)
	}
	n, err := nifti.NumSlices(h, "")
	if err != nil || n != 10 {
		t.Errorf("slices = %d, %v; want 10", n, err)
	}

	threeD, _ := Image([]int{4, 4, 4}, nil, nil)
	if err := WithTiming(threeD, 2, 2); err == nil {
		t.Error("expected error for 3D image")
	}
}
