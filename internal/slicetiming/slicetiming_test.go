package slicetiming

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nvandessel/nifti2bids/internal/nifti"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestOrders(t *testing.T) {
	tests := []struct {
		name string
		got  []int
		want []int
	}{
		{"sequential ascending", SequentialOrder(5, true), []int{0, 1, 2, 3, 4}},
		{"sequential descending", SequentialOrder(5, false), []int{4, 3, 2, 1, 0}},
		{"interleaved ascending", InterleavedOrder(5, true), []int{0, 2, 4, 1, 3}},
		{"interleaved descending", InterleavedOrder(5, false), []int{3, 1, 4, 2, 0}},
		{"interleaved even count", InterleavedOrder(4, true), []int{0, 2, 1, 3}},
		{"empty", SequentialOrder(0, true), []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name      string
		tr        float64
		n         int
		method    Method
		ascending bool
		want      []float64
	}{
		{"sequential ascending", 2, 4, Sequential, true, []float64{0, 0.5, 1, 1.5}},
		{"sequential descending", 2, 4, Sequential, false, []float64{1.5, 1, 0.5, 0}},
		// acquisition order 0, 2, 4, 1, 3
		{"interleaved ascending", 2.5, 5, Interleaved, true, []float64{0, 1.5, 0.5, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Create(tt.tr, tt.n, tt.method, tt.ascending)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("timing mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreate_Errors(t *testing.T) {
	if _, err := Create(2, 0, Sequential, true); err == nil {
		t.Error("expected error for zero slices")
	}
	if _, err := Create(0, 10, Sequential, true); err == nil {
		t.Error("expected error for zero TR")
	}
	if _, err := Create(2, 10, Method("spiral"), true); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod("interleaved"); err != nil || m != Interleaved {
		t.Errorf("ParseMethod(interleaved) = %q, %v", m, err)
	}
	if _, err := ParseMethod("multiband"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func newHeader(t *testing.T, tr float32, sliceEnd int16) nifti.Header {
	t.Helper()
	h, err := nifti.NewHeader([]int{20, 20, 10, 5}, nifti.DTFloat32)
	if err != nil {
		t.Fatal(err)
	}
	h.PixDim[4] = tr
	h.SetXYZTUnits(nifti.UnitsMM, nifti.UnitsSec)
	h.SliceEnd = sliceEnd
	return h
}

func TestFromHeader(t *testing.T) {
	h := newHeader(t, 2, 9)
	got, err := FromHeader(h, Sequential, true, "", nil)
	if err != nil {
		t.Fatalf("FromHeader: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if math.Abs(got[9]-1.8) > 1e-9 {
		t.Errorf("last slice = %v, want 1.8", got[9])
	}

	if _, err := FromHeader(newHeader(t, 2, 0), Sequential, true, "", nil); err == nil {
		t.Error("expected error when slice_end is unset")
	}
}

func TestFromSliceCode(t *testing.T) {
	tests := []struct {
		name string
		code byte
		n    int
		want []int // acquisition position of each slice
	}{
		{"seq inc", SliceSeqInc, 5, []int{0, 1, 2, 3, 4}},
		{"seq dec", SliceSeqDec, 5, []int{4, 3, 2, 1, 0}},
		// order 0 2 4 1 3
		{"alt inc", SliceAltInc, 5, []int{0, 3, 1, 4, 2}},
		// order 4 2 0 3 1
		{"alt dec", SliceAltDec, 5, []int{2, 4, 1, 3, 0}},
		// order 1 3 0 2
		{"alt inc2", SliceAltInc2, 4, []int{2, 0, 3, 1}},
		// order 3 1 4 2 0
		{"alt dec2", SliceAltDec2, 5, []int{4, 1, 3, 0, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := nifti.NewHeader([]int{8, 8, tt.n, 3}, nifti.DTFloat32)
			if err != nil {
				t.Fatal(err)
			}
			h.PixDim[4] = float32(tt.n)
			h.SliceEnd = int16(tt.n - 1)
			h.SliceCode = tt.code

			got, err := FromSliceCode(h, "z", nil)
			if err != nil {
				t.Fatalf("FromSliceCode: %v", err)
			}
			// TR == n, so each timing equals the acquisition position.
			want := make([]float64, tt.n)
			for i, pos := range tt.want {
				want[i] = float64(pos)
			}
			if diff := cmp.Diff(want, got, approx); diff != "" {
				t.Errorf("timing mismatch (-want +got):\n%s", diff)
			}
		})
	}

	h := newHeader(t, 2, 9)
	h.SliceCode = SliceUnknown
	if _, err := FromSliceCode(h, "", nil); err == nil {
		t.Error("expected error for unknown slice code")
	}
}
