package bids

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nvandessel/nifti2bids/internal/logging"
	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/nvandessel/nifti2bids/internal/slicetiming"
)

// BoldSidecar is the JSON metadata written next to a functional image.
type BoldSidecar struct {
	TaskName               string    `json:"TaskName,omitempty"`
	RepetitionTime         float64   `json:"RepetitionTime"`
	SliceTiming            []float64 `json:"SliceTiming,omitempty"`
	SliceEncodingDirection string    `json:"SliceEncodingDirection,omitempty"`
}

// SidecarOptions controls NewBoldSidecar.
type SidecarOptions struct {
	TaskName string

	// Method and Ascending describe the acquisition when the header has no
	// slice_code.
	Method    slicetiming.Method
	Ascending bool

	// Dim is the slice axis ("x", "y", "z"), empty to detect it.
	Dim string
}

var encodingDirections = []string{"i", "j", "k"}

// NewBoldSidecar derives RepetitionTime and SliceTiming from a header. The
// header's slice_code wins over opts.Method. When the slice axis cannot be
// determined SliceTiming is omitted and a warning logged.
func NewBoldSidecar(h nifti.Header, opts SidecarOptions, logger *slog.Logger) (BoldSidecar, error) {
	tr, err := nifti.RepetitionTime(h, logger)
	if err != nil {
		return BoldSidecar{}, err
	}
	sc := BoldSidecar{TaskName: opts.TaskName, RepetitionTime: tr}

	var timing []float64
	if h.SliceCode != slicetiming.SliceUnknown {
		timing, err = slicetiming.FromSliceCode(h, opts.Dim, logger)
	} else {
		method := opts.Method
		if method == "" {
			method = slicetiming.Sequential
		}
		timing, err = slicetiming.FromHeader(h, method, opts.Ascending, opts.Dim, logger)
	}
	switch {
	case errors.Is(err, nifti.ErrSliceEndNotSet), errors.Is(err, nifti.ErrSliceDimNotFound),
		errors.Is(err, nifti.ErrAmbiguousSliceDim):
		if logger != nil {
			logger.Warn("omitting slice timing", "error", err)
		}
		return sc, nil
	case err != nil:
		return BoldSidecar{}, err
	}
	sc.SliceTiming = timing

	axis := -1
	if opts.Dim != "" {
		axis, _ = nifti.ParseSliceDim(opts.Dim)
	} else if d, err := nifti.DetectSliceDim(h); err == nil {
		axis = d
	}
	if axis >= 0 {
		sc.SliceEncodingDirection = encodingDirections[axis]
	}
	return sc, nil
}

// SaveSidecar writes sc as indented JSON to path.
func SaveSidecar(sc BoldSidecar, path string, pl *logging.ProvenanceLogger) error {
	if err := writeJSON(path, sc); err != nil {
		return err
	}
	pl.Log("write", map[string]any{"dst": path})
	return nil
}

// LoadSidecar reads a functional sidecar.
func LoadSidecar(path string) (BoldSidecar, error) {
	var sc BoldSidecar
	data, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("bids: %w", err)
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("bids: parsing %s: %w", path, err)
	}
	return sc, nil
}
