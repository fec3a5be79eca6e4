package bids

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/fsutil"
	"github.com/nvandessel/nifti2bids/internal/logging"
	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/nvandessel/nifti2bids/internal/table"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path is relative to the dataset root.
type Issue struct {
	Path     string   `json:"path"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Report collects every issue found by Validate.
type Report struct {
	Root   string  `json:"root"`
	Files  int     `json:"files"`
	Issues []Issue `json:"issues"`
}

// Errors counts issues of error severity.
func (r *Report) Errors() int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			n++
		}
	}
	return n
}

// OK reports whether the dataset has no errors.
func (r *Report) OK() bool { return r.Errors() == 0 }

func (r *Report) add(path string, sev Severity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Path: path, Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// trTolerance is how far a sidecar RepetitionTime may drift from the
// header value, in seconds.
const trTolerance = 1e-3

// Validate checks the structure of the dataset at root: the dataset
// description, the participants file, every file name below sub-*
// directories, image headers, bold sidecars and events files. The error
// return is reserved for an unreadable root; dataset problems are issues.
func Validate(root string, logger *slog.Logger) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("bids: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("bids: %s is not a directory", fsutil.RedactPath(root))
	}

	r := &Report{Root: root}
	validateDescription(r, root)

	subjects, err := SubjectDirs(root)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		r.add(".", SeverityError, "no sub-* directories")
	}
	validateParticipants(r, root, subjects)

	for _, sub := range subjects {
		err := filepath.WalkDir(filepath.Join(root, sub), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			r.Files++
			rel, _ := filepath.Rel(root, path)
			validateFile(r, path, rel, logger)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("bids: walking %s: %w", sub, err)
		}
	}

	if logger != nil {
		logger.Debug("validated dataset", "root", fsutil.RedactPath(root), "files", r.Files, "issues", len(r.Issues))
	}
	return r, nil
}

func validateDescription(r *Report, root string) {
	desc, err := LoadDatasetDescription(root)
	if errors.Is(err, fs.ErrNotExist) {
		r.add(DatasetDescriptionFile, SeverityError, "missing")
		return
	}
	if err != nil {
		r.add(DatasetDescriptionFile, SeverityError, "%v", err)
		return
	}
	if desc.Name == "" {
		r.add(DatasetDescriptionFile, SeverityError, "Name is empty")
	}
	if desc.BIDSVersion == "" {
		r.add(DatasetDescriptionFile, SeverityError, "BIDSVersion is empty")
	}
}

func validateParticipants(r *Report, root string, subjects []string) {
	t, err := table.ReadTSVFile(filepath.Join(root, ParticipantsFile))
	if errors.Is(err, fs.ErrNotExist) {
		r.add(ParticipantsFile, SeverityWarning, "missing")
		return
	}
	if err != nil {
		r.add(ParticipantsFile, SeverityError, "%v", err)
		return
	}
	ids, err := t.Column(ParticipantID)
	if err != nil {
		r.add(ParticipantsFile, SeverityError, "no %s column", ParticipantID)
		return
	}

	listed := make(map[string]bool, len(ids))
	for _, id := range ids {
		listed[id] = true
	}
	onDisk := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		onDisk[s] = true
		if !listed[s] {
			r.add(ParticipantsFile, SeverityWarning, "%s is not listed", s)
		}
	}
	for _, id := range ids {
		if !onDisk[id] {
			r.add(ParticipantsFile, SeverityWarning, "%s has no directory", id)
		}
	}
}

// sessionOf returns the ses-* directory a file sits in, without prefix.
func sessionOf(rel string) string {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, "ses-") {
			return strings.TrimPrefix(part, "ses-")
		}
	}
	return ""
}

func validateFile(r *Report, path, rel string, logger *slog.Logger) {
	e, suffix, ext, err := ParseFilename(path)
	if err != nil {
		r.add(rel, SeverityError, "invalid file name: %v", err)
		return
	}

	subDir := strings.Split(filepath.ToSlash(rel), "/")[0]
	if "sub-"+e.Sub != subDir {
		r.add(rel, SeverityError, "subject sub-%s does not match directory %s", e.Sub, subDir)
	}
	if ses := sessionOf(rel); ses != "" && e.Ses != ses {
		r.add(rel, SeverityError, "session %q does not match directory ses-%s", e.Ses, ses)
	}

	switch {
	case ext == ".nii" || ext == ".nii.gz":
		validateImage(r, path, rel, suffix, ext, logger)
	case suffix == "events" && ext == ".tsv":
		t, err := table.ReadTSVFile(path)
		if err != nil {
			r.add(rel, SeverityError, "%v", err)
			return
		}
		for _, col := range []string{ColOnset, ColDuration} {
			if !t.Has(col) {
				r.add(rel, SeverityError, "missing %s column", col)
			}
		}
	}
}

func validateImage(r *Report, path, rel, suffix, ext string, logger *slog.Logger) {
	h, err := nifti.ReadHeader(path)
	if err != nil {
		r.add(rel, SeverityError, "unreadable image: %v", err)
		return
	}
	if logger != nil {
		logger.Log(context.Background(), logging.LevelTrace, "read header", "file", rel, "shape", h.Shape())
	}
	if suffix != "bold" {
		return
	}

	if len(h.Shape()) != 4 {
		r.add(rel, SeverityError, "bold image has %d dimensions, want 4", len(h.Shape()))
		return
	}

	sidecar := strings.TrimSuffix(path, ext) + ".json"
	sc, err := LoadSidecar(sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		r.add(rel, SeverityWarning, "no sidecar with RepetitionTime")
		return
	}
	if err != nil {
		r.add(rel, SeverityError, "%v", err)
		return
	}
	tr, err := nifti.RepetitionTime(h, nil)
	if err != nil {
		r.add(rel, SeverityError, "%v", err)
		return
	}
	if math.Abs(sc.RepetitionTime-tr) > trTolerance {
		r.add(rel, SeverityError, "sidecar RepetitionTime %g does not match header %g", sc.RepetitionTime, tr)
	}
	for _, v := range sc.SliceTiming {
		if v < 0 || v >= sc.RepetitionTime {
			r.add(rel, SeverityError, "SliceTiming value %g outside [0, RepetitionTime)", v)
			break
		}
	}
}
