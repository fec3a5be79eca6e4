package bids

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/nifti2bids/internal/nifti"
	"github.com/nvandessel/nifti2bids/internal/simulate"
)

// buildDataset writes a minimal valid dataset with one subject.
func buildDataset(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if _, err := SaveDatasetDescription(CreateDatasetDescription("flanker", ""), root, nil); err != nil {
		t.Fatal(err)
	}

	funcDir := filepath.Join(root, "sub-01", "func")
	anatDir := filepath.Join(root, "sub-01", "anat")
	for _, d := range []string{funcDir, anatDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	bold := boldImage(t)
	if err := nifti.Save(bold, filepath.Join(funcDir, "sub-01_task-flanker_bold.nii.gz")); err != nil {
		t.Fatal(err)
	}
	sc, err := NewBoldSidecar(bold.Header, SidecarOptions{TaskName: "flanker"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveSidecar(sc, filepath.Join(funcDir, "sub-01_task-flanker_bold.json"), nil); err != nil {
		t.Fatal(err)
	}
	events := []Event{{Onset: 1, Duration: 2, TrialType: "congruent"}}
	if err := EventsTable(events, false).WriteTSVFile(filepath.Join(funcDir, "sub-01_task-flanker_events.tsv")); err != nil {
		t.Fatal(err)
	}

	anat, err := simulate.Image([]int{4, 4, 4}, nil, rand.New(rand.NewPCG(3, 4)))
	if err != nil {
		t.Fatal(err)
	}
	if err := nifti.Save(anat, filepath.Join(anatDir, "sub-01_T1w.nii")); err != nil {
		t.Fatal(err)
	}

	if _, err := CreateParticipantsTSV(root, true, nil); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestValidate_ValidDataset(t *testing.T) {
	root := buildDataset(t)
	writeFile(t, filepath.Join(root, "sub-01", ".DS_Store"), "junk")

	report, err := Validate(root, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !report.OK() || len(report.Issues) != 0 {
		t.Errorf("expected clean report, got %+v", report.Issues)
	}
	if report.Files != 4 {
		t.Errorf("files = %d, want 4", report.Files)
	}
}

func TestValidate_Problems(t *testing.T) {
	root := buildDataset(t)
	funcDir := filepath.Join(root, "sub-01", "func")

	writeFile(t, filepath.Join(funcDir, "bad_name.nii"), "x")
	writeFile(t, filepath.Join(root, "sub-02", "anat", "sub-03_T1w.nii"), "not an image")
	writeFile(t, filepath.Join(funcDir, "sub-01_task-flanker_bold.json"), `{"RepetitionTime": 3}`)
	writeFile(t, filepath.Join(funcDir, "sub-01_task-stroop_events.tsv"), "onset\ttrial_type\n1\ta\n")
	if err := os.Remove(filepath.Join(root, DatasetDescriptionFile)); err != nil {
		t.Fatal(err)
	}

	report, err := Validate(root, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.OK() {
		t.Fatal("expected errors")
	}

	wants := []struct {
		path string
		msg  string
	}{
		{DatasetDescriptionFile, "missing"},
		{ParticipantsFile, "sub-02 is not listed"},
		{filepath.Join("sub-01", "func", "bad_name.nii"), "invalid file name"},
		{filepath.Join("sub-02", "anat", "sub-03_T1w.nii"), "does not match directory"},
		{filepath.Join("sub-01", "func", "sub-01_task-flanker_bold.nii.gz"), "does not match header"},
		{filepath.Join("sub-01", "func", "sub-01_task-stroop_events.tsv"), "missing duration column"},
	}
	for _, want := range wants {
		found := false
		for _, issue := range report.Issues {
			if issue.Path == want.path && strings.Contains(issue.Message, want.msg) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no issue for %s containing %q in %+v", want.path, want.msg, report.Issues)
		}
	}
}

func TestValidate_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x")
	if _, err := Validate(path, nil); err == nil {
		t.Error("expected error for non-directory root")
	}
}
