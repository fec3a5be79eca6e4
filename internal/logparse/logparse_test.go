package logparse

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const presentationHeader = "Trial\tEvent Type\tCode\tTime\tTTime\tUncertainty\tDuration\tUncertainty\tReqTime\tReqDur\tStim Type\tPair Index"

// eventLog is a short flanker-style Presentation log.
var eventLog = strings.Join([]string{
	"Scenario - flanker",
	"Logfile written - 01/15/2024 10:12:44",
	"",
	presentationHeader,
	"",
	"1\tPulse\t99\t10000\t0\t1\t0\t1\t0\tnext\tother\t0",
	"2\tPicture\tfixation\t20000\t10000\t1\t59107\t1\t0\tnext\tother\t0",
	"3\tPicture\tincongruentright\t79107\t0\t1\t7058\t1\t0\tnext\thit\t0",
	"4\tResponse\t1\t85000\t5893\t1",
	"5\tPicture\tneutralleft\t108965\t0\t1\t\t1\t0\tnext\thit\t0",
	"6\tPicture\tfixation\t115685\t0\t1\t20000\t1\t0\tnext\tother\t0",
	"",
	"Event Type\tCode\tType\tResponse\tRT",
	"Picture\tincongruentright\thit\t1\t5893",
}, "\n") + "\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		want    string
		wantErr error
	}{
		{"tab", []string{"Scenario - x", presentationHeader}, "\t", nil},
		{"comma", []string{"Trial,Event Type,Code"}, ",", nil},
		{"subject first", []string{"Subject\tTrial\tEvent Type\tCode"}, "\t", nil},
		{"tab with spaces", []string{"Trial \t Event Type"}, "\t", nil},
		{"spaces", []string{"Trial  Event Type"}, "  ", nil},
		{"missing", []string{"Scenario - x", "nothing here"}, "", ErrDelimiterNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectDelimiter(tt.lines)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("delimiter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadPresentation(t *testing.T) {
	path := writeFile(t, "event.log", eventLog)

	tb, err := LoadPresentation(path, PresentationOptions{})
	if err != nil {
		t.Fatalf("LoadPresentation: %v", err)
	}
	if tb.Len() != 6 {
		t.Fatalf("rows = %d, want 6", tb.Len())
	}

	wantCols := []string{"Trial", "Event Type", "Code", "Time", "TTime", "Uncertainty",
		"Duration", "Uncertainty.1", "ReqTime", "ReqDur", "Stim Type", "Pair Index"}
	if diff := cmp.Diff(wantCols, tb.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	// Short response row is padded.
	if v, _ := tb.Get(3, ColStimType); v != "" {
		t.Errorf("padded Stim Type = %q, want empty", v)
	}

	times, err := tb.Floats(ColTime)
	if err != nil {
		t.Fatal(err)
	}
	if times[2] != 79107 {
		t.Errorf("Time[2] = %v, want 79107", times[2])
	}
}

func TestLoadPresentation_ToSeconds(t *testing.T) {
	path := writeFile(t, "event.log", eventLog)

	tb, err := LoadPresentation(path, PresentationOptions{ToSeconds: true})
	if err != nil {
		t.Fatal(err)
	}
	times, _ := tb.Floats(ColTime)
	want := []float64{1, 2, 7.9107, 8.5, 10.8965, 11.5685}
	if diff := cmp.Diff(want, times, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}
	durations, _ := tb.Floats(ColDuration)
	if !math.IsNaN(durations[4]) {
		t.Errorf("empty duration = %v, want NaN", durations[4])
	}
}

func TestLoadPresentation_TimeScale(t *testing.T) {
	path := writeFile(t, "event.log", eventLog)

	// A log recorded in milliseconds.
	tb, err := LoadPresentation(path, PresentationOptions{ToSeconds: true, TimeScale: 1000})
	if err != nil {
		t.Fatal(err)
	}
	times, _ := tb.Floats(ColTime)
	want := []float64{10, 20, 79.107, 85, 108.965, 115.685}
	if diff := cmp.Diff(want, times, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("times mismatch (-want +got):\n%s", diff)
	}

	// TimeScale is ignored without ToSeconds.
	tb, err = LoadPresentation(path, PresentationOptions{TimeScale: 1000})
	if err != nil {
		t.Fatal(err)
	}
	times, _ = tb.Floats(ColTime)
	if times[0] != 10000 {
		t.Errorf("raw time = %v, want 10000", times[0])
	}
}

func TestLoadPresentation_SubjectColumn(t *testing.T) {
	log := "Scenario - x\n" +
		"Subject,Trial,Event Type,Code,Time\n" +
		"101,1,Picture,indoor,10000\n" +
		"101,2,Picture,rest,150000\n"
	path := writeFile(t, "subject.log", log)

	tb, err := LoadPresentation(path, PresentationOptions{ToSeconds: true})
	if err != nil {
		t.Fatal(err)
	}
	if tb.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tb.Len())
	}
	if v, _ := tb.Get(1, ColTime); v != "15" {
		t.Errorf("Time = %q, want 15", v)
	}
}

func TestLoadPresentation_Errors(t *testing.T) {
	path := writeFile(t, "bad.log", "Scenario - x\nno table here\n")
	if _, err := LoadPresentation(path, PresentationOptions{}); !errors.Is(err, ErrDelimiterNotFound) {
		t.Errorf("err = %v, want ErrDelimiterNotFound", err)
	}

	path = writeFile(t, "nohdr.log", "Trial and Event Type mentioned\n")
	if _, err := LoadPresentation(path, PresentationOptions{}); !errors.Is(err, ErrNoHeaderRow) {
		t.Errorf("err = %v, want ErrNoHeaderRow", err)
	}

	if _, err := LoadPresentation(filepath.Join(t.TempDir(), "missing.log"), PresentationOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConvertTime_SkipsMissingColumns(t *testing.T) {
	tb, err := ParsePresentation(strings.NewReader(eventLog), PresentationOptions{ConvertColumns: []string{}})
	if err != nil {
		t.Fatal(err)
	}
	if err := ConvertTime(tb, []string{"Time", "NotThere"}, EPrimeTimeScale); err != nil {
		t.Fatalf("ConvertTime: %v", err)
	}
	if v, _ := tb.Get(0, ColTime); v != "10" {
		t.Errorf("Time = %q, want 10", v)
	}
	// Unlisted columns keep their raw text.
	if v, _ := tb.Get(0, ColTTime); v != "0" {
		t.Errorf("TTime = %q, want 0", v)
	}
}

func TestParseEPrimeExport(t *testing.T) {
	export := "C:\\data\\flanker-101-1.edat2\n" +
		"ExperimentName\tSubject\tTrial\tStimulus.OnsetTime\tStimulus.RT\tCondition\n" +
		"flanker\t101\t1\t12000\t450\tcongruent\n" +
		"flanker\t101\t2\t15000\t\tincongruent\n"

	tb, err := ParseEPrimeExport(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseEPrimeExport: %v", err)
	}
	if tb.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tb.Len())
	}
	if v, _ := tb.Get(1, "Condition"); v != "incongruent" {
		t.Errorf("Condition = %q", v)
	}

	path := writeFile(t, "export.txt", export)
	if _, err := LoadEPrimeExport(path); err != nil {
		t.Errorf("LoadEPrimeExport: %v", err)
	}
}

const eprimeLog = `*** Header Start ***
VersionPersist: 1
LevelName: Session
Subject: 101
Session: 1
*** Header End ***
	Level: 1
	*** LogFrame Start ***
	Experiment: flanker
	*** LogFrame End ***
		Level: 2
		*** LogFrame Start ***
		Procedure: TrialProc
		Condition: congruent
		Stimulus.OnsetTime: 12000
		Stimulus.RT: 450
		*** LogFrame End ***
		Level: 2
		*** LogFrame Start ***
		Procedure: TrialProc
		Condition: incongruent
		Stimulus.OnsetTime: 15000
		Stimulus.ACC: 0
		*** LogFrame End ***
`

// utf16LE encodes s as UTF-16 little endian with a byte order mark.
func utf16LE(s string) []byte {
	out := []byte{0xff, 0xfe}
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func TestParseEPrimeLog(t *testing.T) {
	log, err := ParseEPrimeLog(strings.NewReader(eprimeLog))
	if err != nil {
		t.Fatalf("ParseEPrimeLog: %v", err)
	}
	if log.Header.Values["Subject"] != "101" {
		t.Errorf("header Subject = %q", log.Header.Values["Subject"])
	}
	if len(log.Frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(log.Frames))
	}
	if log.MaxLevel() != 2 {
		t.Errorf("MaxLevel = %d, want 2", log.MaxLevel())
	}

	tb, err := log.Table(0)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Procedure", "Condition", "Stimulus.OnsetTime", "Stimulus.RT", "Stimulus.ACC"}
	if diff := cmp.Diff(want, tb.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"TrialProc", "incongruent", "15000", "", "0"}, tb.Row(1)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}

	if _, err := log.Table(5); !errors.Is(err, ErrNoFrames) {
		t.Errorf("err = %v, want ErrNoFrames", err)
	}
}

func TestLoadEPrimeLog_UTF16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flanker-101-1.txt")
	if err := os.WriteFile(path, utf16LE(eprimeLog), 0o644); err != nil {
		t.Fatal(err)
	}

	tb, err := LoadEPrimeLog(path, 2)
	if err != nil {
		t.Fatalf("LoadEPrimeLog: %v", err)
	}
	if tb.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tb.Len())
	}
	if v, _ := tb.Get(0, "Stimulus.OnsetTime"); v != "12000" {
		t.Errorf("onset = %q, want 12000", v)
	}
}
