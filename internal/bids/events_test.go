package bids

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nvandessel/nifti2bids/internal/logparse"
	"github.com/nvandessel/nifti2bids/internal/table"
)

const presentationHeader = "Trial\tEvent Type\tCode\tTime\tTTime\tUncertainty\tDuration\tUncertainty\tReqTime\tReqDur\tStim Type\tPair Index"

var eventData = []string{
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
}

var blockData = []string{
	"Scenario - scenes",
	"",
	presentationHeader,
	"1\tPicture\tindoor_kitchen\t10000\t0\t1\t30000\t1\t0\tnext\tother\t0",
	"2\tPicture\tindoor_office\t40000\t0\t1\t30000\t1\t0\tnext\tother\t0",
	"3\tResponse\t1\t50000\t10000\t1",
	"4\tPicture\trest\t150000\t0\t1\t200000\t1\t0\tnext\tother\t0",
	"5\tPicture\tindoor_kitchen\t350000\t0\t1\t30000\t1\t0\tnext\tother\t0",
	"6\tPicture\tindoor_office\t400000\t0\t1\t30000\t1\t0\tnext\tother\t0",
	"7\tPicture\trest\t490000\t0\t1\t200000\t1\t0\tnext\tother\t0",
}

func writeLog(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, strings.Join(lines, "\n")+"\n")
	return path
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestPresentationLogToBIDS(t *testing.T) {
	parse := logparse.PresentationOptions{ConvertColumns: []string{"Time", "Duration"}, ToSeconds: true}

	tests := []struct {
		name string
		data []string
		opts PresentationOptions
		want []Event
	}{
		{
			name: "block",
			data: blockData,
			opts: PresentationOptions{TrialTypes: []string{"indoor"}, Design: BlockDesign, RestCode: "rest"},
			want: []Event{
				{Onset: 1, Duration: 14, TrialType: "indoor"},
				{Onset: 35, Duration: 14, TrialType: "indoor"},
			},
		},
		{
			name: "event",
			data: eventData,
			opts: PresentationOptions{TrialTypes: []string{"incongruent", "neutral"}, Design: EventDesign},
			want: []Event{
				{Onset: 7.9107, Duration: 0.7058, TrialType: "incongruentright"},
				{Onset: 10.8965, Duration: 0.6720, TrialType: "neutralleft"},
			},
		},
		{
			name: "event with response",
			data: eventData,
			opts: PresentationOptions{TrialTypes: []string{"incongruent", "neutral"}, IncludeResponse: true},
			want: []Event{
				{Onset: 7.9107, Duration: 0.7058, TrialType: "incongruentright", Response: "hit"},
				{Onset: 10.8965, Duration: 0.6720, TrialType: "neutralleft", Response: "hit"},
			},
		},
		{
			name: "trigger relative",
			data: eventData,
			opts: PresentationOptions{TrialTypes: []string{"incongruent", "neutral"}, TriggerRelative: true},
			want: []Event{
				{Onset: 6.9107, Duration: 0.7058, TrialType: "incongruentright"},
				{Onset: 9.8965, Duration: 0.6720, TrialType: "neutralleft"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeLog(t, tt.name+".txt", tt.data)
			got, err := PresentationLogToBIDS(path, parse, tt.opts)
			if err != nil {
				t.Fatalf("PresentationLogToBIDS: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, approx); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBlockDesign_EndsAtOtherTrialTypeAndEndOfLog(t *testing.T) {
	tb := table.New([]string{logparse.ColEventType, logparse.ColCode, logparse.ColTime, logparse.ColDuration})
	for _, r := range [][]string{
		{"Picture", "indoor_a", "0", "5"},
		{"Picture", "outdoor_a", "10", "5"},
		{"Picture", "outdoor_b", "15", "5"},
	} {
		if err := tb.AddRow(r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := PresentationEvents(tb, PresentationOptions{TrialTypes: []string{"indoor", "outdoor"}, Design: BlockDesign})
	if err != nil {
		t.Fatal(err)
	}
	want := []Event{
		{Onset: 0, Duration: 10, TrialType: "indoor"},
		{Onset: 10, Duration: 10, TrialType: "outdoor"},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestPresentationEvents_Errors(t *testing.T) {
	tb, err := logparse.ParsePresentation(strings.NewReader(strings.Join(blockData, "\n")), logparse.PresentationOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := PresentationEvents(tb, PresentationOptions{}); !errors.Is(err, ErrNoTrialTypes) {
		t.Errorf("err = %v, want ErrNoTrialTypes", err)
	}
	if _, err := PresentationEvents(tb, PresentationOptions{TrialTypes: []string{"indoor"}, TriggerRelative: true}); !errors.Is(err, ErrNoTrigger) {
		t.Errorf("err = %v, want ErrNoTrigger", err)
	}
	if _, err := PresentationEvents(tb, PresentationOptions{TrialTypes: []string{"indoor"}, Design: "mixed"}); err == nil {
		t.Error("expected error for unknown design")
	}

	bare := table.New([]string{logparse.ColCode})
	if _, err := PresentationEvents(bare, PresentationOptions{TrialTypes: []string{"indoor"}}); !errors.Is(err, table.ErrNoColumn) {
		t.Errorf("err = %v, want ErrNoColumn", err)
	}
}

func TestEPrimeEvents(t *testing.T) {
	tb := table.New([]string{"WaitTrigger.RTTime", "Stimulus.OnsetTime", "Stimulus.Duration", "Condition"})
	for _, r := range [][]string{
		{"5000", "", "", ""},
		{"", "12000", "500", "congruent"},
		{"", "15000", "500", "incongruent"},
		{"", "18000", "", "neutral"},
	} {
		if err := tb.AddRow(r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := EPrimeEvents(tb, EPrimeOptions{
		OnsetColumn:     "Stimulus.OnsetTime",
		DurationColumn:  "Stimulus.Duration",
		TrialTypeColumn: "Condition",
		ReferenceColumn: "WaitTrigger.RTTime",
		TrialTypes:      []string{"congruent", "neutral"},
	})
	if err != nil {
		t.Fatalf("EPrimeEvents: %v", err)
	}
	want := []Event{
		{Onset: 7, Duration: 0.5, TrialType: "congruent"},
		{Onset: 13, Duration: math.NaN(), TrialType: "neutral"},
	}
	if diff := cmp.Diff(want, got, approx, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	if _, err := EPrimeEvents(tb, EPrimeOptions{OnsetColumn: "Stimulus.OnsetTime"}); err == nil {
		t.Error("expected error without trial type column")
	}
	if _, err := EPrimeEvents(tb, EPrimeOptions{OnsetColumn: "Condition", TrialTypeColumn: "Condition"}); err == nil {
		t.Error("expected error for non-numeric onsets")
	}
}

func TestEventsTable(t *testing.T) {
	events := []Event{
		{Onset: 7.9107, Duration: 0.7058, TrialType: "incongruentright", Response: "hit"},
		{Onset: 10.8965, Duration: math.NaN(), TrialType: "neutralleft", Response: "miss"},
	}

	var buf bytes.Buffer
	if err := EventsTable(events, true).WriteTSV(&buf); err != nil {
		t.Fatal(err)
	}
	want := "onset\tduration\ttrial_type\tresponse\n" +
		"7.9107\t0.7058\tincongruentright\thit\n" +
		"10.8965\tn/a\tneutralleft\tmiss\n"
	if buf.String() != want {
		t.Errorf("events.tsv =\n%q\nwant\n%q", buf.String(), want)
	}

	if cols := EventsTable(events, false).Columns(); len(cols) != 3 {
		t.Errorf("columns without response = %v", cols)
	}
}

func TestParseDesign(t *testing.T) {
	if d, err := ParseDesign("block"); err != nil || d != BlockDesign {
		t.Errorf("ParseDesign(block) = %v, %v", d, err)
	}
	if _, err := ParseDesign("mixed"); err == nil {
		t.Error("expected error for unknown design")
	}
}
