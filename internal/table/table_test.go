package table

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newEvents(t *testing.T) *Table {
	t.Helper()
	tb := New([]string{"onset", "duration", "trial_type"})
	rows := [][]string{
		{"7.9107", "0.7058", "incongruentright"},
		{"10.8965", "", "neutralleft"},
	}
	for _, r := range rows {
		if err := tb.AddRow(r); err != nil {
			t.Fatal(err)
		}
	}
	return tb
}

func TestNew_DuplicateColumns(t *testing.T) {
	tb := New([]string{"Trial", "Uncertainty", "Duration", "Uncertainty", "Uncertainty"})
	want := []string{"Trial", "Uncertainty", "Duration", "Uncertainty.1", "Uncertainty.2"}
	if diff := cmp.Diff(want, tb.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	if tb.Index("Uncertainty") != 1 {
		t.Errorf("Index(Uncertainty) = %d, want 1", tb.Index("Uncertainty"))
	}
}

func TestAddRow(t *testing.T) {
	tb := New([]string{"a", "b", "c"})
	if err := tb.AddRow([]string{"1"}); err != nil {
		t.Fatalf("short row: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "", ""}, tb.Row(0)); diff != "" {
		t.Errorf("padded row mismatch (-want +got):\n%s", diff)
	}
	if err := tb.AddRow([]string{"1", "2", "3", "4"}); err == nil {
		t.Error("expected error for long row")
	}
}

func TestFloats(t *testing.T) {
	tb := newEvents(t)
	got, err := tb.Floats("duration")
	if err != nil {
		t.Fatalf("Floats: %v", err)
	}
	if got[0] != 0.7058 || !math.IsNaN(got[1]) {
		t.Errorf("Floats(duration) = %v", got)
	}

	if _, err := tb.Floats("trial_type"); err == nil {
		t.Error("expected parse error for a string column")
	}
	if _, err := tb.Floats("missing"); !errors.Is(err, ErrNoColumn) {
		t.Errorf("err = %v, want ErrNoColumn", err)
	}
}

func TestSetFloats(t *testing.T) {
	tb := newEvents(t)
	if err := tb.SetFloats("onset", []float64{1, math.NaN()}); err != nil {
		t.Fatal(err)
	}
	got, _ := tb.Column("onset")
	if diff := cmp.Diff([]string{"1", NA}, got); diff != "" {
		t.Errorf("onset mismatch (-want +got):\n%s", diff)
	}
	if err := tb.SetFloats("onset", []float64{1}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestAddColumnFilterSelect(t *testing.T) {
	tb := newEvents(t)
	if _, err := tb.AddColumn("response", []string{"hit", "miss"}); err != nil {
		t.Fatal(err)
	}

	hits := tb.Filter(func(_ int, get func(string) string) bool {
		return get("response") == "hit"
	})
	if hits.Len() != 1 {
		t.Fatalf("filtered len = %d, want 1", hits.Len())
	}
	if v, _ := hits.Get(0, "trial_type"); v != "incongruentright" {
		t.Errorf("trial_type = %q", v)
	}

	sel, err := tb.Select("trial_type", "onset")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"neutralleft", "10.8965"}, sel.Row(1)); diff != "" {
		t.Errorf("selected row mismatch (-want +got):\n%s", diff)
	}
	if _, err := tb.Select("nope"); err == nil {
		t.Error("expected error selecting missing column")
	}
}

func TestTSV(t *testing.T) {
	tb := newEvents(t)
	var buf bytes.Buffer
	if err := tb.WriteTSV(&buf); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}

	want := "onset\tduration\ttrial_type\n" +
		"7.9107\t0.7058\tincongruentright\n" +
		"10.8965\tn/a\tneutralleft\n"
	if buf.String() != want {
		t.Errorf("tsv =\n%q\nwant\n%q", buf.String(), want)
	}

	back, err := ReadTSV(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadTSV: %v", err)
	}
	if back.Len() != 2 {
		t.Errorf("len = %d, want 2", back.Len())
	}
	if v, _ := back.Get(1, "duration"); v != NA {
		t.Errorf("duration = %q, want %q", v, NA)
	}

	if _, err := ReadTSV(strings.NewReader("")); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestArrowFile(t *testing.T) {
	tb := newEvents(t)
	path := filepath.Join(t.TempDir(), "events.arrow")
	if err := tb.WriteArrowFile(path); err != nil {
		t.Fatalf("WriteArrowFile: %v", err)
	}

	schema := tb.ArrowSchema()
	if got := schema.Field(0).Type.Name(); got != "float64" {
		t.Errorf("onset arrow type = %s, want float64", got)
	}
	if got := schema.Field(2).Type.Name(); got != "utf8" {
		t.Errorf("trial_type arrow type = %s, want utf8", got)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	back, err := ReadArrow(f)
	if err != nil {
		t.Fatalf("ReadArrow: %v", err)
	}
	if diff := cmp.Diff(tb.Columns(), back.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	// The missing duration comes back as an empty (null) cell.
	if diff := cmp.Diff([]string{"10.8965", "", "neutralleft"}, back.Row(1)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteArrow_Seeker(t *testing.T) {
	tb := newEvents(t)
	f, err := os.Create(filepath.Join(t.TempDir(), "events.arrow"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := tb.WriteArrow(f); err != nil {
		t.Fatalf("WriteArrow: %v", err)
	}
	back, err := ReadArrow(f)
	if err != nil {
		t.Fatalf("ReadArrow: %v", err)
	}
	if back.Len() != tb.Len() {
		t.Errorf("len = %d, want %d", back.Len(), tb.Len())
	}
	onsets, err := back.Floats("onset")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{7.9107, 10.8965}, onsets); diff != "" {
		t.Errorf("onset mismatch (-want +got):\n%s", diff)
	}
}
