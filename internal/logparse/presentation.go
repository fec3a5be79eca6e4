// Package logparse turns behavioral task logs (Presentation, E-Prime)
// into tables. Logs are small, semi-structured text files whose tabular
// part is embedded between free-form header and footer sections.
package logparse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/nvandessel/nifti2bids/internal/table"
)

// Presentation column titles used to find the data header.
const (
	ColSubject   = "Subject"
	ColTrial     = "Trial"
	ColEventType = "Event Type"
	ColCode      = "Code"
	ColTime      = "Time"
	ColTTime     = "TTime"
	ColDuration  = "Duration"
	ColStimType  = "Stim Type"
)

// PresentationTimeColumns are the columns that hold times in Presentation
// logs.
var PresentationTimeColumns = []string{"Time", "TTime", "Duration", "ReqTime", "ReqDur"}

// PresentationTimeScale converts Presentation's 0.1 ms units to seconds.
const PresentationTimeScale = 10000

var (
	// ErrDelimiterNotFound is returned when no line carries the
	// "Trial" and "Event Type" titles.
	ErrDelimiterNotFound = errors.New("logparse: could not determine delimiter")
	// ErrNoHeaderRow is returned when the data header row is missing.
	ErrNoHeaderRow = errors.New("logparse: data header row not found")
)

// PresentationOptions controls LoadPresentation.
type PresentationOptions struct {
	// Delimiter overrides delimiter detection when set.
	Delimiter string

	// ConvertColumns lists time columns to parse as floats. Nil means
	// PresentationTimeColumns; an empty non-nil slice converts nothing.
	ConvertColumns []string

	// ToSeconds divides the converted columns by TimeScale.
	ToSeconds bool

	// TimeScale is the number of log units per second. Zero means
	// PresentationTimeScale.
	TimeScale float64
}

// readLines splits r into lines without line terminators.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("logparse: reading lines: %w", err)
	}
	return lines, nil
}

// nonBlank drops lines that contain only whitespace.
func nonBlank(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// DetectDelimiter returns the text between the "Trial" and "Event Type"
// column titles on the first line that has both.
func DetectDelimiter(lines []string) (string, error) {
	for _, line := range lines {
		i := strings.Index(line, ColTrial)
		if i < 0 {
			continue
		}
		rest := line[i+len(ColTrial):]
		j := strings.Index(rest, ColEventType)
		if j <= 0 {
			continue
		}
		delim := rest[:j]
		if strings.TrimSpace(delim) == "" && delim != strings.Repeat(" ", len(delim)) {
			// Tabs, possibly mixed with spaces: the tab is the delimiter.
			return "\t", nil
		}
		return delim, nil
	}
	return "", ErrDelimiterNotFound
}

func splitFields(line, delim string) []string {
	fields := strings.Split(line, delim)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	// Trailing delimiters leave empty fields behind.
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

// ParsePresentation reads a Presentation log and returns its trial table:
// the rows after the header row up to the first row whose Trial field is
// not an integer.
func ParsePresentation(r io.Reader, opts PresentationOptions) (*table.Table, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, err
	}
	lines = nonBlank(lines)

	delim := opts.Delimiter
	if delim == "" {
		if delim, err = DetectDelimiter(lines); err != nil {
			return nil, err
		}
	}

	start, trialCol := -1, -1
	var columns []string
	for i, line := range lines {
		fields := splitFields(line, delim)
		trialCol = indexOf(fields, ColTrial)
		if trialCol >= 0 && indexOf(fields, ColEventType) > trialCol {
			start, columns = i, fields
			break
		}
	}
	if start < 0 {
		return nil, ErrNoHeaderRow
	}

	t := table.New(columns)
	for i := start + 1; i < len(lines); i++ {
		fields := splitFields(lines[i], delim)
		if trialCol >= len(fields) || !isInteger(fields[trialCol]) {
			break
		}
		if err := t.AddRow(fields); err != nil {
			return nil, fmt.Errorf("logparse: data row %d: %w", i-start, err)
		}
	}

	cols := opts.ConvertColumns
	if cols == nil {
		cols = PresentationTimeColumns
	}
	scale := 0.0
	if opts.ToSeconds {
		scale = opts.TimeScale
		if scale == 0 {
			scale = PresentationTimeScale
		}
	}
	if err := ConvertTime(t, cols, scale); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadPresentation opens and parses a Presentation log file.
func LoadPresentation(path string, opts PresentationOptions) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening presentation log: %w", err)
	}
	defer f.Close()

	t, err := ParsePresentation(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ConvertTime normalizes the listed columns to floats, dividing by scale
// when scale > 0. Columns missing from the table are skipped; cells that
// are not numbers (such as "next" in ReqDur) are left as they are.
func ConvertTime(t *table.Table, columns []string, scale float64) error {
	for _, col := range columns {
		cells, err := t.Column(col)
		if errors.Is(err, table.ErrNoColumn) {
			continue
		}
		if err != nil {
			return err
		}
		for i, c := range cells {
			v, err := table.ParseFloat(c)
			if err != nil || math.IsNaN(v) {
				continue
			}
			if scale > 0 {
				v /= scale
			}
			cells[i] = table.FormatFloat(v)
		}
		if err := t.SetColumn(col, cells); err != nil {
			return fmt.Errorf("logparse: converting time column: %w", err)
		}
	}
	return nil
}

func indexOf(fields []string, name string) int {
	for i, f := range fields {
		if f == name {
			return i
		}
	}
	return -1
}
