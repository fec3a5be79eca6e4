package logparse

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nvandessel/nifti2bids/internal/table"
)

// EPrimeTimeScale converts E-Prime millisecond times to seconds.
const EPrimeTimeScale = 1000

// exportProbeLines is how many leading lines are searched for the export
// header row.
const exportProbeLines = 10

// ErrNoFrames is returned when an E-Prime log has no LogFrame at the
// requested level.
var ErrNoFrames = errors.New("logparse: no log frames found")

const (
	frameStart  = "*** LogFrame Start ***"
	frameEnd    = "*** LogFrame End ***"
	headerStart = "*** Header Start ***"
	headerEnd   = "*** Header End ***"
	levelKey    = "Level"
)

// decoded wraps r so that UTF-16 input with a byte order mark is decoded to
// UTF-8. Input without a BOM is read as UTF-8.
func decoded(r io.Reader) io.Reader {
	return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
}

// ParseEPrimeExport reads a tab-delimited E-DataAid export. The header row
// is the first line with the most fields among the leading lines; any line
// before it (the .edat file name) is ignored.
func ParseEPrimeExport(r io.Reader) (*table.Table, error) {
	lines, err := readLines(decoded(r))
	if err != nil {
		return nil, err
	}
	lines = nonBlank(lines)
	if len(lines) == 0 {
		return nil, ErrNoHeaderRow
	}

	header, most := 0, 0
	for i := 0; i < len(lines) && i < exportProbeLines; i++ {
		if n := len(strings.Split(lines[i], "\t")); n > most {
			header, most = i, n
		}
	}
	if most < 2 {
		return nil, ErrNoHeaderRow
	}

	t := table.New(strings.Split(lines[header], "\t"))
	for i := header + 1; i < len(lines); i++ {
		if err := t.AddRow(strings.Split(lines[i], "\t")); err != nil {
			return nil, fmt.Errorf("logparse: export row %d: %w", i-header, err)
		}
	}
	return t, nil
}

// LoadEPrimeExport opens and parses an E-Prime export file.
func LoadEPrimeExport(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening e-prime export: %w", err)
	}
	defer f.Close()

	t, err := ParseEPrimeExport(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Frame is one LogFrame of an E-Prime text log.
type Frame struct {
	Level  int
	Keys   []string
	Values map[string]string
}

func (f *Frame) set(key, value string) {
	if _, ok := f.Values[key]; !ok {
		f.Keys = append(f.Keys, key)
	}
	f.Values[key] = value
}

// EPrimeLog is a parsed E-Prime text log.
type EPrimeLog struct {
	Header Frame
	Frames []Frame
}

// splitKeyValue splits "Key: value" at the first colon.
func splitKeyValue(line string) (string, string, bool) {
	k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(k), strings.TrimSpace(v), true
}

// ParseEPrimeLog reads the header and every LogFrame of an E-Prime text
// log. Each frame takes the Level announced before it.
func ParseEPrimeLog(r io.Reader) (*EPrimeLog, error) {
	lines, err := readLines(decoded(r))
	if err != nil {
		return nil, err
	}

	log := &EPrimeLog{Header: Frame{Values: map[string]string{}}}
	var cur *Frame
	inHeader := false
	level := 0
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case headerStart:
			inHeader = true
			continue
		case headerEnd:
			inHeader = false
			continue
		case frameStart:
			cur = &Frame{Level: level, Values: map[string]string{}}
			continue
		case frameEnd:
			if cur != nil {
				log.Frames = append(log.Frames, *cur)
				cur = nil
			}
			continue
		}

		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch {
		case inHeader:
			log.Header.set(key, value)
		case cur != nil:
			cur.set(key, value)
		case key == levelKey:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("logparse: bad frame level %q", value)
			}
			level = n
		}
	}
	return log, nil
}

// MaxLevel is the deepest frame level in the log, usually the trial level.
func (l *EPrimeLog) MaxLevel() int {
	max := 0
	for _, f := range l.Frames {
		if f.Level > max {
			max = f.Level
		}
	}
	return max
}

// Table builds a table from the frames at level (0 means MaxLevel).
// Columns are in order of first appearance; missing keys are empty cells.
func (l *EPrimeLog) Table(level int) (*table.Table, error) {
	if level == 0 {
		level = l.MaxLevel()
	}
	var frames []Frame
	var columns []string
	seen := map[string]bool{}
	for _, f := range l.Frames {
		if f.Level != level {
			continue
		}
		frames = append(frames, f)
		for _, k := range f.Keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w at level %d", ErrNoFrames, level)
	}

	t := table.New(columns)
	row := make([]string, len(columns))
	for _, f := range frames {
		for j, c := range columns {
			row[j] = f.Values[c]
		}
		if err := t.AddRow(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// LoadEPrimeLog parses an E-Prime text log and returns the frames at level
// as a table (0 selects the deepest level).
func LoadEPrimeLog(path string, level int) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening e-prime log: %w", err)
	}
	defer f.Close()

	log, err := ParseEPrimeLog(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t, err := log.Table(level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
