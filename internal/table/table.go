// Package table is a small string-backed data table with typed column
// access, used for parsed behavioral logs and BIDS tsv files.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NA is the BIDS marker for a missing value.
const NA = "n/a"

// ErrNoColumn is returned when a column lookup fails.
var ErrNoColumn = errors.New("table: no such column")

// Table is an ordered set of named columns over string cells.
// Column names are unique; duplicates get ".1", ".2", ... suffixes.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates an empty table with the given column names.
func New(columns []string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.appendColumnName(c)
	}
	return t
}

func (t *Table) appendColumnName(name string) string {
	unique := name
	for n := 1; ; n++ {
		if _, taken := t.index[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s.%d", name, n)
	}
	t.index[unique] = len(t.columns)
	t.columns = append(t.columns, unique)
	return unique
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len is the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// AddRow appends a row. Short rows are padded with empty cells; long rows
// are an error.
func (t *Table) AddRow(row []string) error {
	if len(row) > len(t.columns) {
		return fmt.Errorf("table: row has %d fields, table has %d columns", len(row), len(t.columns))
	}
	r := make([]string, len(t.columns))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []string {
	return append([]string(nil), t.rows[i]...)
}

// Get returns the cell at row i, column name.
func (t *Table) Get(i int, name string) (string, error) {
	j := t.Index(name)
	if j < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if i < 0 || i >= len(t.rows) {
		return "", fmt.Errorf("table: row %d out of range [0, %d)", i, len(t.rows))
	}
	return t.rows[i][j], nil
}

// Column returns a copy of a column's cells.
func (t *Table) Column(name string) ([]string, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	out := make([]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// ParseFloat parses a cell; empty and "n/a" cells are NaN.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NA {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatFloat renders a float the shortest exact way; NaN becomes "n/a".
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return NA
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Floats parses a column as float64. Empty and "n/a" cells become NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	cells, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		v, err := ParseFloat(c)
		if err != nil {
			return nil, fmt.Errorf("table: column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// SetFloats replaces a column's cells with formatted floats.
func (t *Table) SetFloats(name string, values []float64) error {
	j := t.Index(name)
	if j < 0 {
		return fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("table: %d values for %d rows", len(values), len(t.rows))
	}
	for i, v := range values {
		t.rows[i][j] = FormatFloat(v)
	}
	return nil
}

// SetColumn replaces a column's cells.
func (t *Table) SetColumn(name string, values []string) error {
	j := t.Index(name)
	if j < 0 {
		return fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("table: %d values for %d rows", len(values), len(t.rows))
	}
	for i, v := range values {
		t.rows[i][j] = v
	}
	return nil
}

// AddColumn appends a column and returns the name it was stored under.
func (t *Table) AddColumn(name string, values []string) (string, error) {
	if len(values) != len(t.rows) {
		return "", fmt.Errorf("table: %d values for %d rows", len(values), len(t.rows))
	}
	stored := t.appendColumnName(name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return stored, nil
}

// Filter returns a new table with the rows for which keep returns true.
// keep receives the row index and a getter by column name.
func (t *Table) Filter(keep func(i int, get func(string) string) bool) *Table {
	out := New(t.columns)
	for i, r := range t.rows {
		get := func(name string) string {
			if j := t.Index(name); j >= 0 {
				return r[j]
			}
			return ""
		}
		if keep(i, get) {
			out.rows = append(out.rows, append([]string(nil), r...))
		}
	}
	return out
}

// Select returns a new table with only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j := t.Index(n)
		if j < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoColumn, n)
		}
		idx[k] = j
	}
	out := New(names)
	for _, r := range t.rows {
		row := make([]string, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}
