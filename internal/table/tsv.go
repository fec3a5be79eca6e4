package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadTSV reads a tab-separated table whose first line is the header.
func ReadTSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table: empty tsv")
		}
		return nil, fmt.Errorf("table: reading header: %w", err)
	}

	t := New(header)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table: line %d: %w", line, err)
		}
		if err := t.AddRow(rec); err != nil {
			return nil, fmt.Errorf("table: line %d: %w", line, err)
		}
	}
	return t, nil
}

// ReadTSVFile opens path and reads it with ReadTSV.
func ReadTSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTSV(f)
}

// WriteTSV writes the header and rows tab-separated; empty cells are
// written as "n/a".
func (t *Table) WriteTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	row := make([]string, len(t.columns))
	for _, r := range t.rows {
		for j, c := range r {
			if c == "" {
				c = NA
			}
			row[j] = c
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTSVFile writes the table to path.
func (t *Table) WriteTSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteTSV(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
