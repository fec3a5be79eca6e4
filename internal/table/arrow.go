package table

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// isNumeric reports whether every non-missing cell of column j parses as a
// float and at least one cell is present.
func (t *Table) isNumeric(j int) bool {
	seen := false
	for _, r := range t.rows {
		v, err := ParseFloat(r[j])
		if err != nil {
			return false
		}
		if !math.IsNaN(v) {
			seen = true
		}
	}
	return seen
}

// ArrowSchema returns the schema WriteArrow uses: float64 for numeric
// columns, utf8 otherwise, all nullable.
func (t *Table) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(t.columns))
	for j, name := range t.columns {
		var typ arrow.DataType = arrow.BinaryTypes.String
		if t.isNumeric(j) {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[j] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow writes the table as a single record batch in the Arrow IPC
// file format. Missing cells are nulls. The file format needs to seek
// back to write its footer, hence the io.WriteSeeker.
func (t *Table) WriteArrow(w io.WriteSeeker) error {
	mem := memory.NewGoAllocator()
	schema := t.ArrowSchema()

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for j, field := range schema.Fields() {
		switch fb := b.Field(j).(type) {
		case *array.Float64Builder:
			for _, r := range t.rows {
				v, _ := ParseFloat(r[j])
				if math.IsNaN(v) {
					fb.AppendNull()
				} else {
					fb.Append(v)
				}
			}
		case *array.StringBuilder:
			for _, r := range t.rows {
				if r[j] == "" || r[j] == NA {
					fb.AppendNull()
				} else {
					fb.Append(r[j])
				}
			}
		default:
			return fmt.Errorf("table: unexpected arrow builder for column %q", field.Name)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("table: creating arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("table: writing arrow record: %w", err)
	}
	return fw.Close()
}

// WriteArrowFile writes the table to path in the Arrow IPC file format.
func (t *Table) WriteArrowFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.WriteArrow(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// ReadArrow reads every record batch of an Arrow IPC file into a table.
// Float64 and utf8 columns are supported; nulls become empty cells.
func ReadArrow(r ipc.ReadAtSeeker) (*Table, error) {
	mem := memory.NewGoAllocator()
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("table: opening arrow file: %w", err)
	}
	defer fr.Close()

	schema := fr.Schema()
	names := make([]string, len(schema.Fields()))
	for j, f := range schema.Fields() {
		names[j] = f.Name
	}
	t := New(names)

	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("table: reading record %d: %w", i, err)
		}
		n := int(rec.NumRows())
		rows := make([][]string, n)
		for k := range rows {
			rows[k] = make([]string, len(names))
		}
		for j := range names {
			switch col := rec.Column(j).(type) {
			case *array.Float64:
				for k := 0; k < n; k++ {
					if !col.IsNull(k) {
						rows[k][j] = FormatFloat(col.Value(k))
					}
				}
			case *array.String:
				for k := 0; k < n; k++ {
					if !col.IsNull(k) {
						rows[k][j] = col.Value(k)
					}
				}
			default:
				return nil, fmt.Errorf("table: unsupported arrow type %s for column %q", col.DataType(), names[j])
			}
		}
		t.rows = append(t.rows, rows...)
	}
	return t, nil
}
