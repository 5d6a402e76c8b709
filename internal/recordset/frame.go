package recordset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// combineSeparator joins non-blank cells of one record
const combineSeparator = " | "

// Frame is a column-oriented record set. Columns share one length; rows are
// addressed by index.
type Frame struct {
	order   []string
	columns map[string][]string
	length  int
}

// NewFrame creates an empty frame
func NewFrame() *Frame {
	return &Frame{columns: make(map[string][]string)}
}

// Len returns the number of records
func (f *Frame) Len() int {
	return f.length
}

// Columns returns the column names in insertion order
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the frame carries the named column
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.columns[name]
	return ok
}

// Column returns the named column's values
func (f *Frame) Column(name string) ([]string, error) {
	values, ok := f.columns[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	return values, nil
}

// AddColumn appends a new column. All columns must share the frame length.
func (f *Frame) AddColumn(name string, values []string) error {
	if _, exists := f.columns[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(f.order) > 0 && len(values) != f.length {
		return fmt.Errorf("column %q has %d values, frame has %d records", name, len(values), f.length)
	}

	f.columns[name] = values
	f.order = append(f.order, name)
	f.length = len(values)
	return nil
}

// SetColumn writes a column, replacing it when it already exists
func (f *Frame) SetColumn(name string, values []string) error {
	if len(values) != f.length {
		return fmt.Errorf("column %q has %d values, frame has %d records", name, len(values), f.length)
	}
	if _, exists := f.columns[name]; !exists {
		f.order = append(f.order, name)
	}
	f.columns[name] = values
	return nil
}

// CombineColumns builds one classification input string per record by joining
// the named columns' non-blank cells with a fixed separator. Blank cells are
// skipped; a record with no usable cells yields an empty string.
func (f *Frame) CombineColumns(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no columns specified")
	}

	cols := make([][]string, len(names))
	for i, name := range names {
		values, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = values
	}

	combined := make([]string, f.length)
	parts := make([]string, 0, len(names))
	for row := 0; row < f.length; row++ {
		parts = parts[:0]
		for _, col := range cols {
			if cell := strings.TrimSpace(col[row]); cell != "" {
				parts = append(parts, cell)
			}
		}
		combined[row] = strings.Join(parts, combineSeparator)
	}

	return combined, nil
}

// ReadCSV loads a frame from CSV with a header row
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	header := records[0]
	rows := records[1:]

	frame := NewFrame()
	for i, name := range header {
		values := make([]string, len(rows))
		for j, row := range rows {
			if i < len(row) {
				values[j] = row[i]
			}
		}
		if err := frame.AddColumn(name, values); err != nil {
			return nil, err
		}
	}

	return frame, nil
}

// WriteCSV writes the frame as CSV with a header row
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(f.order); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(f.order))
	for i := 0; i < f.length; i++ {
		for j, name := range f.order {
			row[j] = f.columns[name][i]
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
