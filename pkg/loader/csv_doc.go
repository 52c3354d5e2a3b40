package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CSVTable is a decoded CSV document: one header row followed by records.
type CSVTable struct {
	Header []string
	Rows   []*CSVRow
}

// CSVRow is a dynamic record keyed by the table header.
type CSVRow struct {
	header []string
	values []string
	// Line is the line the record starts on as reported by encoding/csv.
	Line int
}

// Fields returns the row's field names. Values beyond the header get
// synthetic names column<N> (1-based).
func (r *CSVRow) Fields() []string {
	n := len(r.header)
	if len(r.values) > n {
		n = len(r.values)
	}
	out := make([]string, n)
	for i := range out {
		if i < len(r.header) && r.header[i] != "" {
			out[i] = r.header[i]
		} else {
			out[i] = fmt.Sprintf("column%d", i+1)
		}
	}
	return out
}

// Get returns the value of the named field. Missing trailing values read as
// empty strings.
func (r *CSVRow) Get(field string) (string, bool) {
	for i, name := range r.Fields() {
		if name == field {
			if i < len(r.values) {
				return r.values[i], true
			}
			return "", true
		}
	}
	return "", false
}

// Len returns the number of fields in the row.
func (r *CSVRow) Len() int {
	return len(r.Fields())
}

// DisplayLine is the line record i is shown on: the header is line 1 and
// every record is assumed to occupy one line.
func DisplayLine(i int) int {
	return i + 2
}

// FirstDrift returns the index of the first record whose physical line
// differs from DisplayLine, as happens after a quoted field spanning lines.
func (t *CSVTable) FirstDrift() (int, bool) {
	for i, r := range t.Rows {
		if r.Line != DisplayLine(i) {
			return i, true
		}
	}
	return 0, false
}

// ParseCSV decodes text with a header row. Ragged rows are allowed.
func ParseCSV(text string) (*CSVTable, error) {
	rd := csv.NewReader(strings.NewReader(text))
	rd.FieldsPerRecord = -1
	rd.LazyQuotes = true

	header, err := rd.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("invalid CSV header: %w", err)
	}
	table := &CSVTable{Header: header}
	for {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid CSV: %w", err)
		}
		line, _ := rd.FieldPos(0)
		table.Rows = append(table.Rows, &CSVRow{header: header, values: rec, Line: line})
	}
	return table, nil
}
