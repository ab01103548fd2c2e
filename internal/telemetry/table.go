// Package telemetry holds the in-memory representation of one parsed
// telemetry file and the column-level transformations applied to it before
// trips are cut out of it.
package telemetry

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Table is a parsed telemetry file: ordered column names and rows of raw
// text cells. A blank cell means the value is missing. Rows may be shorter
// than Columns; absent trailing cells read as blank.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable builds a Table from a header and data rows.
func NewTable(columns []string, rows [][]string) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the table carries a column for f.
func (t *Table) Has(f Field) bool {
	return t.Index(string(f)) >= 0
}

// Cell returns the trimmed cell at row r, column c ("" when absent).
func (t *Table) Cell(r, c int) string {
	if c < 0 || r < 0 || r >= len(t.Rows) || c >= len(t.Rows[r]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[r][c])
}

// Strings returns every cell of the column for f. Nil when the column is absent.
func (t *Table) Strings(f Field) []string {
	idx := t.Index(string(f))
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for r := range t.Rows {
		out[r] = t.Cell(r, idx)
	}
	return out
}

// Floats parses the column for f as numbers. Blank or non-numeric cells
// become NaN. Nil when the column is absent.
func (t *Table) Floats(f Field) []float64 {
	idx := t.Index(string(f))
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for r := range t.Rows {
		out[r] = ParseFloat(t.Cell(r, idx))
	}
	return out
}

// Times parses the column for f as timestamps. Unparseable cells are the
// zero time. Nil when the column is absent.
func (t *Table) Times(f Field) []time.Time {
	idx := t.Index(string(f))
	if idx < 0 {
		return nil
	}
	out := make([]time.Time, len(t.Rows))
	for r := range t.Rows {
		if ts, ok := ParseTimestamp(t.Cell(r, idx)); ok {
			out[r] = ts
		}
	}
	return out
}

// SetFloats writes vals into the column for f, appending the column when it
// does not exist yet. NaN values are written as blank cells.
func (t *Table) SetFloats(f Field, vals []float64) {
	idx := t.Index(string(f))
	if idx < 0 {
		t.Columns = append(t.Columns, string(f))
		idx = len(t.Columns) - 1
	}
	for r := range t.Rows {
		for len(t.Rows[r]) <= idx {
			t.Rows[r] = append(t.Rows[r], "")
		}
		if r >= len(vals) || math.IsNaN(vals[r]) {
			t.Rows[r][idx] = ""
			continue
		}
		t.Rows[r][idx] = strconv.FormatFloat(vals[r], 'f', -1, 64)
	}
}

// FirstValue returns the first non-blank cell of the column for f.
func (t *Table) FirstValue(f Field) (string, bool) {
	for _, s := range t.Strings(f) {
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// Slice returns rows [start, end] inclusive as a new Table. Row slices are
// copied so that writes to the result never leak into t.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end >= len(t.Rows) {
		end = len(t.Rows) - 1
	}
	cols := append([]string(nil), t.Columns...)
	if end < start {
		return &Table{Columns: cols}
	}
	rows := make([][]string, 0, end-start+1)
	for _, row := range t.Rows[start : end+1] {
		rows = append(rows, append([]string(nil), row...))
	}
	return &Table{Columns: cols, Rows: rows}
}

// ParseFloat parses a cleaned cell. It returns NaN for blank or malformed input.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
