package model

import (
	"strconv"
	"time"
)

// CellKind identifies the typed value held by a Cell.
type CellKind int

const (
	CellNull CellKind = iota
	CellText
	CellNumber
	CellDate
)

// DateLayout is the layout used when a date cell is rendered as text.
const DateLayout = "2006-01-02"

// Cell is one standardized spreadsheet value. Unparsable input is carried
// as a null cell rather than an error.
type Cell struct {
	Kind CellKind  `json:"kind"`
	Text string    `json:"text,omitempty"`
	Num  float64   `json:"num,omitempty"`
	Date time.Time `json:"date,omitempty"`
}

// Null returns the missing-value marker.
func Null() Cell { return Cell{Kind: CellNull} }

// Text returns a text cell.
func Text(s string) Cell { return Cell{Kind: CellText, Text: s} }

// Number returns a numeric cell.
func Number(f float64) Cell { return Cell{Kind: CellNumber, Num: f} }

// Date returns a date cell truncated to the day.
func Date(t time.Time) Cell {
	return Cell{Kind: CellDate, Date: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.Kind == CellNull }

// Float returns the numeric value and whether the cell is numeric.
func (c Cell) Float() (float64, bool) {
	if c.Kind != CellNumber {
		return 0, false
	}
	return c.Num, true
}

// String renders the cell the way it is written to CSV output.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case CellDate:
		return c.Date.Format(DateLayout)
	default:
		return ""
	}
}

// Table is a cleaned, flat tabular file.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool { return t.Index(name) >= 0 }

// Get returns the cell at row r for column name, or a null cell when the
// column is absent or the row is short.
func (t *Table) Get(r int, name string) Cell {
	i := t.Index(name)
	if i < 0 || r < 0 || r >= len(t.Rows) || i >= len(t.Rows[r]) {
		return Null()
	}
	return t.Rows[r][i]
}

// Set writes a cell, adding the column when it does not yet exist.
func (t *Table) Set(r int, name string, c Cell) {
	i := t.Index(name)
	if i < 0 {
		t.Columns = append(t.Columns, name)
		i = len(t.Columns) - 1
	}
	for len(t.Rows[r]) <= i {
		t.Rows[r] = append(t.Rows[r], Null())
	}
	t.Rows[r][i] = c
}

// Clone returns a deep copy so callers can rewrite rows without touching
// a cached value.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]Cell, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]Cell(nil), row...)
	}
	return out
}

// Strings renders every row as CSV-ready strings.
func (t *Table) Strings() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		line := make([]string, len(t.Columns))
		for i := range t.Columns {
			if i < len(row) {
				line[i] = row[i].String()
			}
		}
		out = append(out, line)
	}
	return out
}
