// Package metadata holds the tabular sample-metadata model and the
// column/row operations the pipeline runs over it. Tables are immutable:
// Select and Filter return new tables and never touch the receiver.
package metadata

import (
	"errors"
	"fmt"
)

// Value is one cell. Present distinguishes a missing cell from an empty
// string; GEO metadata routinely contains both.
type Value struct {
	Str     string
	Present bool
}

// Some returns a present value.
func Some(s string) Value { return Value{Str: s, Present: true} }

// None returns an absent value.
func None() Value { return Value{} }

// Row is one sample's metadata, keyed by accession.
type Row struct {
	Key   string
	Cells map[string]Value
}

// Value returns the cell for column name; absent columns read as None.
func (r Row) Value(column string) Value {
	return r.Cells[column]
}

// Table is an ordered, column-named metadata table. The row key (sample
// accession) is not itself a column; exports write it as the first field.
type Table struct {
	columns []string
	rows    []Row
}

// ErrNoColumns is returned when constructing a table without any columns.
var ErrNoColumns = errors.New("metadata table has no columns")

// NewTable builds a table from an ordered column list and rows. Row keys
// must be unique; cells referencing unknown columns are rejected.
func NewTable(columns []string, rows []Row) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := known[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		known[c] = struct{}{}
	}
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if r.Key == "" {
			return nil, errors.New("row with empty key")
		}
		if _, dup := seen[r.Key]; dup {
			return nil, fmt.Errorf("duplicate row key %q", r.Key)
		}
		seen[r.Key] = struct{}{}
		for c := range r.Cells {
			if _, ok := known[c]; !ok {
				return nil, fmt.Errorf("row %q references unknown column %q", r.Key, c)
			}
		}
	}
	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    append([]Row(nil), rows...),
	}
	return t, nil
}

// Columns returns the ordered column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name is a column of the table.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

// Rows returns the rows in table order.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// project returns a new table restricted to the given columns. Callers
// guarantee the columns exist.
func (t *Table) project(columns []string) *Table {
	rows := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		cells := make(map[string]Value, len(columns))
		for _, c := range columns {
			if v, ok := r.Cells[c]; ok && v.Present {
				cells[c] = v
			}
		}
		rows = append(rows, Row{Key: r.Key, Cells: cells})
	}
	return &Table{columns: append([]string(nil), columns...), rows: rows}
}

// ColumnNotFoundError reports a user-supplied column that the table does
// not have, along with every column it does have.
type ColumnNotFoundError struct {
	Column    string
	Available []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("column %q not found in metadata; available columns: %v", e.Column, e.Available)
}
