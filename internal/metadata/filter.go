package metadata

import (
	"fmt"
	"regexp"
)

// Filter returns a new table holding only the rows whose value in column
// matches pattern (a regular expression, matched anywhere in the value).
// Absent cells never match. An empty result is a valid table, not an
// error. Matching is case-insensitive unless caseSensitive is set.
func Filter(t *Table, column, pattern string, caseSensitive bool) (*Table, error) {
	if !t.HasColumn(column) {
		return nil, &ColumnNotFoundError{Column: column, Available: t.Columns()}
	}
	expr := pattern
	if !caseSensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile filter pattern %q: %w", pattern, err)
	}
	var rows []Row
	for _, r := range t.rows {
		v := r.Value(column)
		if v.Present && re.MatchString(v.Str) {
			rows = append(rows, r)
		}
	}
	return &Table{columns: append([]string(nil), t.columns...), rows: rows}, nil
}
